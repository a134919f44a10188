// Package gmailapi builds authorized Gmail API clients from a stored refresh token.
package gmailapi

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"rfp-relay-go/internal/config"
)

// Scopes covers reading and marking replies and sending invitations
var Scopes = []string{gmail.GmailModifyScope, gmail.GmailSendScope}

// UserID returns the mailbox the service acts on
func UserID(cfg config.GmailConfig) string {
	if cfg.UserEmail == "" {
		return "me"
	}
	return cfg.UserEmail
}

// OAuthConfig returns the OAuth2 client for the configured Google credentials
func OAuthConfig(cfg config.GmailConfig, redirectURL string, scopes ...string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       scopes,
		Endpoint:     google.Endpoint,
		RedirectURL:  redirectURL,
	}
}

// NewService creates a Gmail service with the given scopes
func NewService(ctx context.Context, cfg config.GmailConfig, scopes ...string) (*gmail.Service, error) {
	tokenSource := OAuthConfig(cfg, "", scopes...).TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})

	service, err := gmail.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	return service, nil
}
