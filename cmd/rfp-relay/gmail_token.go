package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"rfp-relay-go/internal/config"
	"rfp-relay-go/internal/gmailapi"
)

var redirectURL string

var gmailTokenCmd = &cobra.Command{
	Use:   "gmail-token",
	Short: "Obtain a Gmail refresh token for the configured OAuth client",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if cfg.Gmail.ClientID == "" || cfg.Gmail.ClientSecret == "" {
			return fmt.Errorf("set GMAIL_CLIENT_ID and GMAIL_CLIENT_SECRET first")
		}

		oauthCfg := gmailapi.OAuthConfig(cfg.Gmail, redirectURL, gmailapi.Scopes...)
		out := cmd.OutOrStdout()

		fmt.Fprintf(out, "Go to the following link in your browser: %v\n", oauthCfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline))
		fmt.Fprintln(out, "\nAfter authorization, you'll be redirected to a URL. Copy the 'code' parameter from that URL.")
		fmt.Fprint(out, "\nEnter the authorization code: ")

		var authCode string
		if _, err := fmt.Fscan(cmd.InOrStdin(), &authCode); err != nil {
			return fmt.Errorf("failed to read authorization code: %w", err)
		}

		tok, err := oauthCfg.Exchange(cmd.Context(), authCode)
		if err != nil {
			return fmt.Errorf("unable to retrieve token from web: %w", err)
		}

		fmt.Fprintf(out, "\nRefresh Token: %s\n", tok.RefreshToken)
		fmt.Fprintf(out, "Expiry: %v\n", tok.Expiry)
		fmt.Fprintln(out, "\nAdd the refresh token to your environment variables:")
		fmt.Fprintf(out, "export GMAIL_REFRESH_TOKEN=\"%s\"\n", tok.RefreshToken)
		return nil
	},
}

func init() {
	gmailTokenCmd.Flags().StringVar(&redirectURL, "redirect-url", "http://localhost:8080/callback", "OAuth redirect URL registered for the client")
	rootCmd.AddCommand(gmailTokenCmd)
}
