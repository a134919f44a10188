package mailer

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	gmail "google.golang.org/api/gmail/v1"
)

// GmailSender delivers through the Gmail API
type GmailSender struct {
	service *gmail.Service
	userID  string
	from    From
}

func NewGmailSender(service *gmail.Service, userID string, from From) *GmailSender {
	return &GmailSender{service: service, userID: userID, from: from}
}

func (s *GmailSender) Send(ctx context.Context, env *Envelope) error {
	raw, err := Build(s.from, env, time.Now())
	if err != nil {
		return err
	}

	message := &gmail.Message{Raw: base64.URLEncoding.EncodeToString(raw)}
	if _, err := s.service.Users.Messages.Send(s.userID, message).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", env.To, err)
	}

	logrus.WithField("to", env.To).Info("Invitation delivered via Gmail API")
	return nil
}
