// Package mailer renders and delivers RFP invitations.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/google/uuid"
)

// Sender delivers one email
type Sender interface {
	Send(ctx context.Context, env *Envelope) error
}

// From identifies the sending mailbox
type From struct {
	Address string
	Name    string
}

// Build renders env as a multipart/alternative RFC 822 message
func Build(from From, env *Envelope, now time.Time) ([]byte, error) {
	var h mail.Header
	h.SetDate(now)
	h.SetAddressList("From", []*mail.Address{{Name: from.Name, Address: from.Address}})
	h.SetAddressList("To", []*mail.Address{{Name: env.ToName, Address: env.To}})
	h.SetSubject(env.Subject)
	h.SetMessageID(messageID(from.Address))

	var buf bytes.Buffer
	w, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("failed to create message writer: %w", err)
	}

	alt, err := w.CreateInline()
	if err != nil {
		return nil, fmt.Errorf("failed to create inline part: %w", err)
	}
	if err := writePart(alt, "text/plain", env.Text); err != nil {
		return nil, err
	}
	if env.HTML != "" {
		if err := writePart(alt, "text/html", env.HTML); err != nil {
			return nil, err
		}
	}
	if err := alt.Close(); err != nil {
		return nil, fmt.Errorf("failed to close inline part: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to close message: %w", err)
	}
	return buf.Bytes(), nil
}

func writePart(w *mail.InlineWriter, contentType, body string) error {
	var h mail.InlineHeader
	h.SetContentType(contentType, map[string]string{"charset": "utf-8"})
	h.Set("Content-Transfer-Encoding", "quoted-printable")
	pw, err := w.CreatePart(h)
	if err != nil {
		return fmt.Errorf("failed to create %s part: %w", contentType, err)
	}
	if _, err := io.WriteString(pw, body); err != nil {
		return fmt.Errorf("failed to write %s part: %w", contentType, err)
	}
	return pw.Close()
}

func messageID(from string) string {
	domain := "localhost"
	if _, d, ok := strings.Cut(from, "@"); ok && d != "" {
		domain = d
	}
	return uuid.NewString() + "@" + domain
}
