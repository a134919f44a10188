package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/sirupsen/logrus"

	"rfp-relay-go/internal/config"
)

// SMTPSender delivers through an SMTP submission server
type SMTPSender struct {
	cfg  config.SMTPConfig
	from From
}

func NewSMTPSender(cfg config.SMTPConfig, from From) *SMTPSender {
	return &SMTPSender{cfg: cfg, from: from}
}

func (s *SMTPSender) dial(ctx context.Context) (*smtp.Client, error) {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	tlsConfig := &tls.Config{ServerName: s.cfg.Host}
	dialer := &net.Dialer{Timeout: s.cfg.Timeout}

	var (
		conn net.Conn
		err  error
	)
	if s.cfg.TLSMode == "tls" {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: tlsConfig}).DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, err
	}

	if s.cfg.TLSMode == "tls" || s.cfg.TLSMode == "none" {
		return smtp.NewClient(conn), nil
	}

	// STARTTLS runs the greeting under the library's own five minute
	// deadline, so bound it by closing the connection instead.
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	c, err := smtp.NewClientStartTLS(conn, tlsConfig)
	if !stop() {
		if err == nil {
			c.Close()
		}
		return nil, fmt.Errorf("SMTP handshake: %w", ctx.Err())
	}
	return c, err
}

func (s *SMTPSender) Send(ctx context.Context, env *Envelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := Build(s.from, env, time.Now())
	if err != nil {
		return err
	}

	c, err := s.dial(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer c.Close()

	if s.cfg.Timeout > 0 {
		c.CommandTimeout = s.cfg.Timeout
		c.SubmissionTimeout = s.cfg.Timeout
	}

	if s.cfg.Username != "" {
		if err := c.Auth(sasl.NewPlainClient("", s.cfg.Username, s.cfg.Password)); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	if err := c.SendMail(s.from.Address, []string{env.To}, bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", env.To, err)
	}
	if err := c.Quit(); err != nil {
		logrus.Debugf("SMTP quit failed: %v", err)
	}

	logrus.WithField("to", env.To).Info("Invitation delivered via SMTP")
	return nil
}
