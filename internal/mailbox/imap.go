package mailbox

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/sirupsen/logrus"

	"rfp-relay-go/internal/config"
)

// IMAPFetcher opens a fresh IMAP session per fetch
type IMAPFetcher struct {
	cfg     config.IMAPConfig
	timeout time.Duration
}

// NewIMAPFetcher creates an IMAP fetcher. timeout bounds a whole fetch.
func NewIMAPFetcher(cfg config.IMAPConfig, timeout time.Duration) *IMAPFetcher {
	if cfg.Mailbox == "" {
		cfg.Mailbox = "INBOX"
	}
	return &IMAPFetcher{cfg: cfg, timeout: timeout}
}

func (f *IMAPFetcher) dial() (*client.Client, error) {
	addr := net.JoinHostPort(f.cfg.Host, strconv.Itoa(f.cfg.Port))
	dialer := &net.Dialer{Timeout: f.timeout}

	var (
		c   *client.Client
		err error
	)
	if f.cfg.TLS {
		c, err = client.DialWithDialerTLS(dialer, addr, &tls.Config{ServerName: f.cfg.Host})
	} else {
		c, err = client.DialWithDialer(dialer, addr)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to IMAP server: %w", err)
	}
	c.Timeout = f.timeout

	if err := c.Login(f.cfg.Username, f.cfg.Password); err != nil {
		c.Logout()
		return nil, fmt.Errorf("failed to login to IMAP server: %w", err)
	}
	return c, nil
}

// FetchCandidates searches for unseen messages since criteria.Since whose
// subject contains the marker, and downloads them. Downloading marks them seen.
func (f *IMAPFetcher) FetchCandidates(ctx context.Context, criteria Criteria) ([]RawMessage, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	c, err := f.dial()
	if err != nil {
		return nil, err
	}

	type result struct {
		messages []RawMessage
		err      error
	}
	done := make(chan result, 1)
	go func() {
		messages, err := f.fetch(c, criteria)
		done <- result{messages, err}
	}()

	select {
	case r := <-done:
		if err := c.Logout(); err != nil {
			logrus.Debugf("IMAP logout failed: %v", err)
		}
		return r.messages, r.err
	case <-ctx.Done():
		c.Terminate()
		<-done
		return nil, fmt.Errorf("IMAP fetch interrupted: %w", ctx.Err())
	}
}

func (f *IMAPFetcher) fetch(c *client.Client, criteria Criteria) ([]RawMessage, error) {
	if _, err := c.Select(f.cfg.Mailbox, false); err != nil {
		return nil, fmt.Errorf("failed to select %s: %w", f.cfg.Mailbox, err)
	}

	search := imap.NewSearchCriteria()
	search.WithoutFlags = []string{imap.SeenFlag}
	search.Since = criteria.Since
	if criteria.SubjectMarker != "" {
		search.Header.Add("Subject", criteria.SubjectMarker)
	}

	uids, err := c.UidSearch(search)
	if err != nil {
		return nil, fmt.Errorf("failed to search messages: %w", err)
	}
	if len(uids) == 0 {
		return []RawMessage{}, nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)

	section := &imap.BodySectionName{}
	items := []imap.FetchItem{section.FetchItem(), imap.FetchInternalDate, imap.FetchUid}

	messages := make(chan *imap.Message, len(uids))
	fetchDone := make(chan error, 1)
	go func() {
		fetchDone <- c.UidFetch(seqset, items, messages)
	}()

	raws := make([]RawMessage, 0, len(uids))
	for msg := range messages {
		body := msg.GetBody(section)
		if body == nil {
			logrus.Warnf("IMAP message %d has no body", msg.Uid)
			continue
		}
		data, err := io.ReadAll(body)
		if err != nil {
			logrus.Warnf("Failed to read IMAP message %d: %v", msg.Uid, err)
			continue
		}
		raws = append(raws, RawMessage{
			Ref:        strconv.FormatUint(uint64(msg.Uid), 10),
			Data:       data,
			ReceivedAt: msg.InternalDate,
		})
	}

	if err := <-fetchDone; err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}
	return raws, nil
}
