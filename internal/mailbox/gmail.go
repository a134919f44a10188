package mailbox

import (
	"context"
	"encoding/base64"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"
	gmail "google.golang.org/api/gmail/v1"
)

// GmailFetcher reads candidates through the Gmail API
type GmailFetcher struct {
	service *gmail.Service
	userID  string
	timeout time.Duration
}

// NewGmailFetcher creates a fetcher; the service needs the modify scope to mark messages read
func NewGmailFetcher(service *gmail.Service, userID string, timeout time.Duration) *GmailFetcher {
	return &GmailFetcher{service: service, userID: userID, timeout: timeout}
}

// Query renders criteria in Gmail search syntax
func Query(criteria Criteria, now time.Time) string {
	days := int(math.Ceil(now.Sub(criteria.Since).Hours() / 24))
	if days < 1 {
		days = 1
	}
	q := fmt.Sprintf("is:unread newer_than:%dd", days)
	if criteria.SubjectMarker != "" {
		q += fmt.Sprintf(" subject:%q", criteria.SubjectMarker)
	}
	return q
}

func (f *GmailFetcher) FetchCandidates(ctx context.Context, criteria Criteria) ([]RawMessage, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	var refs []*gmail.Message
	err := f.service.Users.Messages.List(f.userID).
		Q(Query(criteria, time.Now())).
		Context(ctx).
		Pages(ctx, func(page *gmail.ListMessagesResponse) error {
			refs = append(refs, page.Messages...)
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	raws := make([]RawMessage, 0, len(refs))
	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		msg, err := f.service.Users.Messages.Get(f.userID, ref.Id).Format("raw").Context(ctx).Do()
		if err != nil {
			logrus.Warnf("Failed to get message %s: %v", ref.Id, err)
			continue
		}
		data, err := decodeRaw(msg.Raw)
		if err != nil {
			logrus.Warnf("Failed to decode message %s: %v", ref.Id, err)
			continue
		}

		_, err = f.service.Users.Messages.Modify(f.userID, ref.Id, &gmail.ModifyMessageRequest{
			RemoveLabelIds: []string{"UNREAD"},
		}).Context(ctx).Do()
		if err != nil {
			logrus.Warnf("Failed to mark message %s read: %v", ref.Id, err)
		}

		raws = append(raws, RawMessage{
			Ref:        ref.Id,
			Data:       data,
			ReceivedAt: time.UnixMilli(msg.InternalDate),
		})
	}
	return raws, nil
}

func decodeRaw(s string) ([]byte, error) {
	if data, err := base64.URLEncoding.DecodeString(s); err == nil {
		return data, nil
	}
	return base64.RawURLEncoding.DecodeString(s)
}
