package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBot struct {
	sent []tgbotapi.Chattable
	err  error
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, f.err
}

type fakePublisher struct {
	subject string
	data    []byte
	err     error
}

func (f *fakePublisher) Publish(subject string, data []byte) error {
	f.subject = subject
	f.data = data
	return f.err
}

func sampleEvent() ProposalEvent {
	price := 48000.0
	return ProposalEvent{
		EmailID:     "<m1@acme.example>",
		RFPID:       uuid.New(),
		RFPTitle:    "Laptops & docks",
		VendorID:    uuid.New(),
		VendorName:  "Acme",
		VendorEmail: "sales@acme.example",
		TotalPrice:  &price,
		Score:       82,
		Summary:     "Good <value>",
	}
}

func TestTelegramFormatsHTML(t *testing.T) {
	bot := &fakeBot{}
	tg := &Telegram{bot: bot, chatID: 42}

	require.NoError(t, tg.ProposalReceived(context.Background(), sampleEvent()))
	require.Len(t, bot.sent, 1)

	msg, ok := bot.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Equal(t, tgbotapi.ModeHTML, msg.ParseMode)
	assert.Contains(t, msg.Text, "Laptops &amp; docks")
	assert.Contains(t, msg.Text, "$48,000")
	assert.Contains(t, msg.Text, "Score: 82/100")
	assert.Contains(t, msg.Text, "Good &lt;value&gt;")
}

func TestTelegramError(t *testing.T) {
	tg := &Telegram{bot: &fakeBot{err: errors.New("forbidden")}, chatID: 1}
	assert.Error(t, tg.ProposalReceived(context.Background(), sampleEvent()))
	assert.Equal(t, "telegram", tg.Name())
}

// stalledTelegram answers getMe and never answers sendMessage
func stalledTelegram(t *testing.T) *httptest.Server {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/getMe") {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"relay","username":"relay_bot"}}`))
			return
		}
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })
	return srv
}

func TestTelegramClientTimeout(t *testing.T) {
	srv := stalledTelegram(t)
	tg, err := newTelegram("token", srv.URL+"/bot%s/%s", 42, &http.Client{Timeout: 200 * time.Millisecond})
	require.NoError(t, err)

	started := time.Now()
	assert.Error(t, tg.ProposalReceived(context.Background(), sampleEvent()))
	assert.Less(t, time.Since(started), 5*time.Second)
}

func TestTelegramHonoursContext(t *testing.T) {
	srv := stalledTelegram(t)
	tg, err := newTelegram("token", srv.URL+"/bot%s/%s", 42, &http.Client{Timeout: time.Minute})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	started := time.Now()
	err = tg.ProposalReceived(ctx, sampleEvent())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(started), 5*time.Second)
}

func TestNATSPublishesJSON(t *testing.T) {
	pub := &fakePublisher{}
	n := &NATS{conn: pub, subject: "rfp.proposal.received"}
	event := sampleEvent()

	require.NoError(t, n.ProposalReceived(context.Background(), event))
	assert.Equal(t, "rfp.proposal.received", pub.subject)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(pub.data, &decoded))
	assert.Equal(t, event.RFPID.String(), decoded["rfp_id"])
	assert.Equal(t, 82.0, decoded["ai_score"])

	pub.err = errors.New("no responders")
	assert.Error(t, n.ProposalReceived(context.Background(), event))
}
