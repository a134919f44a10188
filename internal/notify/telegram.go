package notify

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"rfp-relay-go/internal/mailer"
)

type botSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts proposal alerts to a chat
type Telegram struct {
	bot    botSender
	chatID int64
}

const telegramTimeout = 10 * time.Second

func NewTelegram(token string, chatID int64) (*Telegram, error) {
	return newTelegram(token, tgbotapi.APIEndpoint, chatID, &http.Client{Timeout: telegramTimeout})
}

func newTelegram(token, endpoint string, chatID int64, client *http.Client) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram bot: %w", err)
	}
	return &Telegram{bot: bot, chatID: chatID}, nil
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) ProposalReceived(ctx context.Context, event ProposalEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(t.chatID, formatProposal(event))
	msg.ParseMode = tgbotapi.ModeHTML

	// Send takes no context; the client timeout bounds the goroutine
	errc := make(chan error, 1)
	go func() {
		_, err := t.bot.Send(msg)
		errc <- err
	}()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func formatProposal(e ProposalEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📨 <b>New proposal</b> for <b>%s</b>\n", html.EscapeString(e.RFPTitle))
	fmt.Fprintf(&b, "🏢 %s (%s)\n", html.EscapeString(e.VendorName), html.EscapeString(e.VendorEmail))
	if e.TotalPrice != nil {
		fmt.Fprintf(&b, "💰 %s\n", mailer.FormatMoney(*e.TotalPrice))
	}
	fmt.Fprintf(&b, "⭐ Score: %.0f/100", e.Score)
	if e.Summary != "" {
		fmt.Fprintf(&b, "\n\n%s", html.EscapeString(e.Summary))
	}
	return b.String()
}
