package mailer

import (
	"context"
	"io"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"rfp-relay-go/internal/config"
	"rfp-relay-go/internal/mailbox"
	"rfp-relay-go/internal/models"
)

func sampleRFP() *models.RFP {
	budget := 50000.0
	deadline := time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC)
	return &models.RFP{
		Title:            "Office laptops",
		Description:      "Laptops for the <sales> team",
		Budget:           &budget,
		DeliveryDeadline: &deadline,
		PaymentTerms:     "Net 30",
		Requirements: datatypes.NewJSONType(models.Requirements{Items: []models.RequirementItem{
			{Name: "Laptop", Quantity: 20, Specifications: "16GB RAM"},
			{Name: "Monitor", Quantity: 2.5, Specifications: "27 inch"},
		}}),
	}
}

func TestInvitation(t *testing.T) {
	vendor := &models.Vendor{Name: "Acme", Email: "sales@acme.example", ContactPerson: "Jane"}

	env, err := Invitation(sampleRFP(), vendor, "")
	require.NoError(t, err)

	assert.Equal(t, "RFP: Office laptops", env.Subject)
	assert.Equal(t, "sales@acme.example", env.To)

	assert.Contains(t, env.Text, "Dear Jane,")
	assert.Contains(t, env.Text, "1. Laptop (Quantity: 20)")
	assert.Contains(t, env.Text, "2. Monitor (Quantity: 2.5)")
	assert.Contains(t, env.Text, "Budget: $50,000")
	assert.Contains(t, env.Text, "Delivery Deadline: April 15, 2026")
	assert.Contains(t, env.Text, "Payment Terms: Net 30")
	assert.NotContains(t, env.Text, "Warranty Required")
	assert.Contains(t, env.Text, "Procurement Team")

	assert.Contains(t, env.HTML, "Laptops for the &lt;sales&gt; team")
	assert.Contains(t, env.HTML, "<strong>1. Laptop</strong>")
}

func TestInvitationGreetsByNameWithoutContact(t *testing.T) {
	rfp := &models.RFP{Title: "Chairs"}
	env, err := Invitation(rfp, &models.Vendor{Name: "Acme", Email: "a@acme.example"}, "Buying Office")
	require.NoError(t, err)
	assert.Contains(t, env.Text, "Dear Acme,")
	assert.Contains(t, env.Text, "Buying Office")
	assert.NotContains(t, env.Text, "Budget:")
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "$50,000", FormatMoney(50000))
	assert.Equal(t, "$1,234,567.89", FormatMoney(1234567.89))
	assert.Equal(t, "$999", FormatMoney(999))
	assert.Equal(t, "-$1,000.50", FormatMoney(-1000.5))
}

func TestBuildRoundTrip(t *testing.T) {
	env := &Envelope{To: "sales@acme.example", ToName: "Acme", Subject: "RFP: Chairs", Text: "plain body", HTML: "<p>html body</p>"}

	raw, err := Build(From{Address: "buyer@example.com", Name: "Buyer"}, env, time.Now())
	require.NoError(t, err)

	msg, err := mailbox.Parse(mailbox.RawMessage{Data: raw})
	require.NoError(t, err)
	assert.Equal(t, "buyer@example.com", msg.From)
	assert.Equal(t, "RFP: Chairs", msg.Subject)
	assert.Contains(t, msg.ID, "@example.com")
	assert.Contains(t, msg.Text, "plain body")
	assert.Contains(t, msg.HTML, "<p>html body</p>")
}

type captured struct {
	mu   sync.Mutex
	from string
	to   []string
	data []byte
}

type backend struct{ got *captured }

func (b *backend) NewSession(*smtp.Conn) (smtp.Session, error) {
	return &session{got: b.got}, nil
}

type session struct{ got *captured }

func (s *session) Mail(from string, _ *smtp.MailOptions) error {
	s.got.mu.Lock()
	defer s.got.mu.Unlock()
	s.got.from = from
	return nil
}

func (s *session) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.got.mu.Lock()
	defer s.got.mu.Unlock()
	s.got.to = append(s.got.to, to)
	return nil
}

func (s *session) Data(r io.Reader) error {
	data, err := io.ReadAll(r)
	s.got.mu.Lock()
	defer s.got.mu.Unlock()
	s.got.data = data
	return err
}

func (s *session) Reset()        {}
func (s *session) Logout() error { return nil }

func TestSMTPSender(t *testing.T) {
	got := &captured{}
	srv := smtp.NewServer(&backend{got: got})
	srv.Domain = "localhost"
	srv.AllowInsecureAuth = true

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go srv.Serve(l)
	t.Cleanup(func() { srv.Close() })

	host, port, _ := net.SplitHostPort(l.Addr().String())
	p, _ := strconv.Atoi(port)

	sender := NewSMTPSender(config.SMTPConfig{Host: host, Port: p, TLSMode: "none", Timeout: 5 * time.Second},
		From{Address: "buyer@example.com", Name: "Buyer"})

	env, err := Invitation(sampleRFP(), &models.Vendor{Name: "Acme", Email: "sales@acme.example"}, "")
	require.NoError(t, err)
	require.NoError(t, sender.Send(context.Background(), env))

	got.mu.Lock()
	defer got.mu.Unlock()
	assert.Equal(t, "buyer@example.com", got.from)
	assert.Equal(t, []string{"sales@acme.example"}, got.to)

	msg, err := mailbox.Parse(mailbox.RawMessage{Data: got.data})
	require.NoError(t, err)
	assert.Equal(t, "RFP: Office laptops", msg.Subject)
}

func TestSMTPSenderSilentServerTimesOut(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })

	var conns []net.Conn
	var mu sync.Mutex
	go func() {
		for {
			c, err := l.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, c)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			c.Close()
		}
	})

	host, port, _ := net.SplitHostPort(l.Addr().String())
	p, _ := strconv.Atoi(port)
	sender := NewSMTPSender(config.SMTPConfig{Host: host, Port: p, TLSMode: "starttls", Timeout: 200 * time.Millisecond},
		From{Address: "buyer@example.com"})

	env, err := Invitation(sampleRFP(), &models.Vendor{Name: "Acme", Email: "sales@acme.example"}, "")
	require.NoError(t, err)

	started := time.Now()
	err = sender.Send(context.Background(), env)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(started), 5*time.Second)
}
