package mailbox

import (
	"bytes"
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/emersion/go-imap/backend/memory"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-imap/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfp-relay-go/internal/config"
)

func startIMAPServer(t *testing.T) config.IMAPConfig {
	t.Helper()

	s := server.New(memory.New())
	s.AllowInsecureAuth = true

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go s.Serve(l)
	t.Cleanup(func() { s.Close() })

	host, port, err := net.SplitHostPort(l.Addr().String())
	require.NoError(t, err)
	p, err := strconv.Atoi(port)
	require.NoError(t, err)

	return config.IMAPConfig{Host: host, Port: p, Username: "username", Password: "password", Mailbox: "INBOX"}
}

func appendMessage(t *testing.T, cfg config.IMAPConfig, raw string) {
	t.Helper()

	c, err := client.Dial(net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)))
	require.NoError(t, err)
	defer c.Logout()
	require.NoError(t, c.Login(cfg.Username, cfg.Password))
	require.NoError(t, c.Append(cfg.Mailbox, nil, time.Now(), bytes.NewBuffer(crlf(raw))))
}

func TestIMAPFetchCandidates(t *testing.T) {
	cfg := startIMAPServer(t)
	appendMessage(t, cfg, multipartReply)

	f := NewIMAPFetcher(cfg, 10*time.Second)
	raws, err := f.FetchCandidates(context.Background(), Criteria{
		Since:         time.Now().Add(-7 * 24 * time.Hour),
		SubjectMarker: "RFP",
	})
	require.NoError(t, err)
	require.Len(t, raws, 1)
	assert.NotEmpty(t, raws[0].Ref)

	msg, err := Parse(raws[0])
	require.NoError(t, err)
	assert.Equal(t, "reply-1@acme.example", msg.ID)
}

func TestIMAPFetchLoginFailure(t *testing.T) {
	cfg := startIMAPServer(t)
	cfg.Password = "wrong"

	_, err := NewIMAPFetcher(cfg, 5*time.Second).FetchCandidates(context.Background(), Criteria{Since: time.Now()})
	assert.Error(t, err)
}
