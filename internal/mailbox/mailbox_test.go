package mailbox

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func crlf(s string) []byte {
	return []byte(strings.ReplaceAll(s, "\n", "\r\n"))
}

const multipartReply = `From: "Acme Sales" <sales@acme.example>
To: procurement@example.com
Subject: Re: RFP: Office laptops
Message-ID: <reply-1@acme.example>
Date: Mon, 02 Mar 2026 10:00:00 +0000
MIME-Version: 1.0
Content-Type: multipart/alternative; boundary="b1"

--b1
Content-Type: text/plain; charset=utf-8

We can deliver 20 laptops for $48,000.
--b1
Content-Type: text/html; charset=utf-8

<p>We can deliver <b>20 laptops</b> for $48,000.</p>
--b1--
`

func TestParseMultipart(t *testing.T) {
	msg, err := Parse(RawMessage{Ref: "1", Data: crlf(multipartReply)})
	require.NoError(t, err)

	assert.Equal(t, "reply-1@acme.example", msg.ID)
	assert.Equal(t, "sales@acme.example", msg.From)
	assert.Equal(t, "Re: RFP: Office laptops", msg.Subject)
	assert.Contains(t, msg.Text, "20 laptops for $48,000")
	assert.Contains(t, msg.HTML, "<b>20 laptops</b>")
	assert.Equal(t, msg.Text, msg.Body())
	assert.Equal(t, 2026, msg.ReceivedAt.Year())
}

func TestParseHTMLOnly(t *testing.T) {
	raw := `From: sales@acme.example
Subject: RFP reply
Message-ID: <html-only@acme.example>
Content-Type: text/html; charset=utf-8

<div>Price: 100</div>
`
	received := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	msg, err := Parse(RawMessage{Data: crlf(raw), ReceivedAt: received})
	require.NoError(t, err)

	assert.Empty(t, msg.Text)
	assert.Contains(t, msg.Body(), "<div>Price: 100</div>")
	assert.Equal(t, received, msg.ReceivedAt)
}

func TestParseMissingHeaders(t *testing.T) {
	raw := `Subject: RFP without sender

hello
`
	msg, err := Parse(RawMessage{Data: crlf(raw)})
	require.NoError(t, err)
	assert.Empty(t, msg.ID)
	assert.Empty(t, msg.From)
	assert.Equal(t, "hello\r\n", msg.Text)
}

func TestGmailQuery(t *testing.T) {
	now := time.Date(2026, 3, 8, 12, 0, 0, 0, time.UTC)
	q := Query(Criteria{Since: now.Add(-7 * 24 * time.Hour), SubjectMarker: "RFP"}, now)
	assert.Equal(t, `is:unread newer_than:7d subject:"RFP"`, q)

	q = Query(Criteria{Since: now}, now)
	assert.Equal(t, "is:unread newer_than:1d", q)
}
