package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

type publisher interface {
	Publish(subject string, data []byte) error
}

// NATS publishes proposal events as JSON
type NATS struct {
	conn    publisher
	subject string
}

// NewNATS connects to url. Close the returned connection on shutdown.
func NewNATS(url, subject string) (*NATS, *nats.Conn, error) {
	conn, err := nats.Connect(url, nats.Name("rfp-relay"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATS{conn: conn, subject: subject}, conn, nil
}

func (n *NATS) Name() string { return "nats" }

func (n *NATS) ProposalReceived(ctx context.Context, event ProposalEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode proposal event: %w", err)
	}
	if err := n.conn.Publish(n.subject, data); err != nil {
		return fmt.Errorf("failed to publish proposal event: %w", err)
	}
	return nil
}
