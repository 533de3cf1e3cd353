package audit

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

// DefaultSubject is the NATS subject audit records are published on.
const DefaultSubject = "agentd.audit"

// NATSSink publishes audit records to a NATS subject so external
// collaborators can consume the audit stream.
type NATSSink struct {
	conn    *nats.Conn
	subject string
}

// NewNATSSink creates a sink on the given connection. An empty subject
// uses DefaultSubject.
func NewNATSSink(conn *nats.Conn, subject string) *NATSSink {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSSink{conn: conn, subject: subject}
}

// Publish marshals the record and publishes it.
func (s *NATSSink) Publish(rec Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling audit record: %w", err)
	}
	if err := s.conn.Publish(s.subject, payload); err != nil {
		return fmt.Errorf("publishing audit record: %w", err)
	}
	return nil
}
