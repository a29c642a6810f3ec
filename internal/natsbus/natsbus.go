// Package natsbus shares document command streams between processes over
// NATS. A Publisher observes a local stack and publishes every applied
// operation; a Subscriber decodes operations published by other peers and
// applies them to its own stack.
package natsbus

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/mesh-intelligence/docmodel/pkg/command"
)

// SubjectPrefix precedes the document id in command subjects.
const SubjectPrefix = "docmodel.commands."

// AllSubjects matches every document's command subject.
const AllSubjects = SubjectPrefix + ">"

// Bus errors.
var (
	ErrNoConn     = errors.New("no NATS connection")
	ErrBadSubject = errors.New("not a command subject")
)

// Subject returns the subject carrying docID's commands.
func Subject(docID string) string { return SubjectPrefix + docID }

// DocumentID extracts the document id from a command subject.
func DocumentID(subject string) (string, error) {
	id, ok := strings.CutPrefix(subject, SubjectPrefix)
	if !ok || id == "" {
		return "", fmt.Errorf("%w: %s", ErrBadSubject, subject)
	}
	return id, nil
}

// Envelope is the wire form of one stack operation.
type Envelope struct {
	DocumentID string         `json:"document_id"`
	Origin     string         `json:"origin"`
	Op         command.Op     `json:"op"`
	Type       string         `json:"command_type"`
	Payload    map[string]any `json:"payload,omitempty"`
	SentAt     time.Time      `json:"sent_at"`
}

// Encode marshals e.
func (e Envelope) Encode() ([]byte, error) { return json.Marshal(e) }

// DecodeEnvelope unmarshals a message body.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return Envelope{}, fmt.Errorf("decoding envelope: %w", err)
	}
	return e, nil
}

// Conn is the part of a NATS connection the bus uses.
type Conn interface {
	Publish(subject string, data []byte) error
	Subscribe(subject string, handler nats.MsgHandler) (Subscription, error)
}

// Subscription is an active subscription.
type Subscription interface {
	Unsubscribe() error
}

// natsConn adapts *nats.Conn to Conn.
type natsConn struct{ nc *nats.Conn }

func (c natsConn) Publish(subject string, data []byte) error { return c.nc.Publish(subject, data) }

func (c natsConn) Subscribe(subject string, handler nats.MsgHandler) (Subscription, error) {
	sub, err := c.nc.Subscribe(subject, handler)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// Wrap adapts an established connection.
func Wrap(nc *nats.Conn) Conn { return natsConn{nc: nc} }

// Connect dials url and returns the adapted connection and a close function.
func Connect(url, name string) (Conn, func(), error) {
	nc, err := nats.Connect(url, nats.Name(name), nats.MaxReconnects(-1))
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to %s: %w", url, err)
	}
	return Wrap(nc), func() { nc.Drain() }, nil
}
