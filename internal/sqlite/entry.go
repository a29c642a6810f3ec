package sqlite

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mesh-intelligence/docmodel/pkg/command"
)

// Entry is one journaled stack operation.
type Entry struct {
	ID          string         `json:"entry_id"`
	DocumentID  string         `json:"document_id"`
	Seq         int64          `json:"seq"`
	Op          command.Op     `json:"op"`
	CommandType string         `json:"command_type"`
	Payload     map[string]any `json:"payload"`
	CreatedAt   time.Time      `json:"created_at"`
}

// DocumentSummary counts the entries journaled for one document.
type DocumentSummary struct {
	DocumentID string    `json:"document_id"`
	Entries    int       `json:"entries"`
	LastAt     time.Time `json:"last_at"`
}

func (e Entry) validate() error {
	if e.DocumentID == "" {
		return fmt.Errorf("%w: empty document id", ErrInvalidEntry)
	}
	switch e.Op {
	case command.OpExecute, command.OpUndo, command.OpRedo:
	default:
		return fmt.Errorf("%w: unknown op %q", ErrInvalidEntry, e.Op)
	}
	if e.Op == command.OpExecute && e.Payload == nil {
		return fmt.Errorf("%w: execute without payload", ErrInvalidEntry)
	}
	return nil
}

func (e Entry) record() (json.RawMessage, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encoding entry %s: %w", e.ID, err)
	}
	return b, nil
}

// scanEntry reads a row in entryColumns order.
func scanEntry(scan func(dest ...any) error) (Entry, error) {
	var (
		e         Entry
		op        string
		payload   string
		createdAt string
	)
	if err := scan(&e.ID, &e.DocumentID, &e.Seq, &op, &e.CommandType, &payload, &createdAt); err != nil {
		return Entry{}, err
	}
	e.Op = command.Op(op)
	if err := json.Unmarshal([]byte(payload), &e.Payload); err != nil {
		return Entry{}, fmt.Errorf("decoding payload of %s: %w", e.ID, err)
	}
	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return Entry{}, fmt.Errorf("parsing created_at of %s: %w", e.ID, err)
	}
	e.CreatedAt = t
	return e, nil
}
