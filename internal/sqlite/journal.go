// Package sqlite implements the command journal: every operation a
// document's stack applies is appended to commands.jsonl, the source of
// truth, and indexed in SQLite for per-document queries and replay.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/docmodel/pkg/command"
)

// Sync strategies for JSONL persistence.
const (
	// SyncImmediate appends to commands.jsonl on every entry.
	SyncImmediate = "immediate"
	// SyncOnClose queues entries and writes them on Detach.
	SyncOnClose = "on_close"
)

// indexFile is rebuilt from commands.jsonl on every Attach.
const indexFile = "journal.db"

// Journal errors.
var (
	ErrDetached            = errors.New("journal is not attached")
	ErrAlreadyAttached     = errors.New("journal is already attached")
	ErrInvalidEntry        = errors.New("invalid journal entry")
	ErrSyncStrategyUnknown = errors.New("unknown sync strategy")
)

// Config configures a Journal.
type Config struct {
	DataDir string `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`
	// SyncStrategy is SyncImmediate (default) or SyncOnClose.
	SyncStrategy string `json:"sync_strategy" yaml:"sync_strategy" mapstructure:"sync_strategy"`
	// Registry decodes payloads on replay; defaults to
	// command.DefaultRegistry().
	Registry *command.Registry `json:"-" yaml:"-" mapstructure:"-"`
	Logger   *slog.Logger      `json:"-" yaml:"-" mapstructure:"-"`
}

// Validate checks the sync strategy.
func (c Config) Validate() error {
	switch c.SyncStrategy {
	case "", SyncImmediate, SyncOnClose:
		return nil
	}
	return fmt.Errorf("%w: %s", ErrSyncStrategyUnknown, c.SyncStrategy)
}

// Journal records stack operations per document. It is safe for
// concurrent use.
type Journal struct {
	mu       sync.RWMutex
	attached bool
	config   Config
	db       *sql.DB
	logger   *slog.Logger
	registry *command.Registry

	pending   []json.RawMessage
	replaying map[string]bool
}

// NewJournal returns a detached journal; call Attach to open it.
func NewJournal() *Journal {
	return &Journal{replaying: make(map[string]bool)}
}

// Attach creates DataDir if needed, rebuilds the SQLite index and loads
// commands.jsonl into it.
func (j *Journal) Attach(cfg Config) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.attached {
		return ErrAlreadyAttached
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "."
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Registry == nil {
		cfg.Registry = command.DefaultRegistry()
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	dbPath := filepath.Join(cfg.DataDir, indexFile)
	_ = os.Remove(dbPath)
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("opening index: %w", err)
	}
	db.SetMaxOpenConns(1)
	for _, ddl := range schemaDDL {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	if err := initJSONL(cfg.DataDir); err != nil {
		db.Close()
		return err
	}
	n, err := loadJSONL(db, cfg.DataDir)
	if err != nil {
		db.Close()
		return fmt.Errorf("load JSONL: %w", err)
	}

	j.db = db
	j.config = cfg
	j.logger = cfg.Logger
	j.registry = cfg.Registry
	j.pending = nil
	j.attached = true
	j.logger.Debug("journal attached",
		slog.String("data_dir", cfg.DataDir),
		slog.Int("entries", n))
	return nil
}

// Detach flushes queued entries and closes the index. Detach is
// idempotent.
func (j *Journal) Detach() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.attached {
		return nil
	}
	if err := j.flushLocked(); err != nil {
		return fmt.Errorf("flush pending entries: %w", err)
	}
	if err := j.db.Close(); err != nil {
		return err
	}
	j.db = nil
	j.attached = false
	return nil
}

// Append journals one entry. ID, Seq and CreatedAt are assigned when zero.
// Returns the stored entry.
func (j *Journal) Append(e Entry) (Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.attached {
		return Entry{}, ErrDetached
	}
	if err := e.validate(); err != nil {
		return Entry{}, err
	}
	if e.ID == "" {
		e.ID = generateUUID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if e.Seq == 0 {
		seq, err := j.nextSeqLocked(e.DocumentID)
		if err != nil {
			return Entry{}, err
		}
		e.Seq = seq
	}

	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return Entry{}, fmt.Errorf("encoding payload: %w", err)
	}
	rec, err := e.record()
	if err != nil {
		return Entry{}, err
	}

	tx, err := j.db.Begin()
	if err != nil {
		return Entry{}, fmt.Errorf("beginning append: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		"INSERT INTO entries ("+strings.Join(entryColumns, ", ")+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		e.ID, e.DocumentID, e.Seq, string(e.Op), e.CommandType, string(payload),
		e.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Entry{}, fmt.Errorf("indexing entry: %w", err)
	}

	if j.config.SyncStrategy == SyncOnClose {
		j.pending = append(j.pending, rec)
	} else if err := appendJSONL(filepath.Join(j.config.DataDir, commandsJSONL), rec); err != nil {
		return Entry{}, err
	}
	if err := tx.Commit(); err != nil {
		return Entry{}, fmt.Errorf("committing append: %w", err)
	}
	return e, nil
}

// Entries returns the entries of docID in sequence order.
func (j *Journal) Entries(docID string) ([]Entry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if !j.attached {
		return nil, ErrDetached
	}
	rows, err := j.db.Query(
		"SELECT "+strings.Join(entryColumns, ", ")+" FROM entries WHERE document_id = ? ORDER BY seq",
		docID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Documents summarizes every journaled document, ordered by id.
func (j *Journal) Documents() ([]DocumentSummary, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if !j.attached {
		return nil, ErrDetached
	}
	rows, err := j.db.Query(
		"SELECT document_id, COUNT(*), MAX(created_at) FROM entries GROUP BY document_id ORDER BY document_id",
	)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var out []DocumentSummary
	for rows.Next() {
		var (
			s    DocumentSummary
			last string
		)
		if err := rows.Scan(&s.DocumentID, &s.Entries, &last); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339Nano, last); err == nil {
			s.LastAt = t
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Observer returns a stack observer journaling docID. Volatile commands
// and operations applied during Replay of docID are not recorded. Append
// failures are logged.
func (j *Journal) Observer(docID string) command.Observer {
	return command.ObserverFunc(func(op command.Op, cmd command.Command) {
		if cmd == nil || cmd.IsVolatile() || j.isReplaying(docID) {
			return
		}
		_, err := j.Append(Entry{
			DocumentID:  docID,
			Op:          op,
			CommandType: cmd.TypeName(),
			Payload:     cmd.ToObject(),
		})
		if err != nil {
			j.log().Warn("journal append failed",
				slog.String("document", docID),
				slog.String("op", string(op)),
				slog.String("type", cmd.TypeName()),
				slog.String("error", err.Error()))
		}
	})
}

// Replay re-applies the entries of docID to stack in order. Payloads that
// do not decode against ctx are skipped, and so are the undo and redo
// entries that later refer to them. Command failures are collected and
// returned together.
func (j *Journal) Replay(docID string, stack *command.Stack, ctx command.Context) error {
	entries, err := j.Entries(docID)
	if err != nil {
		return err
	}

	j.setReplaying(docID, true)
	defer j.setReplaying(docID, false)

	history := command.NewHistory(stack)
	defer history.Close()

	var result *multierror.Error
	for _, e := range entries {
		var cmd command.Command
		if e.Op == command.OpExecute {
			c, ok := j.registry.Decode(e.Payload, ctx)
			if !ok {
				j.log().Debug("replay skipped entry",
					slog.String("document", docID),
					slog.Int64("seq", e.Seq),
					slog.String("type", e.CommandType))
			}
			cmd = c
		}
		if _, err := history.Apply(e.Op, cmd); err != nil {
			result = multierror.Append(result, fmt.Errorf("entry %d (%s %s): %w", e.Seq, e.Op, e.CommandType, err))
		}
	}
	return result.ErrorOrNil()
}

func (j *Journal) nextSeqLocked(docID string) (int64, error) {
	var seq sql.NullInt64
	if err := j.db.QueryRow("SELECT MAX(seq) FROM entries WHERE document_id = ?", docID).Scan(&seq); err != nil {
		return 0, fmt.Errorf("reading sequence: %w", err)
	}
	return seq.Int64 + 1, nil
}

// flushLocked appends queued entries. The caller must hold j.mu.
func (j *Journal) flushLocked() error {
	if len(j.pending) == 0 {
		return nil
	}
	if err := appendJSONL(filepath.Join(j.config.DataDir, commandsJSONL), j.pending...); err != nil {
		return err
	}
	j.pending = nil
	return nil
}

// Compact rewrites commands.jsonl atomically from the index, dropping
// lines that were skipped on load.
func (j *Journal) Compact() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.attached {
		return ErrDetached
	}
	if err := j.flushLocked(); err != nil {
		return err
	}
	rows, err := j.db.Query("SELECT " + strings.Join(entryColumns, ", ") + " FROM entries ORDER BY rowid")
	if err != nil {
		return fmt.Errorf("querying entries: %w", err)
	}
	defer rows.Close()

	var records []json.RawMessage
	for rows.Next() {
		e, err := scanEntry(rows.Scan)
		if err != nil {
			return err
		}
		rec, err := e.record()
		if err != nil {
			return err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	return writeJSONL(filepath.Join(j.config.DataDir, commandsJSONL), records)
}

func (j *Journal) isReplaying(docID string) bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.replaying[docID]
}

func (j *Journal) setReplaying(docID string, on bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if on {
		j.replaying[docID] = true
	} else {
		delete(j.replaying, docID)
	}
}

func (j *Journal) log() *slog.Logger {
	if j.logger == nil {
		return slog.Default()
	}
	return j.logger
}

// generateUUID generates a UUID v7 for entry ids.
func generateUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
