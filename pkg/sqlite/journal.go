// Package sqlite provides the public API for the SQLite command journal.
// This package exposes the factory function and the types needed to use
// the journal while keeping implementation details internal.
package sqlite

import (
	"github.com/mesh-intelligence/docmodel/internal/sqlite"
)

// Journal, Config and Entry are the journal's public types.
type (
	Journal         = sqlite.Journal
	Config          = sqlite.Config
	Entry           = sqlite.Entry
	DocumentSummary = sqlite.DocumentSummary
)

// Sync strategies.
const (
	SyncImmediate = sqlite.SyncImmediate
	SyncOnClose   = sqlite.SyncOnClose
)

// NewJournal creates a new journal instance.
// The journal is not attached; call Attach with a Config to open it.
//
// Example:
//
//	j := sqlite.NewJournal()
//	err := j.Attach(sqlite.Config{DataDir: ".docmodel"})
//	defer j.Detach()
//	stack.AddObserver(j.Observer(doc.ID()))
func NewJournal() *Journal {
	return sqlite.NewJournal()
}
