package sqlite

// Schema DDL for the journal index.
const (
	createEntries = `CREATE TABLE entries (
    entry_id TEXT PRIMARY KEY,
    document_id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    op TEXT NOT NULL,
    command_type TEXT NOT NULL,
    payload TEXT NOT NULL,
    created_at TEXT NOT NULL
);`

	idxEntriesDocumentSeq = `CREATE UNIQUE INDEX idx_entries_document_seq ON entries(document_id, seq);`
	idxEntriesType        = `CREATE INDEX idx_entries_type ON entries(command_type);`
)

// schemaDDL lists all statements run on a fresh database, in order.
var schemaDDL = []string{
	createEntries,
	idxEntriesDocumentSeq,
	idxEntriesType,
}

// entryColumns lists the entries columns in insert order.
var entryColumns = []string{
	"entry_id", "document_id", "seq", "op", "command_type", "payload", "created_at",
}
