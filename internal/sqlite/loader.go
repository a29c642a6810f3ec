// This file implements JSONL loading for startup.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
)

// loadJSONL reads commands.jsonl from dataDir and inserts its entries into
// the index. Loading is transactional: all succeed or the index stays
// empty. Malformed lines and records violating constraints are skipped;
// unknown fields are ignored.
func loadJSONL(db *sql.DB, dataDir string) (int, error) {
	records, err := readJSONL(filepath.Join(dataDir, commandsJSONL))
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", commandsJSONL, err)
	}
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning load transaction: %w", err)
	}
	defer tx.Rollback()

	n, err := insertRecords(tx, "entries", entryColumns, records)
	if err != nil {
		return 0, fmt.Errorf("loading %s: %w", commandsJSONL, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing load transaction: %w", err)
	}
	return n, nil
}

// insertRecords inserts parsed JSONL records into table. Only the listed
// columns are extracted; object values are re-serialized as JSON text.
// Returns the number of rows inserted.
func insertRecords(tx *sql.Tx, table string, columns []string, records []json.RawMessage) (int, error) {
	placeholders := make([]string, len(columns))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	insertSQL := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		table,
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
	)

	stmt, err := tx.Prepare(insertSQL)
	if err != nil {
		return 0, fmt.Errorf("preparing insert for %s: %w", table, err)
	}
	defer stmt.Close()

	inserted := 0
	for _, rec := range records {
		var obj map[string]any
		if err := json.Unmarshal(rec, &obj); err != nil {
			continue
		}

		args := make([]any, len(columns))
		for i, col := range columns {
			val, ok := obj[col]
			if !ok {
				args[i] = nil
				continue
			}
			switch v := val.(type) {
			case map[string]any, []any:
				b, err := json.Marshal(v)
				if err != nil {
					args[i] = nil
					continue
				}
				args[i] = string(b)
			default:
				args[i] = val
			}
		}

		if _, err := stmt.Exec(args...); err != nil {
			continue
		}
		inserted++
	}
	return inserted, nil
}
