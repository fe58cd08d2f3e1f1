package migrations

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/laytan/transcripts/internal/srt"
	"github.com/laytan/transcripts/internal/store"
	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigration(upStemSearchable, downStemSearchable)
}

type pending struct {
	id         string
	searchable string
}

// upStemSearchable fills the searchable column of transcripts stored before it existed.
func upStemSearchable(tx *sql.Tx) error {
	rows, err := tx.Query("SELECT id, body FROM transcripts WHERE searchable = ''")
	if err != nil {
		return fmt.Errorf("retrieving transcripts: %w", err)
	}
	defer rows.Close()

	// Collect first, some drivers can't execute while rows are open on the same tx.
	var updates []pending
	var id, body string
	for rows.Next() {
		if err := rows.Scan(&id, &body); err != nil {
			return fmt.Errorf("scanning transcript row: %w", err)
		}

		cues, err := srt.Parse(strings.NewReader(body))
		if err != nil {
			return fmt.Errorf("parsing transcript %q: %w", id, err)
		}

		updates = append(updates, pending{id: id, searchable: store.Searchable(cues)})
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating transcripts: %w", err)
	}
	rows.Close()

	for _, u := range updates {
		if _, err := tx.Exec("UPDATE transcripts SET searchable = $1 WHERE id = $2", u.searchable, u.id); err != nil {
			return fmt.Errorf("updating transcript %q: %w", u.id, err)
		}
	}

	return nil
}

func downStemSearchable(tx *sql.Tx) error {
	// The column is dropped by the previous migration's down.
	return nil
}
