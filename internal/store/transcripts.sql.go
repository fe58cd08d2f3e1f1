package store

import (
	"context"
)

const transcriptColumns = "id, component_id, video_id, file_name, origin, body, searchable, revision, created_at, updated_at"

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTranscript(row scanner, i *Transcript) error {
	return row.Scan(
		&i.ID,
		&i.ComponentID,
		&i.VideoID,
		&i.FileName,
		&i.Origin,
		&i.Body,
		&i.Searchable,
		&i.Revision,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
}

const upsertTranscript = `INSERT INTO transcripts (id, component_id, video_id, file_name, origin, body, searchable, revision)
VALUES ($1, $2, $3, $4, $5, $6, $7, (
    SELECT COALESCE(MAX(revision), 0) + 1 FROM transcripts WHERE component_id = $2 AND video_id = $3
))
ON CONFLICT (component_id, video_id, file_name) DO UPDATE SET
    origin = excluded.origin,
    body = excluded.body,
    searchable = excluded.searchable,
    revision = excluded.revision,
    updated_at = CURRENT_TIMESTAMP
RETURNING ` + transcriptColumns

type UpsertTranscriptParams struct {
	ID          string
	ComponentID string
	VideoID     string
	FileName    string
	Origin      string
	Body        string
	Searchable  string
}

// UpsertTranscript creates the transcript, or overwrites the one with the same component, video and file name.
// When overwriting, the existing ID is kept. Either way it becomes the latest revision of the video.
func (q *Queries) UpsertTranscript(ctx context.Context, arg UpsertTranscriptParams) (Transcript, error) {
	row := q.db.QueryRowContext(ctx, upsertTranscript,
		arg.ID,
		arg.ComponentID,
		arg.VideoID,
		arg.FileName,
		arg.Origin,
		arg.Body,
		arg.Searchable,
	)
	var i Transcript
	err := scanTranscript(row, &i)
	return i, err
}

const transcript = `SELECT ` + transcriptColumns + ` FROM transcripts WHERE id = $1`

func (q *Queries) Transcript(ctx context.Context, id string) (Transcript, error) {
	row := q.db.QueryRowContext(ctx, transcript, id)
	var i Transcript
	err := scanTranscript(row, &i)
	return i, err
}

const transcriptsForVideo = `SELECT ` + transcriptColumns + ` FROM transcripts
WHERE component_id = $1 AND video_id = $2
ORDER BY revision, file_name`

type TranscriptsForVideoParams struct {
	ComponentID string
	VideoID     string
}

func (q *Queries) TranscriptsForVideo(ctx context.Context, arg TranscriptsForVideoParams) ([]Transcript, error) {
	return q.list(ctx, transcriptsForVideo, arg.ComponentID, arg.VideoID)
}

const transcriptsForComponent = `SELECT ` + transcriptColumns + ` FROM transcripts
WHERE component_id = $1
ORDER BY video_id, revision, file_name`

func (q *Queries) TranscriptsForComponent(ctx context.Context, componentID string) ([]Transcript, error) {
	return q.list(ctx, transcriptsForComponent, componentID)
}

const deleteVideoTranscripts = `DELETE FROM transcripts WHERE component_id = $1 AND video_id = $2`

type DeleteVideoTranscriptsParams struct {
	ComponentID string
	VideoID     string
}

func (q *Queries) DeleteVideoTranscripts(ctx context.Context, arg DeleteVideoTranscriptsParams) error {
	_, err := q.db.ExecContext(ctx, deleteVideoTranscripts, arg.ComponentID, arg.VideoID)
	return err
}

func (q *Queries) list(ctx context.Context, query string, args ...interface{}) ([]Transcript, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Transcript
	for rows.Next() {
		var i Transcript
		if err := scanTranscript(rows, &i); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
