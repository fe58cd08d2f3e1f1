package store

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/laytan/transcripts/internal/srt"
	"github.com/laytan/transcripts/internal/stem"
)

// Searchable builds the searchable text of a transcript body, each cue is prefixed with ~<start seconds>~.
func Searchable(cues []srt.Cue) string {
	b := make([]byte, 0, 64*len(cues))
	for _, c := range cues {
		b = append(b, fmt.Sprintf("~%d~", int(c.Start/time.Second))...)
		b = append(b, stem.Line(c.Text)...)
	}
	return string(b)
}

// SaveCues formats the cues and upserts them for the given component, video and file name.
func (q *Queries) SaveCues(
	ctx context.Context,
	componentID, videoID, fileName string,
	origin Origin,
	cues []srt.Cue,
) (Transcript, error) {
	return q.UpsertTranscript(ctx, UpsertTranscriptParams{
		ID:          uuid.NewString(),
		ComponentID: componentID,
		VideoID:     videoID,
		FileName:    fileName,
		Origin:      string(origin),
		Body:        srt.Format(cues),
		Searchable:  Searchable(cues),
	})
}

// CopyTranscript replaces every transcript of the target video with a copy of t.
func (q *Queries) CopyTranscript(ctx context.Context, t Transcript, videoID string) (Transcript, error) {
	if err := q.DeleteVideoTranscripts(ctx, DeleteVideoTranscriptsParams{
		ComponentID: t.ComponentID,
		VideoID:     videoID,
	}); err != nil {
		return Transcript{}, fmt.Errorf("clearing transcripts of %q: %w", videoID, err)
	}

	return q.UpsertTranscript(ctx, UpsertTranscriptParams{
		ID:          uuid.NewString(),
		ComponentID: t.ComponentID,
		VideoID:     videoID,
		FileName:    videoID + ".srt",
		Origin:      string(OriginCopy),
		Body:        t.Body,
		Searchable:  t.Searchable,
	})
}

// SearchTranscripts retrieves the transcripts of a component containing all the given words, words must be stemmed.
func (q *Queries) SearchTranscripts(
	ctx context.Context,
	componentID string,
	words []string,
) ([]Transcript, error) {
	if len(words) == 0 {
		return nil, nil
	}

	start := time.Now()
	defer func() {
		log.Printf("[INFO]: transcripts search query took %s", time.Since(start))
	}()

	args := make([]interface{}, 0, len(words)+1)
	args = append(args, componentID)
	query := "SELECT " + transcriptColumns + " FROM transcripts WHERE component_id = $1"
	for _, word := range words {
		args = append(args, word)
		query += fmt.Sprintf(" AND searchable LIKE '%%' || $%d || '%%'", len(args))
	}
	query += " ORDER BY video_id, file_name"

	return q.list(ctx, query, args...)
}
