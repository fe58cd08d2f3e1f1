package store

import (
	"time"
)

type Transcript struct {
	ID          string
	ComponentID string
	VideoID     string
	FileName    string
	Origin      string
	Body        string
	Searchable  string
	// Revision increases with every write to the transcripts of a video.
	Revision    int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
