package backend

import (
	"context"
	"fmt"
	"log"

	"github.com/laytan/transcripts/internal/store"
	"github.com/laytan/transcripts/internal/transcripts"
	"github.com/laytan/transcripts/internal/tube"
)

func origin(typ tube.TranscriptType) store.Origin {
	switch typ {
	case tube.TypeManual:
		return store.OriginTubeManual
	case tube.TypeAuto:
		return store.OriginTubeAuto
	default:
		panic("unreachable")
	}
}

// importTranscripts stores the YouTube captions as the transcript of the youtube source.
// Existing transcripts are never overwritten, that is what replace is for.
func (s *Server) importTranscripts(ctx context.Context, req transcripts.CommandRequest) ([]string, error) {
	ytID, ok := youTubeID(req.Videos)
	if !ok {
		return nil, ErrNoYouTubeSource
	}

	existing, err := s.Queries.TranscriptsForVideo(ctx, store.TranscriptsForVideoParams{
		ComponentID: req.ComponentID,
		VideoID:     ytID,
	})
	if err != nil {
		return nil, fmt.Errorf("retrieving transcripts of %q: %w", ytID, err)
	}
	if len(existing) > 0 {
		return nil, fmt.Errorf("video %q: %w", ytID, ErrAlreadyExists)
	}

	captions, typ, err := s.Tube.Captions(ctx, ytID)
	if err != nil {
		return nil, fmt.Errorf("retrieving captions for %q: %w", ytID, err)
	}

	if _, err := s.Queries.SaveCues(ctx, req.ComponentID, ytID, ytID+".srt", origin(typ), captions.Cues()); err != nil {
		return nil, fmt.Errorf("saving captions of %q: %w", ytID, err)
	}

	return []string{ytID}, nil
}

// replaceTranscripts overwrites the transcripts of every source with the YouTube captions.
func (s *Server) replaceTranscripts(ctx context.Context, req transcripts.CommandRequest) ([]string, error) {
	ytID, ok := youTubeID(req.Videos)
	if !ok {
		return nil, ErrNoYouTubeSource
	}

	captions, typ, err := s.Tube.Captions(ctx, ytID)
	if err != nil {
		return nil, fmt.Errorf("retrieving captions for %q: %w", ytID, err)
	}

	changed := []string{ytID}
	err = s.withTx(ctx, func(q *store.Queries) error {
		if err := q.DeleteVideoTranscripts(ctx, store.DeleteVideoTranscriptsParams{
			ComponentID: req.ComponentID,
			VideoID:     ytID,
		}); err != nil {
			return fmt.Errorf("clearing transcripts of %q: %w", ytID, err)
		}

		saved, err := q.SaveCues(ctx, req.ComponentID, ytID, ytID+".srt", origin(typ), captions.Cues())
		if err != nil {
			return fmt.Errorf("saving captions of %q: %w", ytID, err)
		}

		for _, id := range html5IDs(req.Videos) {
			if _, err := q.CopyTranscript(ctx, saved, id); err != nil {
				return fmt.Errorf("copying to %q: %w", id, err)
			}
			changed = append(changed, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return changed, nil
}

// chooseTranscripts uses the chosen transcript file of an html5 source for every source,
// without a file the source's latest transcript is used.
func (s *Server) chooseTranscripts(ctx context.Context, req transcripts.CommandRequest) ([]string, error) {
	var found bool
	for _, id := range html5IDs(req.Videos) {
		if id == req.Chosen {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("chosen %q: %w", req.Chosen, ErrUnknownSource)
	}

	chosen, err := s.Queries.TranscriptsForVideo(ctx, store.TranscriptsForVideoParams{
		ComponentID: req.ComponentID,
		VideoID:     req.Chosen,
	})
	if err != nil {
		return nil, fmt.Errorf("retrieving transcripts of %q: %w", req.Chosen, err)
	}
	if len(chosen) == 0 {
		return nil, fmt.Errorf("chosen %q: %w", req.Chosen, ErrNoTranscripts)
	}

	t := latest(chosen)
	if req.ChosenFile != "" {
		t = nil
		for i := range chosen {
			if chosen[i].FileName == req.ChosenFile {
				t = &chosen[i]
				break
			}
		}
	}
	if t == nil {
		return nil, fmt.Errorf("chosen file %q of %q: %w", req.ChosenFile, req.Chosen, ErrUnknownSource)
	}

	return s.copyToAll(ctx, *t, req.Videos)
}

// useExistingTranscripts copies the one transcript the html5 sources have onto every source.
func (s *Server) useExistingTranscripts(ctx context.Context, req transcripts.CommandRequest) ([]string, error) {
	var existing *store.Transcript
	for _, id := range html5IDs(req.Videos) {
		ts, err := s.Queries.TranscriptsForVideo(ctx, store.TranscriptsForVideoParams{
			ComponentID: req.ComponentID,
			VideoID:     id,
		})
		if err != nil {
			return nil, fmt.Errorf("retrieving transcripts of %q: %w", id, err)
		}

		for i := range ts {
			if existing == nil {
				existing = &ts[i]
				continue
			}
			if existing.Body != ts[i].Body {
				return nil, ErrAmbiguous
			}
		}
	}
	if existing == nil {
		return nil, ErrNoTranscripts
	}

	return s.copyToAll(ctx, *existing, req.Videos)
}

func (s *Server) copyToAll(ctx context.Context, t store.Transcript, videos []transcripts.VideoSource) ([]string, error) {
	var changed []string
	err := s.withTx(ctx, func(q *store.Queries) error {
		for _, g := range transcripts.Group(videos) {
			if _, err := q.CopyTranscript(ctx, t, g.Identifier); err != nil {
				return fmt.Errorf("copying to %q: %w", g.Identifier, err)
			}
			changed = append(changed, g.Identifier)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[INFO]: %s: copied transcript %s to %d sources", t.ComponentID, t.ID, len(changed))
	return changed, nil
}
