package backend

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/laytan/transcripts/internal/srt"
	"github.com/laytan/transcripts/internal/store"
	"github.com/laytan/transcripts/internal/transcripts"
	"github.com/laytan/transcripts/internal/tube"
	"golang.org/x/sync/errgroup"
)

func (s *Server) handleCheck(c *fiber.Ctx) error {
	var req transcripts.CommandRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid check request")
	}
	if req.ComponentID == "" {
		return fiber.NewError(http.StatusBadRequest, "missing component_id")
	}

	state, err := s.Check(c.UserContext(), req.ComponentID, req.Videos)
	if err != nil {
		log.Printf("[ERROR]: %s: check: %v", req.ComponentID, err)
		return fiber.NewError(http.StatusInternalServerError, "checking transcripts failed")
	}

	res := success()
	res.Command = state.String()
	return c.JSON(res)
}

// Check decides the state the editor starts in for the given sources.
func (s *Server) Check(
	ctx context.Context,
	componentID string,
	videos []transcripts.VideoSource,
) (transcripts.State, error) {
	ytID, hasYT := youTubeID(videos)
	ids := html5IDs(videos)

	var (
		mu     sync.Mutex
		remote *tube.Transcript
		local  = make(map[string][]store.Transcript, len(ids)+1)
	)

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(CaptionRoutines)

	if hasYT {
		group.Go(func() error {
			captions, _, err := s.Tube.Captions(gctx, ytID)
			if err != nil {
				if errors.Is(err, tube.ErrNoCaptions) || errors.Is(err, tube.ErrUnavailable) {
					return nil
				}

				// YouTube being unreachable should not keep the author from working with local transcripts.
				log.Printf("[WARN]: %s: retrieving captions of %q: %v", componentID, ytID, err)
				return nil
			}

			mu.Lock()
			defer mu.Unlock()
			remote = captions
			return nil
		})
	}

	lookup := ids
	if hasYT {
		lookup = append([]string{ytID}, ids...)
	}
	for _, id := range lookup {
		id := id
		group.Go(func() error {
			ts, err := s.Queries.TranscriptsForVideo(gctx, store.TranscriptsForVideoParams{
				ComponentID: componentID,
				VideoID:     id,
			})
			if err != nil {
				return fmt.Errorf("retrieving transcripts of %q: %w", id, err)
			}

			mu.Lock()
			defer mu.Unlock()
			local[id] = ts
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return transcripts.StateNone, err
	}

	if hasYT {
		localYT := latest(local[ytID])
		switch {
		case localYT != nil && remote != nil:
			if localYT.Body == srt.Format(remote.Cues()) {
				return transcripts.StateFound, nil
			}
			return transcripts.StateReplace, nil
		case remote != nil:
			return transcripts.StateImport, nil
		case localYT != nil:
			return transcripts.StateFound, nil
		}
	}

	bodies := map[string]struct{}{}
	covered := true
	for _, id := range ids {
		if len(local[id]) == 0 {
			covered = false
		}
		for _, t := range local[id] {
			bodies[t.Body] = struct{}{}
		}
	}

	switch {
	case len(bodies) == 0:
		return transcripts.StateNotFound, nil
	case len(bodies) > 1:
		return transcripts.StateChoose, nil
	case covered && !hasYT:
		return transcripts.StateFound, nil
	default:
		return transcripts.StateUseExisting, nil
	}
}
