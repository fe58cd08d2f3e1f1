// Package backend serves the transcripts commands the editor dispatches.
package backend

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/laytan/transcripts/internal/events"
	"github.com/laytan/transcripts/internal/store"
	"github.com/laytan/transcripts/internal/transcripts"
	"github.com/laytan/transcripts/internal/tube"
)

var (
	// CaptionRoutines limits the concurrent lookups of a check.
	CaptionRoutines = 4
	// MaxFileSize is the largest accepted transcript upload.
	MaxFileSize int64 = 5 << 20

	ErrNoYouTubeSource = errors.New("component has no youtube source")
	ErrAlreadyExists   = errors.New("transcript already exists")
	ErrUnknownSource   = errors.New("unknown video source")
	ErrNoTranscripts   = errors.New("no transcripts to use")
	ErrAmbiguous       = errors.New("sources have different transcripts")
	ErrUnknownCommand  = errors.New("unknown command")
)

type CaptionFetcher interface {
	Captions(ctx context.Context, videoId string) (*tube.Transcript, tube.TranscriptType, error)
}

type Server struct {
	Db      *sql.DB
	Queries *store.Queries
	Tube    CaptionFetcher
	Events  events.Publisher
}

// Response is the body of every successful command.
type Response struct {
	Status  string                    `json:"status"`
	Command string                    `json:"command,omitempty"`
	Videos  []transcripts.VideoSource `json:"videos,omitempty"`
}

func success() Response {
	return Response{Status: "Success"}
}

// Register adds the transcripts routes to r.
func (s *Server) Register(r fiber.Router) {
	r.Post("/transcripts/check", s.handleCheck)
	r.Post("/transcripts/upload", s.handleUpload)
	r.Get("/transcripts/download", s.handleDownload)
	r.Post("/transcripts/:command", s.handleCommand)
}

func (s *Server) handleCommand(c *fiber.Ctx) error {
	cmd := transcripts.Command(c.Params("command"))
	if !cmd.Valid() {
		return fiber.NewError(http.StatusNotFound, fmt.Sprintf("unknown command %q", cmd))
	}

	var req transcripts.CommandRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid command request")
	}
	req.Command = cmd

	if req.ComponentID == "" {
		return fiber.NewError(http.StatusBadRequest, "missing component_id")
	}

	log.Printf("[INFO]: %s: executing %s (%s)", req.ComponentID, cmd, req.ID)

	changed, err := s.Execute(c.UserContext(), req)
	if err != nil {
		log.Printf("[ERROR]: %s: %s (%s): %v", req.ComponentID, cmd, req.ID, err)
		return toFiberError(err)
	}

	s.publish(c.UserContext(), req, changed)
	return c.JSON(success())
}

// Execute runs a mutating command, returning the ids of the videos that changed.
func (s *Server) Execute(ctx context.Context, req transcripts.CommandRequest) ([]string, error) {
	switch req.Command {
	case transcripts.CommandImport:
		return s.importTranscripts(ctx, req)
	case transcripts.CommandReplace:
		return s.replaceTranscripts(ctx, req)
	case transcripts.CommandChoose:
		return s.chooseTranscripts(ctx, req)
	case transcripts.CommandUseExisting:
		return s.useExistingTranscripts(ctx, req)
	default:
		return nil, fmt.Errorf("command %q: %w", req.Command, ErrUnknownCommand)
	}
}

func (s *Server) publish(ctx context.Context, req transcripts.CommandRequest, changed []string) {
	if s.Events == nil || len(changed) == 0 {
		return
	}

	if err := s.Events.PublishChanged(ctx, events.Changed{
		ComponentID: req.ComponentID,
		Command:     string(req.Command),
		VideoIDs:    changed,
		At:          time.Now().UTC(),
	}); err != nil {
		log.Printf("[WARN]: %s: publishing changed event: %v", req.ComponentID, err)
	}
}

func toFiberError(err error) error {
	switch {
	case errors.Is(err, ErrNoYouTubeSource),
		errors.Is(err, ErrUnknownSource),
		errors.Is(err, ErrNoTranscripts),
		errors.Is(err, ErrUnknownCommand):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrAlreadyExists), errors.Is(err, ErrAmbiguous):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, tube.ErrNoCaptions), errors.Is(err, tube.ErrUnavailable):
		return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, tube.ErrToManyRequests):
		return fiber.NewError(http.StatusServiceUnavailable, "youtube is rate limiting, try again later")
	default:
		return fiber.NewError(http.StatusInternalServerError, "transcripts command failed")
	}
}

// withTx runs f in a transaction, committing when it returns nil.
func (s *Server) withTx(ctx context.Context, f func(q *store.Queries) error) error {
	tx, err := s.Db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() // Rollback, ignore error which is returned if tx is committed.

	if err := f(s.Queries.WithTx(tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func youTubeID(videos []transcripts.VideoSource) (string, bool) {
	for _, v := range videos {
		if v.Kind == transcripts.KindYouTube && v.Identifier != "" {
			return v.Identifier, true
		}
	}
	return "", false
}

// html5IDs returns the distinct identifiers of the html5 sources, in order.
func html5IDs(videos []transcripts.VideoSource) []string {
	var ids []string
	for _, g := range transcripts.Group(videos) {
		for _, v := range g.Sources {
			if v.Kind == transcripts.KindHTML5 {
				ids = append(ids, g.Identifier)
				break
			}
		}
	}
	return ids
}

func latest(ts []store.Transcript) *store.Transcript {
	if len(ts) == 0 {
		return nil
	}
	return &ts[len(ts)-1]
}
