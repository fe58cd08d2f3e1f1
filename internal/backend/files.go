package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/laytan/transcripts/internal/srt"
	"github.com/laytan/transcripts/internal/store"
	"github.com/laytan/transcripts/internal/transcripts"
)

// handleUpload stores an uploaded .srt file for one video source.
// The response lists, for every source of the component, the transcript files it has.
func (s *Server) handleUpload(c *fiber.Ctx) error {
	componentID := c.FormValue("component_id")
	videoID := c.FormValue("video")
	if componentID == "" || videoID == "" {
		return fiber.NewError(http.StatusBadRequest, "missing component_id or video")
	}

	var videos []transcripts.VideoSource
	if raw := c.FormValue("videos"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &videos); err != nil {
			return fiber.NewError(http.StatusBadRequest, "invalid videos")
		}
	}

	known := len(videos) == 0
	for _, v := range videos {
		if v.Identifier == videoID {
			known = true
			break
		}
	}
	if !known {
		return fiber.NewError(http.StatusBadRequest, fmt.Sprintf("unknown video %q", videoID))
	}

	fh, err := c.FormFile("transcript-file")
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "missing transcript-file")
	}
	if fh.Size > MaxFileSize {
		return fiber.NewError(http.StatusRequestEntityTooLarge, "transcript file is too large")
	}

	name := filepath.Base(fh.Filename)
	if !strings.EqualFold(filepath.Ext(name), ".srt") {
		return fiber.NewError(http.StatusUnsupportedMediaType, "only .srt transcripts are supported")
	}

	f, err := fh.Open()
	if err != nil {
		return fmt.Errorf("opening upload: %w", err)
	}
	defer f.Close()

	cues, err := srt.Parse(f)
	if err != nil {
		if errors.Is(err, srt.ErrMalformed) || errors.Is(err, srt.ErrEmpty) {
			return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
		}
		return fmt.Errorf("reading upload: %w", err)
	}

	ctx := c.UserContext()
	if _, err := s.Queries.SaveCues(ctx, componentID, videoID, name, store.OriginUpload, cues); err != nil {
		log.Printf("[ERROR]: %s: saving upload %q: %v", componentID, name, err)
		return fiber.NewError(http.StatusInternalServerError, "saving transcript failed")
	}
	log.Printf("[INFO]: %s: stored %d cues from %q for %q", componentID, len(cues), name, videoID)

	if len(videos) == 0 {
		videos = []transcripts.VideoSource{{Kind: transcripts.KindHTML5, Identifier: videoID}}
	}

	stored, err := s.Queries.TranscriptsForComponent(ctx, componentID)
	if err != nil {
		log.Printf("[ERROR]: %s: listing transcripts: %v", componentID, err)
		return fiber.NewError(http.StatusInternalServerError, "listing transcripts failed")
	}

	s.publish(ctx, transcripts.CommandRequest{ComponentID: componentID, Command: "upload"}, []string{videoID})

	res := success()
	res.Videos = candidates(videos, stored)
	return c.JSON(res)
}

// candidates returns one source per identifier, with the names of its stored transcripts as file names.
func candidates(videos []transcripts.VideoSource, stored []store.Transcript) []transcripts.VideoSource {
	files := map[string][]string{}
	for _, t := range stored {
		files[t.VideoID] = append(files[t.VideoID], t.FileName)
	}

	var res []transcripts.VideoSource
	for _, g := range transcripts.Group(videos) {
		res = append(res, transcripts.VideoSource{
			Kind:           g.Sources[0].Kind,
			Identifier:     g.Identifier,
			LocalFileNames: files[g.Identifier],
		})
	}
	return res
}

func (s *Server) handleDownload(c *fiber.Ctx) error {
	componentID := c.Query("component_id")
	if componentID == "" {
		return fiber.NewError(http.StatusBadRequest, "missing component_id")
	}

	ts, err := s.Queries.TranscriptsForComponent(c.UserContext(), componentID)
	if err != nil {
		log.Printf("[ERROR]: %s: listing transcripts: %v", componentID, err)
		return fiber.NewError(http.StatusInternalServerError, "listing transcripts failed")
	}

	video := c.Query("video")
	var t *store.Transcript
	for i := range ts {
		if video == "" || ts[i].VideoID == video {
			t = &ts[i]
		}
	}
	if t == nil {
		return fiber.NewError(http.StatusNotFound, "no transcript found")
	}

	c.Attachment(t.FileName)
	c.Set(fiber.HeaderContentType, "application/x-subrip; charset=utf-8")
	return c.SendString(t.Body)
}
