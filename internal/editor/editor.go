// Package editor serves the transcripts panel of the video editor, one coordinator per component.
package editor

import (
	"context"
	"embed"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/html"
	"github.com/laytan/transcripts/internal/transcripts"
	"github.com/laytan/transcripts/internal/upload"
)

var (
	//go:embed templates
	_templatesFS embed.FS
	templatesFS  fs.FS
)

func init() {
	subTemplatesFS, err := fs.Sub(_templatesFS, "templates")
	if err != nil {
		panic(err)
	}
	templatesFS = subTemplatesFS
}

// Views returns the engine the fiber app needs to render the editor pages, use "layout" as the layout.
func Views(reload bool) *html.Engine {
	engine := html.NewFileSystem(http.FS(templatesFS), ".html")
	engine.Reload(reload)
	return engine
}

// Checker decides the state a component starts in.
type Checker interface {
	Check(ctx context.Context, componentID string, videos []transcripts.VideoSource) (transcripts.State, error)
}

type Editor struct {
	Service  transcripts.CommandService
	Checker  Checker
	Renderer transcripts.Renderer
	Observer transcripts.Observer
	// BackendURL is where the uploader sends files.
	BackendURL string
	HTTP       *http.Client

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	coordinator *transcripts.Coordinator
	sources     *SourceList
	uploader    *upload.Uploader
}

// SourceList is the video sources of a component, as last submitted by the editor.
type SourceList struct {
	mu      sync.Mutex
	sources []transcripts.VideoSource
}

func (l *SourceList) VideoSources() []transcripts.VideoSource {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]transcripts.VideoSource(nil), l.sources...)
}

func (l *SourceList) Set(sources []transcripts.VideoSource) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sources = append([]transcripts.VideoSource(nil), sources...)
}

// sourceUpdater keeps the source list in line with what the backend reports after an upload.
type sourceUpdater struct {
	transcripts.Messenger
	sources *SourceList
}

func (m sourceUpdater) UploadCompleted(sources []transcripts.VideoSource) {
	m.sources.Set(sources)
	m.Messenger.UploadCompleted(sources)
}

type StatusData struct {
	ComponentID string                    `json:"component_id"`
	Sources     []transcripts.VideoSource `json:"videos"`
	State       string                    `json:"state"`
	Busy        bool                      `json:"busy"`
	Progress    float64                   `json:"progress"`
	Error       transcripts.ErrorDisplay  `json:"error"`
	Markup      template.HTML             `json:"markup"`
}

// Register adds the editor routes to r.
func (e *Editor) Register(r fiber.Router) {
	r.Get("/editor/:component", e.handlePage)
	r.Get("/editor/:component/status", e.handleStatus)
	r.Put("/editor/:component/sources", e.handleSources)
	r.Delete("/editor/:component", e.handleClose)
	r.Post("/editor/:component/import", e.handleAction(func(ctx context.Context, c *fiber.Ctx, co *transcripts.Coordinator) bool {
		return co.RequestImport(ctx)
	}))
	r.Post("/editor/:component/replace", e.handleAction(func(ctx context.Context, c *fiber.Ctx, co *transcripts.Coordinator) bool {
		return co.RequestReplace(ctx)
	}))
	r.Post("/editor/:component/choose", e.handleAction(func(ctx context.Context, c *fiber.Ctx, co *transcripts.Coordinator) bool {
		return co.RequestChoose(ctx, c.Query("video"), c.Query("file"))
	}))
	r.Post("/editor/:component/use_existing", e.handleUseExisting)
	r.Post("/editor/:component/upload", e.handleUpload)
}

func (e *Editor) session(componentID string) *session {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.sessions == nil {
		e.sessions = map[string]*session{}
	}

	if s, ok := e.sessions[componentID]; ok {
		return s
	}

	s := &session{sources: &SourceList{}}
	factory := upload.NewFactory(e.BackendURL, e.HTTP, s.sources)
	s.coordinator = transcripts.New(
		componentID,
		s.sources,
		e.Service,
		e.Renderer,
		transcripts.WithObserver(e.Observer),
		transcripts.WithUploader(func(m transcripts.Messenger, id string) transcripts.Uploader {
			return factory(sourceUpdater{Messenger: m, sources: s.sources}, id)
		}),
	)
	s.uploader = s.coordinator.Uploader().(*upload.Uploader)
	e.sessions[componentID] = s

	log.Printf("[INFO]: started editing session for %q", componentID)
	return s
}

// check enters the state the backend decides on for the current sources.
func (e *Editor) check(ctx context.Context, s *session) error {
	state, err := e.Checker.Check(ctx, s.coordinator.ComponentID(), s.sources.VideoSources())
	if err != nil {
		log.Printf("[ERROR]: checking %q: %v", s.coordinator.ComponentID(), err)
		s.coordinator.ShowError("Error: Checking transcripts failed.", false)
		return nil
	}

	if err := s.coordinator.EnterState(state, nil); err != nil {
		log.Printf("[ERROR]: %v", err)
		return fiber.NewError(http.StatusInternalServerError, "could not render transcripts status")
	}
	return nil
}

func (e *Editor) statusData(s *session) StatusData {
	co := s.coordinator
	return StatusData{
		ComponentID: co.ComponentID(),
		Sources:     s.sources.VideoSources(),
		State:       co.State().String(),
		Busy:        co.Busy(),
		Progress:    co.Progress(),
		Error:       co.ErrorDisplay(),
		// Produced by the status templates, which escape their data.
		Markup: template.HTML(co.Markup()),
	}
}

func (e *Editor) respond(c *fiber.Ctx, s *session) error {
	data := e.statusData(s)

	_, isHtmx := c.GetReqHeaders()["Hx-Request"]
	if isHtmx {
		return c.Render("status", data, "")
	}

	return c.Render("editor", data)
}

func (e *Editor) handlePage(c *fiber.Ctx) error {
	s := e.session(c.Params("component"))

	if s.coordinator.State() == transcripts.StateNone {
		if err := e.check(c.UserContext(), s); err != nil {
			return err
		}
	}

	return e.respond(c, s)
}

func (e *Editor) handleStatus(c *fiber.Ctx) error {
	return c.JSON(e.statusData(e.session(c.Params("component"))))
}

func (e *Editor) handleSources(c *fiber.Ctx) error {
	var sources []transcripts.VideoSource
	if err := c.BodyParser(&sources); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid video sources")
	}

	s := e.session(c.Params("component"))
	s.sources.Set(sources)

	if err := e.check(c.UserContext(), s); err != nil {
		return err
	}
	return e.respond(c, s)
}

func (e *Editor) handleClose(c *fiber.Ctx) error {
	id := c.Params("component")

	e.mu.Lock()
	s, ok := e.sessions[id]
	delete(e.sessions, id)
	e.mu.Unlock()

	if ok {
		// Let a pending command finish before forgetting about it.
		_ = s.coordinator.Wait()
		log.Printf("[INFO]: closed editing session for %q", id)
	}

	return c.SendStatus(http.StatusNoContent)
}

type action func(ctx context.Context, c *fiber.Ctx, co *transcripts.Coordinator) bool

// handleAction dispatches the action and responds once its command resolved,
// failures are part of the rendered status.
func (e *Editor) handleAction(a action) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s := e.session(c.Params("component"))

		if !a(c.UserContext(), c, s.coordinator) {
			return fiber.NewError(http.StatusConflict, "another transcripts action is still in progress")
		}

		if err := s.coordinator.Wait(); err != nil {
			log.Printf("[WARN]: %v", err)
		}

		return e.respond(c, s)
	}
}

func (e *Editor) handleUseExisting(c *fiber.Ctx) error {
	s := e.session(c.Params("component"))
	s.coordinator.RequestUseExisting(c.UserContext())
	return fiber.NewError(http.StatusNotImplemented, "using the existing transcript is not supported yet")
}

func (e *Editor) handleUpload(c *fiber.Ctx) error {
	s := e.session(c.Params("component"))

	// The result of the pending command would replace whatever the upload renders.
	if s.coordinator.Busy() {
		return fiber.NewError(http.StatusConflict, "another transcripts action is still in progress")
	}

	video := c.FormValue("video")
	if video == "" {
		return fiber.NewError(http.StatusBadRequest, "missing video")
	}

	fh, err := c.FormFile("transcript-file")
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "missing transcript-file")
	}
	f, err := fh.Open()
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "could not read transcript-file")
	}
	defer f.Close()

	// The messenger shows the failure, the response only needs the new status.
	if err := s.uploader.Upload(c.UserContext(), video, fh.Filename, f); err != nil {
		log.Printf("[WARN]: %s: %v", s.coordinator.ComponentID(), err)
	}

	return e.respond(c, s)
}
