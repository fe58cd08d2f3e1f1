// Package transcripts decides which transcripts status a video component shows
// and drives the backend commands that move it between statuses.
package transcripts

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Renderer turns a status template and its data into markup.
// An unknown key must result in an error wrapping ErrUnknownTemplate.
type Renderer interface {
	Render(key TemplateKey, data RenderData) (string, error)
}

// RenderData is handed to the Renderer, the sources are computed fresh on every render.
type RenderData struct {
	ComponentID string
	State       State
	Grouped     map[string][]VideoSource
	Groups      []SourceGroup
	HTML5Files  []string
	Params      map[string]any
}

// Messenger receives the notifications of an upload.
type Messenger interface {
	UploadProgress(percent float64)
	// UploadCompleted receives the component's sources with the candidate transcript files of each.
	UploadCompleted(sources []VideoSource)
	UploadFailed(err error)
}

// Uploader is the file upload widget embedded in the status markup.
type Uploader interface {
	// Render refreshes the widget after the status markup changed.
	Render()
}

// UploaderFactory creates the uploader bound to a coordinator.
type UploaderFactory func(m Messenger, componentID string) Uploader

type noopUploader struct{}

func (noopUploader) Render() {}

// ErrorDisplay is the error currently shown to the author.
type ErrorDisplay struct {
	Message       string `json:"message"`
	Visible       bool   `json:"visible"`
	ButtonsHidden bool   `json:"buttons_hidden"`
}

const uploadFailedMessage = "Error: Uploading failed."

type Option func(*Coordinator)

func WithObserver(o Observer) Option {
	return func(c *Coordinator) {
		if o != nil {
			c.observe = o
		}
	}
}

func WithUploader(f UploaderFactory) Option {
	return func(c *Coordinator) {
		c.newUploader = f
	}
}

// Coordinator owns the transcripts status of one component for the length of an editing session.
//
// At most one command is in flight at any time, requests made while one is pending are ignored.
type Coordinator struct {
	componentID string
	sources     SourceProvider
	service     CommandService
	renderer    Renderer
	observe     Observer
	newUploader UploaderFactory
	uploader    Uploader

	inflight *semaphore.Weighted

	mu       sync.Mutex
	pending  []Event
	state    State
	markup   string
	errorBox ErrorDisplay
	progress float64
	busy     bool
	last     *errgroup.Group
}

// New binds a coordinator to the component and its sources, no requests are made.
func New(
	componentID string,
	sources SourceProvider,
	service CommandService,
	renderer Renderer,
	opts ...Option,
) *Coordinator {
	c := &Coordinator{
		componentID: componentID,
		sources:     sources,
		service:     service,
		renderer:    renderer,
		observe:     noopObserver,
		inflight:    semaphore.NewWeighted(1),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.newUploader != nil {
		c.uploader = c.newUploader(c, componentID)
	}
	if c.uploader == nil {
		c.uploader = noopUploader{}
	}

	return c
}

func (c *Coordinator) ComponentID() string {
	return c.componentID
}

func (c *Coordinator) Uploader() Uploader {
	return c.uploader
}

func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.unlock()
	return c.state
}

// Markup is the output of the last successful render.
func (c *Coordinator) Markup() string {
	c.mu.Lock()
	defer c.unlock()
	return c.markup
}

func (c *Coordinator) ErrorDisplay() ErrorDisplay {
	c.mu.Lock()
	defer c.unlock()
	return c.errorBox
}

// Progress is the percentage of the last reported upload progress.
func (c *Coordinator) Progress() float64 {
	c.mu.Lock()
	defer c.unlock()
	return c.progress
}

// Busy reports whether a command is in flight.
func (c *Coordinator) Busy() bool {
	c.mu.Lock()
	defer c.unlock()
	return c.busy
}

// emit queues e, it is delivered by unlock so observers never run under the lock.
func (c *Coordinator) emit(e Event) {
	c.pending = append(c.pending, e)
}

func (c *Coordinator) unlock() {
	events := c.pending
	c.pending = nil
	c.mu.Unlock()

	for _, e := range events {
		c.observe(e)
	}
}

// EnterState renders the given state and makes it the current one.
// If rendering fails the previous state and markup are kept.
func (c *Coordinator) EnterState(state State, params map[string]any) error {
	c.mu.Lock()
	err := c.enterState(state, params)
	c.unlock()
	if err != nil {
		return err
	}

	c.uploader.Render()
	return nil
}

func (c *Coordinator) enterState(state State, params map[string]any) error {
	key, err := state.TemplateKey()
	if err != nil {
		c.emit(Event{Kind: EventRenderFailed, ComponentID: c.componentID, State: state, Err: err})
		return err
	}

	if params == nil {
		params = map[string]any{}
	}

	sources := c.sources.VideoSources()
	markup, err := c.renderer.Render(key, RenderData{
		ComponentID: c.componentID,
		State:       state,
		Grouped:     GroupedSources(sources),
		Groups:      Group(sources),
		HTML5Files:  HTML5Files(sources),
		Params:      params,
	})
	if err != nil {
		err = fmt.Errorf("rendering %q: %w", key, err)
		c.emit(Event{Kind: EventRenderFailed, ComponentID: c.componentID, State: state, Err: err})
		return err
	}

	c.state = state
	c.markup = markup
	c.emit(Event{Kind: EventStateEntered, ComponentID: c.componentID, State: state})
	return nil
}

// RequestImport imports the YouTube transcripts, entering found on success.
// It returns false when another command is still in flight.
func (c *Coordinator) RequestImport(ctx context.Context) bool {
	return c.dispatch(ctx, CommandImport, "", "")
}

// RequestReplace replaces the local transcripts with the YouTube ones, entering replaced on success.
func (c *Coordinator) RequestReplace(ctx context.Context) bool {
	return c.dispatch(ctx, CommandReplace, "", "")
}

// RequestChoose uses the transcript file of the html5 source with the given identifier for all sources.
// An empty fileName picks the source's latest transcript.
func (c *Coordinator) RequestChoose(ctx context.Context, identifier, fileName string) bool {
	return c.dispatch(ctx, CommandChoose, identifier, fileName)
}

// RequestUseExisting is not supported, the state it should lead to is undecided.
// Nothing is dispatched and false is returned.
func (c *Coordinator) RequestUseExisting(ctx context.Context) bool {
	c.observe(Event{
		Kind:        EventUnsupported,
		ComponentID: c.componentID,
		Command:     CommandUseExisting,
		Message:     "use existing transcripts is not supported",
	})
	return false
}

func (c *Coordinator) dispatch(ctx context.Context, cmd Command, chosen, chosenFile string) bool {
	if !c.inflight.TryAcquire(1) {
		c.observe(Event{Kind: EventCommandRejected, ComponentID: c.componentID, Command: cmd})
		return false
	}

	req := NewCommandRequest(cmd, c.componentID, c.sources.VideoSources())
	req.Chosen = chosen
	req.ChosenFile = chosenFile

	// The command outlives the UI event that triggered it, it can't be cancelled.
	ctx = context.WithoutCancel(ctx)

	g := &errgroup.Group{}
	c.mu.Lock()
	c.busy = true
	c.last = g
	c.unlock()

	c.observe(Event{
		Kind:        EventCommandDispatched,
		ComponentID: c.componentID,
		Command:     cmd,
		RequestID:   req.ID,
	})

	g.Go(func() error {
		payload, err := c.service.Execute(ctx, req)
		if err := c.resolve(req, Outcome{Payload: payload, Err: err}); err != nil {
			return err
		}

		c.uploader.Render()
		return nil
	})
	return true
}

func (c *Coordinator) resolve(req CommandRequest, out Outcome) error {
	c.mu.Lock()
	defer c.unlock()
	defer func() {
		c.busy = false
		c.inflight.Release(1)
	}()

	c.emit(Event{
		Kind:        EventCommandResolved,
		ComponentID: c.componentID,
		Command:     req.Command,
		RequestID:   req.ID,
		Err:         out.Err,
	})

	if !out.Success() {
		c.showError(failureMessages[req.Command], false)
		return &CommandError{Command: req.Command, RequestID: req.ID, Err: out.Err}
	}

	state, ok := successStates[req.Command]
	if !ok {
		return fmt.Errorf("no state after %s: %w", req.Command, ErrUnknownTemplate)
	}

	c.hideError()

	var params map[string]any
	if state == StateReplaced {
		params = map[string]any{"replaced": true}
	}
	return c.enterState(state, params)
}

// Wait blocks until the last dispatched command resolved.
// It returns a *CommandError if that command failed, or the error of the render that followed it.
func (c *Coordinator) Wait() error {
	c.mu.Lock()
	g := c.last
	c.unlock()

	if g == nil {
		return nil
	}
	return g.Wait()
}

// ShowError replaces any shown error with message, optionally hiding the action buttons.
// An empty message is ignored.
func (c *Coordinator) ShowError(message string, hideButtons bool) {
	c.mu.Lock()
	defer c.unlock()
	c.showError(message, hideButtons)
}

func (c *Coordinator) showError(message string, hideButtons bool) {
	if message == "" {
		return
	}

	c.hideError()
	c.errorBox = ErrorDisplay{
		Message:       message,
		Visible:       true,
		ButtonsHidden: hideButtons,
	}
	c.emit(Event{Kind: EventErrorShown, ComponentID: c.componentID, Message: message})
}

// HideError hides the error and shows the action buttons.
func (c *Coordinator) HideError() {
	c.mu.Lock()
	defer c.unlock()
	c.hideError()
}

func (c *Coordinator) hideError() {
	c.errorBox = ErrorDisplay{}
	c.emit(Event{Kind: EventErrorHidden, ComponentID: c.componentID})
}

func (c *Coordinator) UploadProgress(percent float64) {
	c.mu.Lock()
	defer c.unlock()

	c.progress = percent
	c.emit(Event{Kind: EventUploadProgress, ComponentID: c.componentID, Progress: percent})
}

// UploadCompleted enters choose when any source ended up with several candidate files, uploaded otherwise.
func (c *Coordinator) UploadCompleted(sources []VideoSource) {
	state := StateUploaded
	for _, g := range Group(sources) {
		if len(g.FileNames()) > 1 {
			state = StateChoose
			break
		}
	}

	c.mu.Lock()
	c.progress = 100
	c.emit(Event{Kind: EventUploadCompleted, ComponentID: c.componentID, State: state})
	c.hideError()
	err := c.enterState(state, map[string]any{"uploaded": sources})
	if err != nil {
		c.showError(uploadFailedMessage, false)
	}
	c.unlock()

	if err == nil {
		c.uploader.Render()
	}
}

func (c *Coordinator) UploadFailed(err error) {
	if err == nil {
		err = errors.New("unknown upload error")
	}

	c.mu.Lock()
	defer c.unlock()

	c.progress = 0
	c.emit(Event{Kind: EventUploadFailed, ComponentID: c.componentID, Err: err})
	c.showError(uploadFailedMessage, false)
}
