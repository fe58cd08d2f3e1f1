package editor_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/laytan/transcripts/internal/editor"
	"github.com/laytan/transcripts/internal/render"
	"github.com/laytan/transcripts/internal/transcripts"
)

type fakeService struct {
	mu       sync.Mutex
	requests []transcripts.CommandRequest
	err      error
	block    chan struct{}
}

func (f *fakeService) Execute(ctx context.Context, req transcripts.CommandRequest) (json.RawMessage, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	block, err := f.block, f.err
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	if err != nil {
		return nil, err
	}
	return json.RawMessage(`{"status":"Success"}`), nil
}

func (f *fakeService) commands() []transcripts.Command {
	f.mu.Lock()
	defer f.mu.Unlock()

	cmds := make([]transcripts.Command, 0, len(f.requests))
	for _, r := range f.requests {
		cmds = append(cmds, r.Command)
	}
	return cmds
}

type fakeChecker struct {
	mu     sync.Mutex
	state  transcripts.State
	err    error
	calls  int
	videos []transcripts.VideoSource
}

func (f *fakeChecker) Check(ctx context.Context, componentID string, videos []transcripts.VideoSource) (transcripts.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.videos = videos
	return f.state, f.err
}

type harness struct {
	app     *fiber.App
	service *fakeService
	checker *fakeChecker
}

func newHarness(t *testing.T, state transcripts.State, backendURL string) *harness {
	t.Helper()

	renderer, err := render.New(false)
	if err != nil {
		t.Fatal(err)
	}

	h := &harness{
		app: fiber.New(fiber.Config{
			Views:       editor.Views(false),
			ViewsLayout: "layout",
		}),
		service: &fakeService{},
		checker: &fakeChecker{state: state},
	}

	e := &editor.Editor{
		Service:    h.service,
		Checker:    h.checker,
		Renderer:   renderer,
		BackendURL: backendURL,
	}
	e.Register(h.app)

	return h
}

func (h *harness) do(t *testing.T, req *http.Request) (int, string) {
	t.Helper()

	res, err := h.app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatal(err)
	}
	return res.StatusCode, string(body)
}

func (h *harness) status(t *testing.T) editor.StatusData {
	t.Helper()

	code, body := h.do(t, httptest.NewRequest(http.MethodGet, "/editor/C1/status", nil))
	if code != http.StatusOK {
		t.Fatalf("status: %d %s", code, body)
	}

	var data editor.StatusData
	if err := json.Unmarshal([]byte(body), &data); err != nil {
		t.Fatal(err)
	}
	return data
}

func htmx(req *http.Request) *http.Request {
	req.Header.Set("Hx-Request", "true")
	return req
}

func TestPage(t *testing.T) {
	h := newHarness(t, transcripts.StateNotFound, "")

	code, body := h.do(t, httptest.NewRequest(http.MethodGet, "/editor/C1", nil))
	if code != http.StatusOK {
		t.Fatalf("code = %d, body = %s", code, body)
	}
	if !strings.Contains(body, "<!DOCTYPE html>") || !strings.Contains(body, `data-state="not_found"`) {
		t.Errorf("unexpected page: %s", body)
	}

	code, body = h.do(t, htmx(httptest.NewRequest(http.MethodGet, "/editor/C1", nil)))
	if code != http.StatusOK {
		t.Fatalf("code = %d", code)
	}
	if strings.Contains(body, "<!DOCTYPE html>") || !strings.Contains(body, `id="transcripts-status"`) {
		t.Errorf("expected only the status fragment: %s", body)
	}

	if h.checker.calls != 1 {
		t.Errorf("checked %d times, want once", h.checker.calls)
	}
}

func TestPageCheckFails(t *testing.T) {
	h := newHarness(t, transcripts.StateNone, "")
	h.checker.err = errors.New("backend down")

	code, body := h.do(t, htmx(httptest.NewRequest(http.MethodGet, "/editor/C1", nil)))
	if code != http.StatusOK {
		t.Fatalf("code = %d", code)
	}
	if !strings.Contains(body, "Error: Checking transcripts failed.") {
		t.Errorf("expected the error message: %s", body)
	}
}

func TestSources(t *testing.T) {
	h := newHarness(t, transcripts.StateImport, "")

	req := htmx(httptest.NewRequest(
		http.MethodPut,
		"/editor/C1/sources",
		strings.NewReader(`[{"mode":"youtube","video":"abc"},{"mode":"html5","video":"intro","files":["intro.mp4"]}]`),
	))
	req.Header.Set("Content-Type", "application/json")

	code, body := h.do(t, req)
	if code != http.StatusOK {
		t.Fatalf("code = %d, body = %s", code, body)
	}
	if !strings.Contains(body, `data-state="import"`) {
		t.Errorf("expected the import state: %s", body)
	}
	if len(h.checker.videos) != 2 || h.checker.videos[0].Identifier != "abc" {
		t.Errorf("checked with %+v", h.checker.videos)
	}

	data := h.status(t)
	if data.State != "import" || len(data.Sources) != 2 {
		t.Errorf("status = %+v", data)
	}
}

func TestImport(t *testing.T) {
	h := newHarness(t, transcripts.StateImport, "")
	h.do(t, httptest.NewRequest(http.MethodGet, "/editor/C1", nil))

	code, body := h.do(t, htmx(httptest.NewRequest(http.MethodPost, "/editor/C1/import", nil)))
	if code != http.StatusOK {
		t.Fatalf("code = %d, body = %s", code, body)
	}
	if !strings.Contains(body, `data-state="found"`) {
		t.Errorf("expected the found state: %s", body)
	}

	if cmds := h.service.commands(); len(cmds) != 1 || cmds[0] != transcripts.CommandImport {
		t.Errorf("commands = %v", cmds)
	}
}

func TestImportFailure(t *testing.T) {
	h := newHarness(t, transcripts.StateImport, "")
	h.service.err = errors.New("boom")
	h.do(t, httptest.NewRequest(http.MethodGet, "/editor/C1", nil))

	code, body := h.do(t, htmx(httptest.NewRequest(http.MethodPost, "/editor/C1/import", nil)))
	if code != http.StatusOK {
		t.Fatalf("code = %d", code)
	}
	if !strings.Contains(body, "Error: Import failed.") || !strings.Contains(body, `data-state="import"`) {
		t.Errorf("expected the failure in the import state: %s", body)
	}

	data := h.status(t)
	if !data.Error.Visible || data.Error.ButtonsHidden || data.Busy {
		t.Errorf("status = %+v", data)
	}
}

func TestActionInProgress(t *testing.T) {
	h := newHarness(t, transcripts.StateReplace, "")
	h.service.block = make(chan struct{})
	h.do(t, httptest.NewRequest(http.MethodGet, "/editor/C1", nil))

	done := make(chan int)
	go func() {
		res, err := h.app.Test(httptest.NewRequest(http.MethodPost, "/editor/C1/replace", nil), -1)
		if err != nil {
			done <- 0
			return
		}
		res.Body.Close()
		done <- res.StatusCode
	}()

	deadline := time.Now().Add(5 * time.Second)
	for !h.status(t).Busy {
		if time.Now().After(deadline) {
			t.Fatal("replace was never dispatched")
		}
		time.Sleep(5 * time.Millisecond)
	}

	code, _ := h.do(t, httptest.NewRequest(http.MethodPost, "/editor/C1/import", nil))
	if code != http.StatusConflict {
		t.Errorf("code = %d, want %d", code, http.StatusConflict)
	}

	close(h.service.block)
	if code := <-done; code != http.StatusOK {
		t.Errorf("replace code = %d", code)
	}

	if data := h.status(t); data.State != "replaced" || data.Busy {
		t.Errorf("status = %+v", data)
	}
	if cmds := h.service.commands(); len(cmds) != 1 || cmds[0] != transcripts.CommandReplace {
		t.Errorf("commands = %v", cmds)
	}
}

func TestChoose(t *testing.T) {
	h := newHarness(t, transcripts.StateChoose, "")
	h.do(t, httptest.NewRequest(http.MethodGet, "/editor/C1", nil))

	code, _ := h.do(t, httptest.NewRequest(http.MethodPost, "/editor/C1/choose?video=intro&file=b.srt", nil))
	if code != http.StatusOK {
		t.Fatalf("code = %d", code)
	}

	h.service.mu.Lock()
	defer h.service.mu.Unlock()
	if len(h.service.requests) != 1 || h.service.requests[0].Chosen != "intro" || h.service.requests[0].ChosenFile != "b.srt" {
		t.Errorf("requests = %+v", h.service.requests)
	}
}

func TestUseExisting(t *testing.T) {
	h := newHarness(t, transcripts.StateUseExisting, "")
	h.do(t, httptest.NewRequest(http.MethodGet, "/editor/C1", nil))

	code, _ := h.do(t, httptest.NewRequest(http.MethodPost, "/editor/C1/use_existing", nil))
	if code != http.StatusNotImplemented {
		t.Errorf("code = %d, want %d", code, http.StatusNotImplemented)
	}
	if len(h.service.commands()) != 0 {
		t.Error("use_existing should not send a command")
	}
	if data := h.status(t); data.State != "use_existing" {
		t.Errorf("state = %s", data.State)
	}
}

func TestUpload(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"Success","videos":[{"mode":"html5","video":"intro","files":["intro.srt","old.srt"]}]}`))
	}))
	defer backend.Close()

	h := newHarness(t, transcripts.StateNotFound, backend.URL)
	h.do(t, httptest.NewRequest(http.MethodGet, "/editor/C1", nil))

	req, err := multipartRequest("/editor/C1/upload", "intro", "intro.srt", "1\n00:00:01,000 --> 00:00:02,000\nHello\n")
	if err != nil {
		t.Fatal(err)
	}

	code, body := h.do(t, htmx(req))
	if code != http.StatusOK {
		t.Fatalf("code = %d, body = %s", code, body)
	}
	if !strings.Contains(body, `data-state="choose"`) {
		t.Errorf("expected the choose state: %s", body)
	}
	data := h.status(t)
	if data.Progress != 100 || data.Error.Visible {
		t.Errorf("status = %+v", data)
	}
	if len(data.Sources) != 1 || len(data.Sources[0].LocalFileNames) != 2 {
		t.Errorf("sources not updated after the upload: %+v", data.Sources)
	}
	if !strings.Contains(string(data.Markup), "choose?video=intro") {
		t.Errorf("expected intro to be choosable: %s", data.Markup)
	}
}

func TestUploadWhileCommandInProgress(t *testing.T) {
	var uploads int
	var mu sync.Mutex
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		uploads++
		mu.Unlock()
		w.Write([]byte(`{"status":"Success","videos":[{"mode":"html5","video":"intro","files":["intro.srt"]}]}`))
	}))
	defer backend.Close()

	h := newHarness(t, transcripts.StateImport, backend.URL)
	h.service.block = make(chan struct{})
	h.do(t, httptest.NewRequest(http.MethodGet, "/editor/C1", nil))

	done := make(chan int)
	go func() {
		res, err := h.app.Test(httptest.NewRequest(http.MethodPost, "/editor/C1/import", nil), -1)
		if err != nil {
			done <- 0
			return
		}
		res.Body.Close()
		done <- res.StatusCode
	}()

	deadline := time.Now().Add(5 * time.Second)
	for !h.status(t).Busy {
		if time.Now().After(deadline) {
			t.Fatal("import was never dispatched")
		}
		time.Sleep(5 * time.Millisecond)
	}

	req, err := multipartRequest("/editor/C1/upload", "intro", "intro.srt", "1\n00:00:01,000 --> 00:00:02,000\nHello\n")
	if err != nil {
		t.Fatal(err)
	}
	if code, _ := h.do(t, req); code != http.StatusConflict {
		t.Errorf("upload code = %d, want %d", code, http.StatusConflict)
	}

	close(h.service.block)
	if code := <-done; code != http.StatusOK {
		t.Errorf("import code = %d", code)
	}

	mu.Lock()
	defer mu.Unlock()
	if uploads != 0 {
		t.Errorf("backend received %d uploads, want none", uploads)
	}
	if data := h.status(t); data.State != "found" {
		t.Errorf("state = %s, want found", data.State)
	}
}

func TestUploadRejected(t *testing.T) {
	h := newHarness(t, transcripts.StateNotFound, "http://127.0.0.1:0")
	h.do(t, httptest.NewRequest(http.MethodGet, "/editor/C1", nil))

	req, err := multipartRequest("/editor/C1/upload", "intro", "intro.vtt", "WEBVTT")
	if err != nil {
		t.Fatal(err)
	}

	code, body := h.do(t, htmx(req))
	if code != http.StatusOK {
		t.Fatalf("code = %d", code)
	}
	if !strings.Contains(body, "Error: Uploading failed.") {
		t.Errorf("expected the upload failure: %s", body)
	}
}

func TestClose(t *testing.T) {
	h := newHarness(t, transcripts.StateFound, "")
	h.do(t, httptest.NewRequest(http.MethodGet, "/editor/C1", nil))

	code, _ := h.do(t, httptest.NewRequest(http.MethodDelete, "/editor/C1", nil))
	if code != http.StatusNoContent {
		t.Fatalf("code = %d", code)
	}

	h.do(t, httptest.NewRequest(http.MethodGet, "/editor/C1", nil))
	if h.checker.calls != 2 {
		t.Errorf("checked %d times, want a fresh session to check again", h.checker.calls)
	}
}
