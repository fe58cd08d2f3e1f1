package upload_test

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

	"github.com/laytan/transcripts/internal/transcripts"
	"github.com/laytan/transcripts/internal/upload"
)

type messenger struct {
	mu        sync.Mutex
	progress  []float64
	completed [][]transcripts.VideoSource
	failed    []error
}

func (m *messenger) UploadProgress(p float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.progress = append(m.progress, p)
}

func (m *messenger) UploadCompleted(s []transcripts.VideoSource) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completed = append(m.completed, s)
}

func (m *messenger) UploadFailed(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed = append(m.failed, err)
}

var sources = transcripts.SourceProviderFunc(func() []transcripts.VideoSource {
	return []transcripts.VideoSource{{Kind: transcripts.KindHTML5, Identifier: "intro", LocalFileNames: []string{"intro.mp4"}}}
})

func newUploader(t *testing.T, h http.HandlerFunc) (*upload.Uploader, *messenger) {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	m := &messenger{}
	u := upload.NewFactory(srv.URL, srv.Client(), sources)(m, "C1").(*upload.Uploader)
	return u, m
}

func TestUpload(t *testing.T) {
	u, m := newUploader(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transcripts/upload" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.FormValue("component_id") != "C1" || r.FormValue("video") != "intro" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		var videos []transcripts.VideoSource
		if err := json.Unmarshal([]byte(r.FormValue("videos")), &videos); err != nil || len(videos) != 1 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		f, fh, err := r.FormFile("transcript-file")
		if err != nil || fh.Filename != "intro.srt" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		content, _ := io.ReadAll(f)
		if !strings.Contains(string(content), "Hello") {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		w.Write([]byte(`{"status":"Success","videos":[{"mode":"html5","video":"intro","files":["intro.srt","old.srt"]}]}`))
	})

	err := u.Upload(context.Background(), "intro", "/home/me/intro.srt", strings.NewReader("1\n00:00:01,000 --> 00:00:02,000\nHello\n"))
	if err != nil {
		t.Fatal(err)
	}

	if len(m.failed) != 0 {
		t.Fatalf("failures: %v", m.failed)
	}
	if len(m.completed) != 1 || len(m.completed[0]) != 1 || len(m.completed[0][0].LocalFileNames) != 2 {
		t.Fatalf("completed = %+v", m.completed)
	}
	if len(m.progress) == 0 || m.progress[len(m.progress)-1] != 100 {
		t.Errorf("progress = %v", m.progress)
	}
	if u.Uploading() {
		t.Error("still uploading")
	}
}

func TestUploadFailures(t *testing.T) {
	u, m := newUploader(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte("malformed srt"))
	})

	err := u.Upload(context.Background(), "intro", "intro.srt", strings.NewReader("garbage"))
	var se *upload.StatusError
	if !errors.As(err, &se) || se.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected StatusError, got %v", err)
	}

	err = u.Upload(context.Background(), "intro", "intro.vtt", strings.NewReader("WEBVTT"))
	if !errors.Is(err, upload.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}

	if len(m.failed) != 2 || len(m.completed) != 0 {
		t.Errorf("failed = %v, completed = %v", m.failed, m.completed)
	}
}

func TestRender(t *testing.T) {
	u, _ := newUploader(t, func(w http.ResponseWriter, r *http.Request) {})

	u.Render()
	u.Render()
	if got := u.Renders(); got != 2 {
		t.Errorf("renders = %d, want 2", got)
	}
}
