// Package upload sends transcript files to the backend and reports back to a transcripts.Messenger.
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"sync"

	"github.com/laytan/transcripts/internal/transcripts"
)

var (
	ErrInProgress  = errors.New("an upload is already in progress")
	ErrUnsupported = errors.New("only .srt files can be uploaded")
)

// StatusError is a non 2xx response to an upload.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upload responded with status code %d: %q", e.Code, e.Body)
}

type Uploader struct {
	messenger   transcripts.Messenger
	componentID string
	baseURL     string
	client      *http.Client
	sources     transcripts.SourceProvider

	mu        sync.Mutex
	uploading bool
	renders   int
}

// NewFactory returns the factory a coordinator uses to create its uploader.
func NewFactory(
	baseURL string,
	client *http.Client,
	sources transcripts.SourceProvider,
) transcripts.UploaderFactory {
	if client == nil {
		client = http.DefaultClient
	}

	return func(m transcripts.Messenger, componentID string) transcripts.Uploader {
		return &Uploader{
			messenger:   m,
			componentID: componentID,
			baseURL:     strings.TrimRight(baseURL, "/"),
			client:      client,
			sources:     sources,
		}
	}
}

// Render resets the widget, the status markup it lives in was replaced.
func (u *Uploader) Render() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.renders++
}

// Renders is the amount of times the widget was rendered.
func (u *Uploader) Renders() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.renders
}

func (u *Uploader) Uploading() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.uploading
}

type response struct {
	Status string                    `json:"status"`
	Videos []transcripts.VideoSource `json:"videos"`
}

// Upload sends the transcript file for the given video source.
// The messenger is notified of progress and of the result, which is also returned.
func (u *Uploader) Upload(ctx context.Context, videoID, fileName string, file io.Reader) (err error) {
	u.mu.Lock()
	if u.uploading {
		u.mu.Unlock()
		return ErrInProgress
	}
	u.uploading = true
	u.mu.Unlock()

	defer func() {
		u.mu.Lock()
		u.uploading = false
		u.mu.Unlock()

		if err != nil {
			log.Printf("[WARN]: %s: upload of %q failed: %v", u.componentID, fileName, err)
			u.messenger.UploadFailed(err)
		}
	}()

	if !strings.EqualFold(filepath.Ext(fileName), ".srt") {
		return fmt.Errorf("file %q: %w", fileName, ErrUnsupported)
	}

	body, contentType, err := u.form(videoID, fileName, file)
	if err != nil {
		return err
	}

	total := int64(body.Len())
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		u.baseURL+"/transcripts/upload",
		&progressReader{r: body, total: total, report: u.messenger.UploadProgress},
	)
	if err != nil {
		return fmt.Errorf("creating upload request: %w", err)
	}
	req.ContentLength = total
	req.Header.Set("Content-Type", contentType)

	res, err := u.client.Do(req)
	if err != nil {
		return fmt.Errorf("uploading %q: %w", fileName, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("reading upload response: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return &StatusError{Code: res.StatusCode, Body: string(raw)}
	}

	var r response
	if err := json.Unmarshal(raw, &r); err != nil {
		return fmt.Errorf("unmarshalling upload response %q: %w", string(raw), err)
	}
	if r.Status != "Success" {
		return fmt.Errorf("upload responded with status %q", r.Status)
	}

	log.Printf("[INFO]: %s: uploaded %q for %q", u.componentID, fileName, videoID)
	u.messenger.UploadCompleted(r.Videos)
	return nil
}

func (u *Uploader) form(videoID, fileName string, file io.Reader) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	var videos []transcripts.VideoSource
	if u.sources != nil {
		videos = u.sources.VideoSources()
	}
	rawVideos, err := json.Marshal(videos)
	if err != nil {
		return nil, "", fmt.Errorf("marshalling videos: %w", err)
	}

	fields := [][2]string{
		{"component_id", u.componentID},
		{"video", videoID},
		{"videos", string(rawVideos)},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("writing field %q: %w", f[0], err)
		}
	}

	fw, err := w.CreateFormFile("transcript-file", filepath.Base(fileName))
	if err != nil {
		return nil, "", fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(fw, file); err != nil {
		return nil, "", fmt.Errorf("reading %q: %w", fileName, err)
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("closing form: %w", err)
	}

	return buf, w.FormDataContentType(), nil
}

// progressReader reports every whole percent read.
type progressReader struct {
	r      io.Reader
	total  int64
	read   int64
	last   int
	report func(float64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)

	if p.total > 0 {
		pct := int(p.read * 100 / p.total)
		if pct > p.last {
			p.last = pct
			p.report(float64(pct))
		}
	}

	return n, err
}
