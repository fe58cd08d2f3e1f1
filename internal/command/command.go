// Package command executes transcripts commands against the backend over HTTP.
package command

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/laytan/transcripts/internal/transcripts"
)

var (
	ErrNotSuccess     = errors.New("backend did not report success")
	ErrUnknownCommand = errors.New("unknown command")
)

// StatusError is a non 2xx response of the backend.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend responded with status code %d: %q", e.Code, e.Body)
}

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

type response struct {
	Status  string `json:"status"`
	Command string `json:"command"`
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

func (c *Client) post(ctx context.Context, path string, payload any) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshalling request: %w", err)
	}

	url := strings.TrimRight(c.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting %s: %w", path, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response of %s: %w", path, err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, &StatusError{Code: res.StatusCode, Body: string(raw)}
	}

	var r response
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("unmarshalling response of %s %q: %w", path, string(raw), err)
	}
	if r.Status != "Success" {
		return nil, fmt.Errorf("%s responded with status %q: %w", path, r.Status, ErrNotSuccess)
	}

	return raw, nil
}

// Execute implements transcripts.CommandService.
func (c *Client) Execute(ctx context.Context, req transcripts.CommandRequest) (json.RawMessage, error) {
	if !req.Command.Valid() {
		return nil, fmt.Errorf("command %q: %w", req.Command, ErrUnknownCommand)
	}

	return c.post(ctx, "/transcripts/"+string(req.Command), req)
}

// Check asks the backend which state the component's transcripts are in.
func (c *Client) Check(
	ctx context.Context,
	componentID string,
	videos []transcripts.VideoSource,
) (transcripts.State, error) {
	raw, err := c.post(ctx, "/transcripts/check", struct {
		ComponentID string                    `json:"component_id"`
		Videos      []transcripts.VideoSource `json:"videos"`
	}{componentID, videos})
	if err != nil {
		return transcripts.StateNone, err
	}

	var r response
	if err := json.Unmarshal(raw, &r); err != nil {
		return transcripts.StateNone, fmt.Errorf("unmarshalling check response: %w", err)
	}

	return transcripts.ParseState(r.Command)
}
