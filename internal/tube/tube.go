// Package tube retrieves caption tracks of YouTube videos.
package tube

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/laytan/transcripts/internal/srt"
)

const EndpointWatch = "https://www.youtube.com/watch"

type Client struct {
	HTTP *http.Client
	// WatchURL defaults to EndpointWatch.
	WatchURL string
}

type ResCaptionsList struct {
	PlayerCaptionsTrackListRenderer struct {
		CaptionTracks []ResTrack
		// There is more, ex:
		// AudioTracks
		// TranslationLanguages
	}
}

type ResTrack struct {
	BaseUrl string
	Name    struct {
		SimpleText string
	}
	LanguageCode   string
	Kind           string
	IsTranslatable bool
}

type Transcript struct {
	Entries []struct {
		Text  string  `xml:",chardata"`
		Start float64 `xml:"start,attr"`
		Dur   float64 `xml:"dur,attr"`
	} `xml:"text"`
}

var (
	ErrNotOk          = errors.New("unexpected non 200 status code")
	ErrToManyRequests = errors.New("too many requests")
	ErrNoCaptions     = errors.New("no caption tracks")
	ErrUnavailable    = errors.New("video unavailable")
)

type TranscriptType int

const (
	TypeNone TranscriptType = iota
	TypeAuto
	TypeManual
)

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

func (c *Client) get(ctx context.Context, url string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("creating request: %w", err)
	}

	res, err := c.httpClient().Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("reading response body: %w", err)
	}

	return res.StatusCode, body, nil
}

// Captions retrieves the best caption track of the video, see bestTrack.
func (c *Client) Captions(ctx context.Context, videoId string) (*Transcript, TranscriptType, error) {
	watch := c.WatchURL
	if watch == "" {
		watch = EndpointWatch
	}

	status, content, err := c.get(ctx, fmt.Sprintf("%s?v=%s", watch, videoId))
	if err != nil {
		return nil, 0, fmt.Errorf("requesting watch page: %w", err)
	}
	sContent := string(content)

	if strings.Contains(sContent, `action="https://consent.youtube.com/s"`) {
		return nil, 0, fmt.Errorf("got consent form for %q", videoId)
	}

	if status != http.StatusOK {
		return nil, 0, fmt.Errorf("watch page %q got code %d: %w", videoId, status, ErrNotOk)
	}

	split := strings.Split(sContent, `"captions":`)
	if len(split) <= 1 {
		if strings.Contains(sContent, `class="g-recaptcha"`) {
			return nil, 0, fmt.Errorf("video %q got captcha: %w", videoId, ErrToManyRequests)
		}

		if strings.Contains(sContent, `"playabilityStatus"`) &&
			strings.Contains(sContent, `"ERROR"`) {
			return nil, 0, fmt.Errorf(
				"video %q not playable, maybe unlisted?: %w",
				videoId,
				ErrUnavailable,
			)
		}

		return nil, 0, fmt.Errorf("no captions json for %q: %w", videoId, ErrNoCaptions)
	}

	rawCaptions := strings.ReplaceAll(strings.Split(split[1], `,"videoDetails`)[0], "\n", "")
	captionsList := ResCaptionsList{}
	if err := json.Unmarshal([]byte(rawCaptions), &captionsList); err != nil {
		return nil, 0, fmt.Errorf("could not unmarshal caption results %q: %w", rawCaptions, err)
	}

	track, trackType := bestTrack(captionsList.PlayerCaptionsTrackListRenderer.CaptionTracks)
	if trackType == TypeNone {
		return nil, 0, fmt.Errorf("video %q: %w", videoId, ErrNoCaptions)
	}

	status, body, err := c.get(ctx, track.BaseUrl)
	if err != nil {
		return nil, 0, fmt.Errorf("captions request: %w", err)
	}

	if status != http.StatusOK {
		return nil, 0, fmt.Errorf("captions file status code %d: %w", status, ErrNotOk)
	}

	transcript := Transcript{}
	if err := xml.Unmarshal(body, &transcript); err != nil {
		return nil, 0, fmt.Errorf("could not parse transcript xml %q: %w", body, err)
	}

	if len(transcript.Entries) == 0 {
		return nil, 0, fmt.Errorf("video %q has an empty track: %w", videoId, ErrNoCaptions)
	}

	return &transcript, trackType, nil
}

// Cues converts the transcript entries to srt cues, unescaping their text.
func (t *Transcript) Cues() []srt.Cue {
	cues := make([]srt.Cue, 0, len(t.Entries))
	for _, e := range t.Entries {
		start := time.Duration(e.Start * float64(time.Second))
		cues = append(cues, srt.Cue{
			Start: start,
			End:   start + time.Duration(e.Dur*float64(time.Second)),
			Text:  html.UnescapeString(strings.TrimSpace(e.Text)),
		})
	}
	return cues
}

// Returns the "best" track, which is an english track non automatic.
// Then goes for english automatic,
// Then for non-english non-automatic,
// Then for non-english automatic.
func bestTrack(tracks []ResTrack) (*ResTrack, TranscriptType) {
	for _, t := range tracks {
		if t.LanguageCode == "en" && t.Kind != "asr" {
			return &t, TypeManual
		}
	}

	for _, t := range tracks {
		if t.LanguageCode == "en" {
			return &t, TypeAuto
		}
	}

	for _, t := range tracks {
		if t.Kind != "asr" {
			return &t, TypeManual
		}
	}

	if len(tracks) > 0 {
		return &tracks[0], TypeAuto
	}

	return nil, TypeNone
}
