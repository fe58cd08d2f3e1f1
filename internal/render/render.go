package render

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"net/http"

	"github.com/gofiber/template/html"
	"github.com/laytan/transcripts/internal/transcripts"
)

var (
	//go:embed templates
	_templatesFS embed.FS
	TemplatesFS  fs.FS
)

func init() {
	subTemplatesFS, err := fs.Sub(_templatesFS, "templates")
	if err != nil {
		panic(err)
	}
	TemplatesFS = subTemplatesFS
}

// Renderer renders the transcripts status templates.
type Renderer struct {
	engine *html.Engine
	fsys   fs.FS
	reload bool
}

// New creates a renderer over the embedded templates.
func New(reload bool) (*Renderer, error) {
	return NewFS(TemplatesFS, reload)
}

// NewFS creates a renderer over the .html templates in fsys.
// Every transcripts.TemplateKeys entry has to be present, a missing one is a packaging defect
// and results in transcripts.ErrUnknownTemplate.
// With reload the templates are parsed again for every render.
func NewFS(fsys fs.FS, reload bool) (*Renderer, error) {
	engine, err := load(fsys)
	if err != nil {
		return nil, err
	}

	for _, key := range transcripts.TemplateKeys {
		if engine.Templates.Lookup(string(key)) == nil {
			return nil, fmt.Errorf("template %q: %w", key, transcripts.ErrUnknownTemplate)
		}
	}

	return &Renderer{engine: engine, fsys: fsys, reload: reload}, nil
}

func load(fsys fs.FS) (*html.Engine, error) {
	engine := html.NewFileSystem(http.FS(fsys), ".html")
	if err := engine.Load(); err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}
	return engine, nil
}

func (r *Renderer) Render(key transcripts.TemplateKey, data transcripts.RenderData) (string, error) {
	if !known(key) {
		return "", fmt.Errorf("template %q: %w", key, transcripts.ErrUnknownTemplate)
	}

	engine := r.engine
	if r.reload {
		e, err := load(r.fsys)
		if err != nil {
			return "", err
		}
		engine = e
	}

	if engine.Templates.Lookup(string(key)) == nil {
		return "", fmt.Errorf("template %q: %w", key, transcripts.ErrUnknownTemplate)
	}

	buf := bytes.Buffer{}
	if err := engine.Render(&buf, string(key), data); err != nil {
		return "", fmt.Errorf("executing template %q: %w", key, err)
	}

	return buf.String(), nil
}

func known(key transcripts.TemplateKey) bool {
	for _, k := range transcripts.TemplateKeys {
		if k == key {
			return true
		}
	}
	return false
}
