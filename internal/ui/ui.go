// Package ui renders the single page of the extractor.
package ui

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"golang.org/x/net/html/atom"

	"github.com/joseph-ayodele/handscribe/constants"
	"github.com/joseph-ayodele/handscribe/internal/htmltext"
	"github.com/joseph-ayodele/handscribe/internal/session"
)

//go:embed templates/index.html
var templatesFS embed.FS

// Options configure the static parts of the page.
type Options struct {
	Model       string
	MaxUploadMB int
	CopyReset   time.Duration
}

// Renderer renders session views into the page.
type Renderer struct {
	tmpl *template.Template
	opts Options
}

func NewRenderer(opts Options) (*Renderer, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	if opts.MaxUploadMB <= 0 {
		opts.MaxUploadMB = constants.MaxUploadMBDefault
	}
	if opts.CopyReset <= 0 {
		opts.CopyReset = 2 * time.Second
	}
	return &Renderer{tmpl: tmpl, opts: opts}, nil
}

type modeOption struct {
	Value  string
	Label  string
	Active bool
}

type page struct {
	session.View

	Loading bool
	Failed  bool
	Success bool
	Printed bool
	Copied  bool

	HTML      template.HTML
	HasTables bool

	Modes         []modeOption
	DownloadLabel string
	DownloadTitle string
	ModelLabel    string
	MaxUploadMB   int
	Accept        string
	CopyResetMS   int64
}

// Render writes the page for v. Exactly one of the loading, error, result and
// placeholder views is produced.
func (r *Renderer) Render(w io.Writer, v session.View) error {
	p := page{
		View:        v,
		Loading:     v.Phase == constants.PhaseLoading,
		Failed:      v.Phase == constants.PhaseError,
		Success:     v.Phase == constants.PhaseSuccess,
		Copied:      v.Copy == constants.CopyCopied,
		ModelLabel:  ModelLabel(r.opts.Model),
		MaxUploadMB: r.opts.MaxUploadMB,
		Accept:      strings.Join(constants.AcceptedMIMETypes, ", "),
		CopyResetMS: r.opts.CopyReset.Milliseconds(),
	}
	for _, m := range constants.Modes() {
		p.Modes = append(p.Modes, modeOption{Value: string(m), Label: m.Label(), Active: m == v.Mode})
	}

	p.DownloadLabel, p.DownloadTitle = "Text", "Download Text (.txt)"
	if p.Success && v.ResultMode == constants.Printed {
		p.Printed = true
		p.DownloadLabel, p.DownloadTitle = "Word", "Download Word (.docx)"
		p.HTML = template.HTML(Sanitize(v.Text))
		if body, err := htmltext.Parse(v.Text); err == nil {
			p.HasTables = htmltext.First(body, atom.Table) != nil
		}
	}
	return r.tmpl.Execute(w, p)
}

// ModelLabel turns a model id such as "gemini-3-flash-preview" into "Gemini 3 Flash".
func ModelLabel(model string) string {
	model = strings.TrimPrefix(model, "models/")
	var words []string
	for _, part := range strings.Split(model, "-") {
		switch part {
		case "", "preview", "latest", "exp":
			continue
		}
		words = append(words, strings.ToUpper(part[:1])+part[1:])
	}
	return strings.Join(words, " ")
}
