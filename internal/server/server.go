// Package server exposes the extractor over HTTP.
package server

import (
	"log/slog"
	"net/http"

	"github.com/joseph-ayodele/handscribe/internal/session"
	"github.com/joseph-ayodele/handscribe/internal/ui"
)

const SessionCookie = "handscribe_session"

// Options wire the HTTP surface to the rest of the process.
type Options struct {
	Store    *session.Store
	Previews *session.MemoryPreviews
	Renderer *ui.Renderer
	Logger   *slog.Logger
	// UploadLimitBytes refuses larger request bodies; 0 means no limit. The
	// size printed on the page is guidance only and is not checked here.
	UploadLimitBytes int64
	// InitErr, when set, is shown to every new session: the extraction client
	// could not be built.
	InitErr error
}

type Server struct {
	store       *session.Store
	previews    *session.MemoryPreviews
	renderer    *ui.Renderer
	logger      *slog.Logger
	uploadLimit int64
	initErr     error
}

func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Server{
		store:       opts.Store,
		previews:    opts.Previews,
		renderer:    opts.Renderer,
		logger:      opts.Logger,
		uploadLimit: opts.UploadLimitBytes,
		initErr:     opts.InitErr,
	}
}

// Handler returns the routed handler with request id, session and panic
// recovery middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)

	app := http.NewServeMux()
	app.HandleFunc("GET /{$}", s.handleIndex)
	app.HandleFunc("GET /preview/{id}", s.handlePreview)
	app.HandleFunc("POST /image", s.handleImage)
	app.HandleFunc("POST /mode", s.handleMode)
	app.HandleFunc("POST /extract", s.handleExtract)
	app.HandleFunc("POST /clear", s.handleClear)
	app.HandleFunc("POST /copy", s.handleCopy)
	app.HandleFunc("GET /download", s.handleDownload)
	mux.Handle("/", s.withSession(s.recoverer(app)))

	return s.withRequestID(s.withLogging(s.recoverer(mux)))
}
