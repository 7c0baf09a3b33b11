package server

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/handscribe/internal/common"
	"github.com/joseph-ayodele/handscribe/internal/session"
)

type ctxKey struct{}

func controllerFrom(ctx context.Context) *session.Controller {
	c, _ := ctx.Value(ctxKey{}).(*session.Controller)
	return c
}

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-Id")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", reqID)
		next.ServeHTTP(w, r.WithContext(common.WithRequestID(r.Context(), reqID)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("http.request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"req_id", common.RequestIDFromContext(r.Context()),
			"elapsed_ms", time.Since(start).Milliseconds())
	})
}

// withSession resolves the session cookie, creating a session when the
// cookie is missing or has expired.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if ck, err := r.Cookie(SessionCookie); err == nil {
			id = ck.Value
		}
		c, created := s.store.GetOrCreate(id)
		if created {
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookie,
				Value:    c.ID(),
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
			if s.initErr != nil {
				c.Fail(s.initErr)
			}
		}
		ctx := context.WithValue(r.Context(), ctxKey{}, c)
		ctx = common.WithSessionID(ctx, c.ID())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// recoverer is the error boundary: a panic in a handler is logged and turned
// into an initialization error on the caller's session.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			err := common.InitializationError(fmt.Errorf("panic: %v", rec))
			s.logger.Error("http.panic",
				"path", r.URL.Path,
				"req_id", common.RequestIDFromContext(r.Context()),
				"session_id", common.SessionIDFromContext(r.Context()),
				"panic", rec,
				"stack", string(debug.Stack()))
			if c := controllerFrom(r.Context()); c != nil {
				c.Fail(err)
				if r.Method == http.MethodPost {
					http.Redirect(w, r, "/", http.StatusSeeOther)
					return
				}
			}
			http.Error(w, common.MsgInitialization, http.StatusInternalServerError)
		}()
		next.ServeHTTP(w, r)
	})
}
