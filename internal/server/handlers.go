package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/joseph-ayodele/handscribe/constants"
	"github.com/joseph-ayodele/handscribe/internal/common"
	"github.com/joseph-ayodele/handscribe/internal/session"
)

func back(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	c := controllerFrom(r.Context())
	var buf bytes.Buffer
	if err := s.renderer.Render(&buf, c.Snapshot()); err != nil {
		s.logger.Error("http.render.failed", "error", err, "session_id", c.ID())
		http.Error(w, common.MsgUnknown, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	c := controllerFrom(r.Context())
	if s.uploadLimit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.uploadLimit)
	}
	file, hdr, err := r.FormFile("image")
	if err != nil {
		s.logger.Warn("http.image.invalid", "error", err, "session_id", c.ID())
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.Fail(common.NewKindError(common.KindInputParse,
				fmt.Sprintf("The image is larger than the %d MB upload limit.", tooLarge.Limit>>20), err))
		} else {
			c.Fail(common.InputParseError(err))
		}
		back(w, r)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.Fail(common.InputParseError(err))
		back(w, r)
		return
	}
	mimeType := hdr.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = constants.MIMEFromExt(filepath.Ext(hdr.Filename))
	}
	if !constants.IsAcceptedMIME(mimeType) {
		s.logger.Info("http.image.unlisted_type", "mime", mimeType, "name", hdr.Filename, "session_id", c.ID())
	}
	_ = c.Select(session.Upload{Name: hdr.Filename, MimeType: mimeType, Data: data})
	back(w, r)
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	c := controllerFrom(r.Context())
	if m, ok := constants.ParseMode(r.FormValue("mode")); ok {
		c.SetMode(m)
	} else {
		s.logger.Warn("http.mode.unknown", "mode", r.FormValue("mode"), "session_id", c.ID())
	}
	back(w, r)
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	c := controllerFrom(r.Context())
	if _, err := c.Trigger(r.Context()); err != nil {
		s.logger.Info("http.extract.refused", "kind", common.KindOf(err).String(), "session_id", c.ID())
	}
	back(w, r)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	controllerFrom(r.Context()).Clear()
	back(w, r)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	c := controllerFrom(r.Context())
	id := r.PathValue("id")
	if id == "" || c.Snapshot().PreviewID != id {
		http.NotFound(w, r)
		return
	}
	p, ok := s.previews.Get(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	contentType := p.MimeType
	if contentType == "" {
		contentType = http.DetectContentType(p.Data)
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, no-store")
	w.Header().Set("Content-Length", strconv.Itoa(len(p.Data)))
	_, _ = w.Write(p.Data)
}

func (s *Server) handleCopy(w http.ResponseWriter, r *http.Request) {
	c := controllerFrom(r.Context())
	text, err := c.CopyText()
	if err != nil {
		http.Error(w, common.UserMessage(err), http.StatusConflict)
		return
	}
	w.Header().Set("Content-Type", constants.ContentTypeText)
	w.Header().Set("Cache-Control", "no-store")
	_, _ = io.WriteString(w, text)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	c := controllerFrom(r.Context())
	a, err := c.Download(r.Context(), r.URL.Query().Get("format"))
	if err != nil {
		s.logger.Warn("http.download.failed", "error", err, "session_id", c.ID())
		http.Error(w, common.UserMessage(err), http.StatusConflict)
		return
	}
	w.Header().Set("Content-Type", a.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": a.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(a.Data)))
	if a.Degraded {
		w.Header().Set("X-Export-Degraded", "true")
	}
	_, _ = w.Write(a.Data)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":   "ok",
		"sessions": s.store.Len(),
	})
}
