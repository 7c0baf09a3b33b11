package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/handscribe/constants"
	"github.com/joseph-ayodele/handscribe/internal/common"
)

// Artifact is a file ready to hand to the user.
type Artifact struct {
	Filename    string
	ContentType string
	Data        []byte
	// Degraded is set when the HTML fallback replaced the primary document format.
	Degraded bool
}

// DocOptions are passed through to the document encoder.
type DocOptions struct {
	TableRowCantSplit bool
	PageNumbers       bool
}

// DocumentEncoder converts an HTML document into a word-processor document.
type DocumentEncoder interface {
	Encode(ctx context.Context, html string, opts DocOptions) ([]byte, error)
}

// Prober is implemented by encoders that can check their own capability.
type Prober interface {
	Probe(ctx context.Context) error
}

// Service produces download artifacts for extraction results.
type Service struct {
	encoder DocumentEncoder
	opts    DocOptions
	logger  *slog.Logger
}

// NewService checks the encoder once. An encoder that is nil or fails its probe
// is disabled and every printed export goes straight to the HTML fallback.
func NewService(ctx context.Context, enc DocumentEncoder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		encoder: enc,
		opts:    DocOptions{TableRowCantSplit: true, PageNumbers: true},
		logger:  logger,
	}
	if enc == nil {
		logger.Warn("export.docx.disabled", "reason", "no encoder")
		return s
	}
	if p, ok := enc.(Prober); ok {
		start := time.Now()
		if err := p.Probe(ctx); err != nil {
			logger.Warn("export.docx.disabled", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
			s.encoder = nil
			return s
		}
		logger.Debug("export.docx.ready", "elapsed_ms", time.Since(start).Milliseconds())
	}
	return s
}

// DocxAvailable reports whether printed exports use the primary format.
func (s *Service) DocxAvailable() bool { return s.encoder != nil }

// Export builds the artifact for content extracted in mode. filename overrides
// the default download name when non-empty. Printed content never fails: any
// encoder error yields the raw HTML as a .doc file instead.
func (s *Service) Export(ctx context.Context, mode constants.Mode, content, filename string) (Artifact, error) {
	if strings.TrimSpace(content) == "" {
		return Artifact{}, common.NewKindError(common.KindExport, "Nothing to export.", nil)
	}

	if mode != constants.Printed {
		if filename == "" {
			filename = constants.HandwritingFilename
		}
		return Artifact{
			Filename:    filename,
			ContentType: constants.ContentTypeText,
			Data:        []byte(content),
		}, nil
	}

	if filename == "" {
		filename = constants.DocumentFilename
	}
	start := time.Now()
	data, err := s.encodeDocx(ctx, content)
	if err != nil {
		s.logger.Warn("export.docx.fallback", "error", err, "filename", filename,
			"session_id", common.SessionIDFromContext(ctx))
		return fallbackArtifact(content, filename), nil
	}
	s.logger.Info("export.docx.ok", "bytes", len(data), "elapsed_ms", time.Since(start).Milliseconds(),
		"session_id", common.SessionIDFromContext(ctx))
	return Artifact{
		Filename:    filename,
		ContentType: constants.ContentTypeDocx,
		Data:        data,
	}, nil
}

func (s *Service) encodeDocx(ctx context.Context, content string) (data []byte, err error) {
	if s.encoder == nil {
		return nil, fmt.Errorf("document encoder unavailable")
	}
	fragment, err := Normalize(content)
	if err != nil {
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("document encoder panic: %v", r)
		}
	}()
	data, err = s.encoder.Encode(ctx, Shell(fragment), s.opts)
	if err == nil && len(data) == 0 {
		err = fmt.Errorf("document encoder returned no data")
	}
	return data, err
}

// fallbackArtifact carries content verbatim with an extension word processors still open.
func fallbackArtifact(content, filename string) Artifact {
	if strings.HasSuffix(filename, ".docx") {
		filename = strings.TrimSuffix(filename, ".docx") + ".doc"
	}
	return Artifact{
		Filename:    filename,
		ContentType: constants.ContentTypeHTML,
		Data:        []byte(content),
		Degraded:    true,
	}
}
