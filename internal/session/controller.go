package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/handscribe/constants"
	"github.com/joseph-ayodele/handscribe/internal/async"
	"github.com/joseph-ayodele/handscribe/internal/common"
	"github.com/joseph-ayodele/handscribe/internal/encode"
	"github.com/joseph-ayodele/handscribe/internal/export"
	"github.com/joseph-ayodele/handscribe/internal/htmltext"
	"github.com/joseph-ayodele/handscribe/internal/llm"
)

// Download formats.
const (
	FormatDocument = "doc"
	FormatTables   = "xlsx"
)

const defaultCopyReset = 2 * time.Second

// Upload is a user-picked image file.
type Upload struct {
	Name     string
	MimeType string
	Data     []byte
}

// Deps are shared by every controller of a process.
type Deps struct {
	Extractor llm.Extractor
	Exporter  *export.Service
	Previews  PreviewRegistry
	// Queue runs extractions; nil runs each one on its own goroutine.
	Queue     async.Queue
	Logger    *slog.Logger
	Now       func() time.Time
	CopyReset time.Duration
}

// View is a consistent snapshot of a session for rendering.
type View struct {
	SessionID  string
	Phase      constants.Phase
	Mode       constants.Mode
	ImageName  string
	PreviewID  string
	Text       string
	ResultMode constants.Mode
	Error      string
	Copy       constants.CopyStatus
}

type selection struct {
	upload    Upload
	previewID string
}

// Controller owns one session's state: the selected image, the mode and the
// outcome of the latest extraction attempt.
type Controller struct {
	id   string
	deps Deps

	mu         sync.Mutex
	image      *selection
	mode       constants.Mode
	outcome    Outcome
	attempt    uint64
	done       chan struct{}
	copiedAt   time.Time
	lastActive time.Time
}

func NewController(id string, deps Deps) *Controller {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.CopyReset <= 0 {
		deps.CopyReset = defaultCopyReset
	}
	if deps.Previews == nil {
		deps.Previews = NewMemoryPreviews()
	}
	if deps.Exporter == nil {
		deps.Exporter = export.NewService(context.Background(), nil, deps.Logger)
	}
	deps.Logger = deps.Logger.With("session_id", id)
	return &Controller{
		id:         id,
		deps:       deps,
		mode:       constants.DefaultMode,
		outcome:    Idle{},
		lastActive: deps.Now(),
	}
}

func (c *Controller) ID() string { return c.id }

// Select replaces the current image. The previous preview is released first
// and any extraction still in flight is abandoned.
func (c *Controller) Select(u Upload) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()

	c.releaseImage()
	c.attempt++
	id, err := c.deps.Previews.Create(u.MimeType, u.Data)
	if err != nil {
		perr := common.InputParseError(err)
		c.setOutcome(Failed{Err: perr})
		c.deps.Logger.Warn("session.select.failed", "name", u.Name, "error", err)
		return perr
	}
	c.image = &selection{upload: u, previewID: id}
	c.setOutcome(Idle{})
	c.deps.Logger.Info("session.select", "name", u.Name, "mime", u.MimeType, "bytes", len(u.Data), "preview_id", id)
	return nil
}

// SetMode changes the mode used by the next extraction.
func (c *Controller) SetMode(m constants.Mode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()
	c.mode = m
}

// Trigger starts an extraction and returns a channel closed when it settles.
// With no image the outcome becomes the "select an image" error and the
// extractor is never called; while loading it returns a busy error and
// changes nothing.
func (c *Controller) Trigger(ctx context.Context) (<-chan struct{}, error) {
	c.mu.Lock()
	c.touch()
	if _, loading := c.outcome.(Loading); loading {
		c.mu.Unlock()
		return nil, common.BusyError()
	}
	if c.image == nil {
		err := common.NoImageError()
		c.setOutcome(Failed{Err: err})
		c.mu.Unlock()
		return nil, err
	}
	c.attempt++
	attempt := c.attempt
	upload := c.image.upload
	mode := c.mode
	done := make(chan struct{})
	c.done = done
	c.setOutcome(Loading{Attempt: attempt, Since: c.deps.Now()})
	c.mu.Unlock()

	traceID := common.RequestIDFromContext(ctx)
	if traceID == "" {
		traceID = uuid.NewString()
	}
	run := func(runCtx context.Context) {
		defer close(done)
		runCtx = common.WithSessionID(common.WithRequestID(runCtx, traceID), c.id)
		text, err := c.extract(runCtx, upload, mode)
		c.finish(attempt, mode, text, err)
	}

	c.deps.Logger.Info("session.extract.start", "attempt", attempt, "mode", string(mode), "req_id", traceID)
	if c.deps.Queue == nil {
		go run(context.WithoutCancel(ctx))
		return done, nil
	}
	err := c.deps.Queue.Enqueue(ctx, async.Job{
		SessionID:   c.id,
		Attempt:     attempt,
		SubmittedAt: c.deps.Now(),
		TraceID:     traceID,
		Run:         run,
	})
	if err != nil {
		c.finish(attempt, mode, "", common.RemoteError("", err))
		close(done)
	}
	return done, nil
}

// Extract triggers an extraction and waits for it to settle. It returns the
// failure stored in the outcome, if any.
func (c *Controller) Extract(ctx context.Context) error {
	done, err := c.Trigger(ctx)
	if err != nil {
		return err
	}
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if f, ok := c.outcome.(Failed); ok {
		return f.Err
	}
	return nil
}

func (c *Controller) extract(ctx context.Context, u Upload, mode constants.Mode) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.deps.Logger.Error("session.extract.panic", "panic", r)
			err = common.InitializationError(fmt.Errorf("%v", r))
		}
	}()
	if c.deps.Extractor == nil {
		return "", common.InitializationError(errors.New("extraction client unavailable"))
	}
	payload, err := encode.Encode(ctx, bytes.NewReader(u.Data), u.MimeType)
	if err != nil {
		return "", err
	}
	return c.deps.Extractor.ExtractText(ctx, llm.NewExtractRequest(payload, mode))
}

func (c *Controller) finish(attempt uint64, mode constants.Mode, text string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if attempt != c.attempt {
		c.deps.Logger.Info("session.extract.stale", "attempt", attempt, "current", c.attempt)
		return
	}
	c.done = nil
	switch {
	case err != nil:
		c.setOutcome(Failed{Err: err})
		c.deps.Logger.Warn("session.extract.failed", "attempt", attempt, "kind", common.KindOf(err).String(), "error", err)
	case text == "":
		c.setOutcome(Failed{Err: common.EmptyResultError()})
		c.deps.Logger.Warn("session.extract.failed", "attempt", attempt, "kind", common.KindEmptyResult.String())
	default:
		c.setOutcome(Succeeded{Text: text, Mode: mode})
		c.deps.Logger.Info("session.extract.ok", "attempt", attempt, "chars", len(text))
	}
}

// Clear drops the image and result, releases the preview and resets the mode.
func (c *Controller) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()
	c.releaseImage()
	c.attempt++
	c.mode = constants.DefaultMode
	c.setOutcome(Idle{})
	c.deps.Logger.Info("session.clear")
}

// Fail routes an error raised outside the extraction lifecycle into the
// error panel. Any extraction in flight is abandoned.
func (c *Controller) Fail(err error) {
	if err == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attempt++
	c.setOutcome(Failed{Err: err})
	c.deps.Logger.Error("session.fail", "kind", common.KindOf(err).String(), "error", err)
}

// Close releases everything the session holds.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.releaseImage()
	c.attempt++
	c.outcome = Idle{}
}

// Outcome returns the current outcome variant.
func (c *Controller) Outcome() Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outcome
}

// Done returns the channel of the extraction in flight, nil when idle.
func (c *Controller) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

func (c *Controller) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := View{
		SessionID: c.id,
		Phase:     phaseOf(c.outcome, c.image != nil),
		Mode:      c.mode,
		Copy:      c.copyStatus(),
	}
	if c.image != nil {
		v.ImageName = c.image.upload.Name
		v.PreviewID = c.image.previewID
	}
	switch o := c.outcome.(type) {
	case Succeeded:
		v.Text = o.Text
		v.ResultMode = o.Mode
	case Failed:
		v.Error = common.UserMessage(o.Err)
	}
	return v
}

// CopyText returns what the copy button puts on the clipboard: the visible
// text of the rendered HTML for printed results, the raw text otherwise.
func (c *Controller) CopyText() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()
	s, ok := c.outcome.(Succeeded)
	if !ok {
		return "", common.NewKindError(common.KindExport, "Nothing to copy yet.", nil)
	}
	c.copiedAt = c.deps.Now()
	if s.Mode == constants.Printed {
		return htmltext.VisibleText(s.Text), nil
	}
	return s.Text, nil
}

func (c *Controller) CopyStatus() constants.CopyStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.copyStatus()
}

func (c *Controller) copyStatus() constants.CopyStatus {
	if c.copiedAt.IsZero() {
		return constants.CopyIdle
	}
	if c.deps.Now().Sub(c.copiedAt) >= c.deps.CopyReset {
		c.copiedAt = time.Time{}
		return constants.CopyIdle
	}
	return constants.CopyCopied
}

// Download exports the current result. format is FormatDocument (the mode's
// own format: .txt, .docx or the .doc fallback) or FormatTables.
func (c *Controller) Download(ctx context.Context, format string) (export.Artifact, error) {
	c.mu.Lock()
	c.touch()
	s, ok := c.outcome.(Succeeded)
	c.mu.Unlock()
	if !ok {
		return export.Artifact{}, common.NewKindError(common.KindExport, "Nothing to download yet.", nil)
	}

	ctx = common.WithSessionID(ctx, c.id)
	switch format {
	case "", FormatDocument, "docx", "txt":
		return c.deps.Exporter.Export(ctx, s.Mode, s.Text, "")
	case FormatTables:
		if s.Mode != constants.Printed {
			return export.Artifact{}, common.NewKindError(common.KindExport, "Tables are only available for printed text.", nil)
		}
		data, n, err := export.TablesXLSX(s.Text)
		if err != nil {
			return export.Artifact{}, err
		}
		c.deps.Logger.Info("export.xlsx.ok", "tables", n, "bytes", len(data))
		return export.Artifact{
			Filename:    constants.TablesFilename,
			ContentType: constants.ContentTypeXLSX,
			Data:        data,
		}, nil
	default:
		return export.Artifact{}, common.NewKindError(common.KindExport, fmt.Sprintf("Unknown download format %q.", format), nil)
	}
}

// LastActive is when the session was last used.
func (c *Controller) LastActive() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActive
}

func (c *Controller) busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, loading := c.outcome.(Loading)
	return loading
}

func (c *Controller) touch() { c.lastActive = c.deps.Now() }

func (c *Controller) setOutcome(o Outcome) {
	c.outcome = o
	c.copiedAt = time.Time{}
	if _, loading := o.(Loading); !loading {
		c.done = nil
	}
}

func (c *Controller) releaseImage() {
	if c.image == nil {
		return
	}
	c.deps.Previews.Release(c.image.previewID)
	c.image = nil
}
