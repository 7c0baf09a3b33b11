package async

import (
	"context"
	"time"
)

// Job is one extraction attempt. Run receives a context that ends when the
// queue is torn down (or the per-job timeout, if configured, expires).
type Job struct {
	SessionID   string
	Attempt     uint64
	SubmittedAt time.Time
	TraceID     string
	Run         func(ctx context.Context)
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
