package llm

import (
	"context"

	"github.com/joseph-ayodele/handscribe/constants"
	"github.com/joseph-ayodele/handscribe/internal/encode"
)

// ExtractRequest is built once per extraction attempt and never mutated.
type ExtractRequest struct {
	MimeType   string
	Base64Data string
	Mode       constants.Mode
}

// NewExtractRequest pairs an encoded image with the mode it should be read in.
func NewExtractRequest(p encode.Payload, mode constants.Mode) ExtractRequest {
	return ExtractRequest{MimeType: p.MimeType, Base64Data: p.Base64Data, Mode: mode}
}

// Extractor is the interface the session controller depends on.
// Implementations return the model's text unmodified: HTML for Printed,
// plain/markdown text for Handwritten.
type Extractor interface {
	ExtractText(ctx context.Context, req ExtractRequest) (string, error)
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(ctx context.Context, req ExtractRequest) (string, error)

func (f ExtractorFunc) ExtractText(ctx context.Context, req ExtractRequest) (string, error) {
	return f(ctx, req)
}
