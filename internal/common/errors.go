package common

import (
	"errors"
	"fmt"
)

// Kind discriminates failures so callers never have to inspect message text.
type Kind int

const (
	KindUnknown Kind = iota
	KindInputParse
	KindRemote
	KindEmptyResult
	KindConfiguration
	KindExport
	KindInitialization
	KindNoImage
	KindBusy
)

func (k Kind) String() string {
	switch k {
	case KindInputParse:
		return "INPUT_PARSE"
	case KindRemote:
		return "REMOTE"
	case KindEmptyResult:
		return "EMPTY_RESULT"
	case KindConfiguration:
		return "CONFIG_ERROR"
	case KindExport:
		return "EXPORT"
	case KindInitialization:
		return "INITIALIZATION"
	case KindNoImage:
		return "NO_IMAGE"
	case KindBusy:
		return "BUSY"
	default:
		return "UNKNOWN"
	}
}

// User-facing messages.
const (
	MsgInputParse     = "Could not parse file data."
	MsgEmptyResult    = "The AI returned an empty response. The image might be too blurry or contains no recognizable text."
	MsgConfiguration  = "Missing or invalid API key configuration."
	MsgRemoteFallback = "An unexpected error occurred during image analysis."
	MsgInitialization = "System Error: A library initialization failed. Please refresh the page."
	MsgNoImage        = "Please select or capture an image first."
	MsgBusy           = "An extraction is already in progress."
	MsgUnknown        = "An unknown error occurred."
)

// AppError represents application-specific errors
type AppError struct {
	Kind    Kind
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// ErrInvalidInput is the cause of configuration errors with no underlying error.
var ErrInvalidInput = errors.New("invalid input")

// NewKindError builds an AppError whose code is derived from kind.
func NewKindError(kind Kind, message string, cause error) *AppError {
	return &AppError{
		Kind:    kind,
		Code:    kind.String(),
		Message: message,
		Cause:   cause,
	}
}

func InputParseError(cause error) *AppError {
	return NewKindError(KindInputParse, MsgInputParse, cause)
}

func EmptyResultError() *AppError {
	return NewKindError(KindEmptyResult, MsgEmptyResult, nil)
}

func ConfigurationError(cause error) *AppError {
	return NewKindError(KindConfiguration, MsgConfiguration, cause)
}

func InitializationError(cause error) *AppError {
	return NewKindError(KindInitialization, MsgInitialization, cause)
}

func NoImageError() *AppError {
	return NewKindError(KindNoImage, MsgNoImage, nil)
}

func BusyError() *AppError {
	return NewKindError(KindBusy, MsgBusy, nil)
}

// RemoteError carries the provider's message; an empty one falls back to the generic text.
func RemoteError(message string, cause error) *AppError {
	if message == "" {
		message = MsgRemoteFallback
	}
	return NewKindError(KindRemote, message, cause)
}

// KindOf returns the Kind of the first AppError in err's chain.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// UserMessage collapses any failure into the single line shown in the error panel.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return MsgUnknown
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
