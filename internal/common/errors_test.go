package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOfThroughWrapping(t *testing.T) {
	base := EmptyResultError()
	wrapped := fmt.Errorf("extract: %w", base)

	assert.Equal(t, KindEmptyResult, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, KindEmptyResult))
	assert.False(t, IsKind(wrapped, KindRemote))
	assert.False(t, IsKind(nil, KindEmptyResult))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "", UserMessage(nil))
	assert.Equal(t, MsgConfiguration, UserMessage(ConfigurationError(errors.New("401"))))
	assert.Equal(t, MsgNoImage, UserMessage(fmt.Errorf("ctl: %w", NoImageError())))
	assert.Equal(t, "socket closed", UserMessage(errors.New("socket closed")))
}

func TestRemoteErrorFallsBackToGenericMessage(t *testing.T) {
	err := RemoteError("", nil)
	assert.Equal(t, MsgRemoteFallback, err.Message)
	assert.Equal(t, KindRemote, err.Kind)

	err = RemoteError("quota exceeded", errors.New("429"))
	assert.Equal(t, "quota exceeded", UserMessage(err))
	assert.Equal(t, "REMOTE: quota exceeded: 429", err.Error())
}

func TestAppErrorUnwrap(t *testing.T) {
	cause := errors.New("disk gone")
	err := InputParseError(cause)
	require.ErrorIs(t, err, cause)
	assert.Equal(t, "INPUT_PARSE", err.Code)
}

func TestWrapError(t *testing.T) {
	assert.Nil(t, WrapError(nil, "ctx"))
	err := WrapError(ErrInvalidInput, "ctx")
	assert.EqualError(t, err, "ctx: invalid input")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
