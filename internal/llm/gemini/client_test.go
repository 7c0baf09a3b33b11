package gemini

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/handscribe/constants"
	"github.com/joseph-ayodele/handscribe/internal/common"
	"github.com/joseph-ayodele/handscribe/internal/llm"
)

type recorded struct {
	path   string
	key    string
	body   map[string]any
	called int32
}

func fakeGemini(t *testing.T, status int, reply string) (*httptest.Server, *recorded) {
	t.Helper()
	rec := &recorded{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&rec.called, 1)
		rec.path = r.URL.Path
		rec.key = r.Header.Get("x-goog-api-key")
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &rec.body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func newTestClient(t *testing.T, baseURL, key string) *Client {
	t.Helper()
	c, err := New(Config{BaseURL: baseURL, Model: "test-model", KeySource: func() string { return key }}, nil)
	require.NoError(t, err)
	return c
}

func textReply(parts ...string) string {
	ps := make([]map[string]any, 0, len(parts))
	for _, p := range parts {
		ps = append(ps, map[string]any{"text": p})
	}
	b, _ := json.Marshal(map[string]any{
		"candidates": []any{map[string]any{
			"content":      map[string]any{"role": "model", "parts": ps},
			"finishReason": "STOP",
		}},
	})
	return string(b)
}

var request = llm.ExtractRequest{MimeType: "image/jpeg", Base64Data: "QUJD", Mode: constants.Printed}

func TestExtractTextReturnsTextUnmodified(t *testing.T) {
	for _, mode := range constants.Modes() {
		t.Run(string(mode), func(t *testing.T) {
			want := "  <p>Test</p>\n\n"
			if mode == constants.Handwritten {
				want = "line1\nline2 [unclear]\n"
			}
			srv, rec := fakeGemini(t, http.StatusOK, textReply(want))
			c := newTestClient(t, srv.URL, "secret")

			req := request
			req.Mode = mode
			got, err := c.ExtractText(context.Background(), req)
			require.NoError(t, err)
			assert.Equal(t, want, got)

			assert.Equal(t, "/models/test-model:generateContent", rec.path)
			assert.Equal(t, "secret", rec.key)

			contents := rec.body["contents"].([]any)
			require.Len(t, contents, 1)
			parts := contents[0].(map[string]any)["parts"].([]any)
			require.Len(t, parts, 2)
			inline := parts[0].(map[string]any)["inlineData"].(map[string]any)
			assert.Equal(t, "image/jpeg", inline["mimeType"])
			assert.Equal(t, "QUJD", inline["data"])
			assert.Equal(t, llm.BuildPrompt(mode), parts[1].(map[string]any)["text"])
		})
	}
}

func TestExtractTextJoinsPartsAndSkipsThoughts(t *testing.T) {
	reply := `{"candidates":[{"content":{"parts":[{"text":"hidden","thought":true},{"text":"<h1>A</h1>"},{"text":"<p>B</p>"}]}}]}`
	srv, _ := fakeGemini(t, http.StatusOK, reply)
	got, err := newTestClient(t, srv.URL, "k").ExtractText(context.Background(), request)
	require.NoError(t, err)
	assert.Equal(t, "<h1>A</h1><p>B</p>", got)
}

func TestExtractTextEmptyResponses(t *testing.T) {
	for name, reply := range map[string]string{
		"no candidates": `{}`,
		"blocked":       `{"promptFeedback":{"blockReason":"SAFETY"}}`,
		"empty text":    textReply(""),
		"no parts":      `{"candidates":[{"content":{},"finishReason":"STOP"}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			srv, _ := fakeGemini(t, http.StatusOK, reply)
			_, err := newTestClient(t, srv.URL, "k").ExtractText(context.Background(), request)
			require.Error(t, err)
			assert.True(t, common.IsKind(err, common.KindEmptyResult))
			assert.Equal(t, common.MsgEmptyResult, common.UserMessage(err))
		})
	}
}

func TestExtractTextMissingKeyNeverCallsRemote(t *testing.T) {
	srv, rec := fakeGemini(t, http.StatusOK, textReply("x"))
	_, err := newTestClient(t, srv.URL, "  ").ExtractText(context.Background(), request)
	require.Error(t, err)
	assert.True(t, common.IsKind(err, common.KindConfiguration))
	assert.Zero(t, atomic.LoadInt32(&rec.called))
}

func TestExtractTextCredentialFailures(t *testing.T) {
	cases := map[string]struct {
		status int
		body   string
	}{
		"message mentions API_KEY": {http.StatusBadRequest, `{"error":{"code":400,"message":"Request had API_KEY_SERVICE_BLOCKED set","status":"INVALID_ARGUMENT"}}`},
		"invalid key reason":       {http.StatusBadRequest, `{"error":{"code":400,"message":"API key not valid.","status":"INVALID_ARGUMENT","details":[{"reason":"API_KEY_INVALID"}]}}`},
		"unauthenticated":          {http.StatusUnauthorized, `{"error":{"code":401,"message":"no","status":"UNAUTHENTICATED"}}`},
		"forbidden without body":   {http.StatusForbidden, ``},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			srv, _ := fakeGemini(t, tc.status, tc.body)
			_, err := newTestClient(t, srv.URL, "bad").ExtractText(context.Background(), request)
			require.Error(t, err)
			assert.True(t, common.IsKind(err, common.KindConfiguration))
			assert.Equal(t, common.MsgConfiguration, common.UserMessage(err))
		})
	}
}

func TestExtractTextRemoteFailuresPassMessageThrough(t *testing.T) {
	srv, rec := fakeGemini(t, http.StatusTooManyRequests, `{"error":{"code":429,"message":"Resource has been exhausted","status":"RESOURCE_EXHAUSTED"}}`)
	_, err := newTestClient(t, srv.URL, "k").ExtractText(context.Background(), request)
	require.Error(t, err)
	assert.True(t, common.IsKind(err, common.KindRemote))
	assert.Equal(t, "Resource has been exhausted", common.UserMessage(err))
	assert.EqualValues(t, 1, atomic.LoadInt32(&rec.called), "no retry")

	srv, _ = fakeGemini(t, http.StatusInternalServerError, `oops`)
	_, err = newTestClient(t, srv.URL, "k").ExtractText(context.Background(), request)
	assert.Equal(t, common.MsgRemoteFallback, common.UserMessage(err))
}

func TestExtractTextMalformedEnvelope(t *testing.T) {
	srv, _ := fakeGemini(t, http.StatusOK, `{"candidates":"nope"}`)
	_, err := newTestClient(t, srv.URL, "k").ExtractText(context.Background(), request)
	require.Error(t, err)
	assert.True(t, common.IsKind(err, common.KindRemote))
}

func TestExtractTextTransportError(t *testing.T) {
	srv, _ := fakeGemini(t, http.StatusOK, textReply("x"))
	c := newTestClient(t, srv.URL, "k")
	srv.Close()

	_, err := c.ExtractText(context.Background(), request)
	require.Error(t, err)
	assert.True(t, common.IsKind(err, common.KindRemote))
	assert.NotEmpty(t, common.UserMessage(err))
}

func TestNewRejectsBrokenConfig(t *testing.T) {
	for name, cfg := range map[string]Config{
		"scheme":  {BaseURL: "ftp://example.com"},
		"model":   {Model: "a/b"},
		"timeout": {Timeout: -1},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := New(cfg, nil)
			require.Error(t, err)
			assert.True(t, common.IsKind(err, common.KindInitialization))
		})
	}

	c, err := New(Config{}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, c.Model())
	assert.True(t, strings.HasPrefix(c.endpoint, DefaultBaseURL))
}

func TestKeyIsReadAtCallTime(t *testing.T) {
	srv, rec := fakeGemini(t, http.StatusOK, textReply("ok"))
	key := ""
	c, err := New(Config{BaseURL: srv.URL, KeySource: func() string { return key }}, nil)
	require.NoError(t, err)

	_, err = c.ExtractText(context.Background(), request)
	assert.True(t, common.IsKind(err, common.KindConfiguration))

	key = "rotated"
	_, err = c.ExtractText(context.Background(), request)
	require.NoError(t, err)
	assert.Equal(t, "rotated", rec.key)
}
