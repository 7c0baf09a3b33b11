package llm

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/handscribe/constants"
	"github.com/joseph-ayodele/handscribe/internal/common"
	"github.com/joseph-ayodele/handscribe/internal/encode"
)

func TestBuildPromptPrinted(t *testing.T) {
	p := BuildPrompt(constants.Printed)
	assert.Contains(t, p, "semantic HTML")
	assert.Contains(t, p, "Do not include <html>, <head>, or <body> tags.")
	assert.Contains(t, p, "<table>")
	assert.NotContains(t, p, UnclearToken)
}

func TestBuildPromptHandwritten(t *testing.T) {
	p := BuildPrompt(constants.Handwritten)
	assert.Contains(t, p, "[unclear]")
	assert.Contains(t, p, "line breaks")
	assert.Contains(t, p, "Markdown")
	assert.NotContains(t, p, "<p>")
	assert.Equal(t, p, BuildPrompt(constants.Mode("unknown")), "unknown modes read as handwriting")
}

func TestNewExtractRequest(t *testing.T) {
	req := NewExtractRequest(encode.Payload{MimeType: "image/png", Base64Data: "QQ=="}, constants.Printed)
	assert.Equal(t, ExtractRequest{MimeType: "image/png", Base64Data: "QQ==", Mode: constants.Printed}, req)
}

func TestGenerateContentSchema(t *testing.T) {
	schema := GenerateContentSchema()
	for _, ok := range []string{
		`{}`,
		`{"candidates":[]}`,
		`{"candidates":[{"content":{"parts":[{"text":"a"},{"inlineData":{}}]},"finishReason":"STOP"}],"usageMetadata":{"totalTokenCount":3}}`,
	} {
		assert.NoError(t, ValidateJSONAgainstSchema(schema, []byte(ok)), ok)
	}
	for _, bad := range []string{
		`[]`,
		`{"candidates":{}}`,
		`{"candidates":[{"content":{"parts":[{"text":7}]}}]}`,
		`not json`,
	} {
		assert.Error(t, ValidateJSONAgainstSchema(schema, []byte(bad)), bad)
	}
}

func TestSendJSON(t *testing.T) {
	var gotHeader, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-Test")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		if r.URL.Path == "/fail" {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = io.WriteString(w, `{"error":{}}`)
			return
		}
		_, _ = io.WriteString(w, `{"ok":true}`)
	}))
	defer srv.Close()

	ctx := common.WithRequestID(context.Background(), "rid-1")
	raw, status, err := SendJSON(ctx, srv.Client(), srv.URL+"/ok", map[string]int{"a": 1}, map[string]string{"X-Test": "yes"}, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"ok":true}`, string(raw))
	assert.Equal(t, "yes", gotHeader)
	assert.JSONEq(t, `{"a":1}`, gotBody)

	raw, status, err = SendJSON(ctx, srv.Client(), srv.URL+"/fail", map[string]int{}, nil, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadGateway, status)
	assert.JSONEq(t, `{"error":{}}`, string(raw), "error body is still returned")

	_, _, err = SendJSON(ctx, nil, srv.URL, func() {}, nil, nil)
	assert.Error(t, err, "unencodable body")
}

func TestExtractorFunc(t *testing.T) {
	var e Extractor = ExtractorFunc(func(_ context.Context, req ExtractRequest) (string, error) {
		return string(req.Mode), nil
	})
	got, err := e.ExtractText(context.Background(), ExtractRequest{Mode: constants.Printed})
	require.NoError(t, err)
	assert.Equal(t, "printed", got)
}
