package main

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/handscribe/constants"
	"github.com/joseph-ayodele/handscribe/internal/common"
	"github.com/joseph-ayodele/handscribe/internal/encode"
	"github.com/joseph-ayodele/handscribe/internal/llm"
)

func fakeGemini(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := json.Marshal(map[string]any{
			"candidates": []any{map[string]any{
				"content":      map[string]any{"role": "model", "parts": []any{map[string]any{"text": reply}}},
				"finishReason": "STOP",
			}},
		})
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(b)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "page.jpg")
	require.NoError(t, os.WriteFile(path, []byte{0xFF, 0xD8, 0xFF, 0xE0}, 0o600))
	return path
}

func setEnv(t *testing.T, baseURL string) {
	t.Helper()
	t.Setenv("GEMINI_BASE_URL", baseURL)
	t.Setenv("API_KEY", "test-key")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("HANDSCRIBE_CONFIG", "")
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "handscribe dev\n", out)
}

func TestExtractHandwritten(t *testing.T) {
	setEnv(t, fakeGemini(t, "Dear Sam,\nsee you soon").URL)
	outDir := t.TempDir()

	out, err := run(t, "extract", writeImage(t), "--mode", "handwritten", "--out", outDir)
	require.NoError(t, err)

	path := filepath.Join(outDir, constants.HandwritingFilename)
	assert.Equal(t, path, strings.TrimSpace(out))
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Dear Sam,\nsee you soon", string(got))
}

func TestExtractPrintedWithTables(t *testing.T) {
	reply := "<h1>Invoice</h1><table><tr><th>Item</th><th>Qty</th></tr><tr><td>Pen</td><td>2</td></tr></table>"
	setEnv(t, fakeGemini(t, reply).URL)
	outDir := t.TempDir()

	out, err := run(t, "extract", writeImage(t), "--mode", "printed", "--out", outDir, "--xlsx")
	require.NoError(t, err)
	assert.Len(t, strings.Fields(out), 2)

	zr, err := zip.OpenReader(filepath.Join(outDir, constants.DocumentFilename))
	require.NoError(t, err)
	defer zr.Close()
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Contains(t, names, "word/document.xml")

	f, err := excelize.OpenFile(filepath.Join(outDir, constants.TablesFilename))
	require.NoError(t, err)
	defer f.Close()
	v, err := f.GetCellValue("Table 1", "A2")
	require.NoError(t, err)
	assert.Equal(t, "Pen", v)
}

func TestExtractRejectsBadFlags(t *testing.T) {
	setEnv(t, fakeGemini(t, "unused").URL)

	_, err := run(t, "extract", writeImage(t), "--mode", "braille")
	assert.ErrorContains(t, err, "unknown mode")

	_, err = run(t, "extract", writeImage(t), "--mode", "handwritten", "--xlsx")
	assert.ErrorContains(t, err, "--xlsx")

	_, err = run(t, "extract")
	assert.Error(t, err)

	missing := filepath.Join(t.TempDir(), "nope.jpg")
	_, err = run(t, "extract", missing)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.True(t, strings.HasPrefix(err.Error(), "read "+missing+": "))
}

func TestExtractEmptyResult(t *testing.T) {
	setEnv(t, fakeGemini(t, "").URL)
	outDir := t.TempDir()

	_, err := run(t, "extract", writeImage(t), "--out", outDir)
	require.Error(t, err)
	entries, _ := os.ReadDir(outDir)
	assert.Empty(t, entries)
}

func TestInvalidConfigStopsCommands(t *testing.T) {
	setEnv(t, "http://127.0.0.1:1")
	t.Setenv("LOG_FORMAT", "xml")

	_, err := run(t, "extract", writeImage(t))
	assert.ErrorContains(t, err, "LOG_FORMAT")
}

func TestGeminiClientReadsKeyPerCall(t *testing.T) {
	keys := make(chan string, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		keys <- r.Header.Get("x-goog-api-key")
		b, _ := json.Marshal(map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{"role": "model", "parts": []any{map[string]any{"text": "ok"}}},
			}},
		})
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(b)
	}))
	t.Cleanup(srv.Close)
	setEnv(t, srv.URL)
	t.Setenv("API_KEY", "startup-key")
	t.Setenv("GEMINI_API_KEY", "")

	client, err := newGeminiClient(common.LoadConfig(), nil)
	require.NoError(t, err)
	payload, err := encode.Encode(context.Background(), bytes.NewReader([]byte{0xFF, 0xD8, 0xFF, 0xE0}), "image/jpeg")
	require.NoError(t, err)
	req := llm.NewExtractRequest(payload, constants.Handwritten)

	t.Setenv("API_KEY", "rotated-key")
	_, err = client.ExtractText(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "rotated-key", <-keys)

	t.Setenv("API_KEY", "")
	_, err = client.ExtractText(context.Background(), req)
	require.Error(t, err)
	assert.True(t, common.IsKind(err, common.KindConfiguration))
	assert.Empty(t, keys, "no request goes out without a key")
}

func TestGeminiClientPinsFileKey(t *testing.T) {
	keys := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		keys <- r.Header.Get("x-goog-api-key")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`))
	}))
	t.Cleanup(srv.Close)
	setEnv(t, srv.URL)
	t.Setenv("API_KEY", "")

	cfg := common.LoadConfig()
	cfg.LLM.APIKey = "file-key"
	client, err := newGeminiClient(cfg, nil)
	require.NoError(t, err)
	payload, err := encode.Encode(context.Background(), bytes.NewReader([]byte("png-ish")), "image/png")
	require.NoError(t, err)

	_, err = client.ExtractText(context.Background(), llm.NewExtractRequest(payload, constants.Printed))
	require.NoError(t, err)
	assert.Equal(t, "file-key", <-keys)
}
