package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/handscribe/internal/common"
	"github.com/joseph-ayodele/handscribe/internal/llm"
)

// generateContentResponse is the subset of the REST reply we read.
type generateContentResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text    string `json:"text"`
				Thought bool   `json:"thought"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

type apiErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
		Details []struct {
			Reason string `json:"reason"`
		} `json:"details"`
	} `json:"error"`
}

// ExtractText implements llm.Extractor with a single, non-retried generateContent call.
func (c *Client) ExtractText(ctx context.Context, req llm.ExtractRequest) (string, error) {
	rid := common.RequestIDFromContext(ctx)
	if rid == "" {
		rid = uuid.New().String()
		ctx = common.WithRequestID(ctx, rid)
	}
	start := time.Now()

	c.logger.Info("llm.extract.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"mode", req.Mode,
		"mime_type", req.MimeType,
		"payload_len", len(req.Base64Data),
	)

	key := c.apiKey()
	if key == "" {
		c.logger.Error("llm.extract.missing_api_key", "req_id", rid)
		return "", common.ConfigurationError(errors.New("API_KEY is not set"))
	}

	body := map[string]any{
		"contents": []map[string]any{
			{
				"role": "user",
				"parts": []map[string]any{
					{"inlineData": map[string]any{"mimeType": req.MimeType, "data": req.Base64Data}},
					{"text": llm.BuildPrompt(req.Mode)},
				},
			},
		},
	}

	raw, status, httpErr := llm.SendJSON(ctx, c.http, c.endpoint, body, map[string]string{"x-goog-api-key": key}, c.logger)
	if httpErr != nil {
		err := classify(status, raw, httpErr)
		c.logger.Error("llm.extract.http_error",
			"req_id", rid, "status", status, "kind", common.KindOf(err).String(), "error", httpErr,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", err
	}

	if err := llm.ValidateJSONAgainstSchema(llm.GenerateContentSchema(), raw); err != nil {
		c.logger.Error("llm.extract.schema_validation_failed",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", common.RemoteError("", fmt.Errorf("schema validation failed: %w", err))
	}

	var gc generateContentResponse
	if err := json.Unmarshal(raw, &gc); err != nil {
		c.logger.Error("llm.extract.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", common.RemoteError("", fmt.Errorf("decode gemini response: %w", err))
	}

	text := responseText(gc)
	if text == "" {
		c.logger.Warn("llm.extract.empty",
			"req_id", rid,
			"candidates", len(gc.Candidates),
			"block_reason", gc.PromptFeedback.BlockReason,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", common.EmptyResultError()
	}

	c.logger.Info("llm.extract.ok",
		"req_id", rid,
		"text_len", len(text),
		"finish_reason", gc.Candidates[0].FinishReason,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return text, nil
}

// responseText joins the non-thought text parts of the first candidate.
func responseText(gc generateContentResponse) string {
	if len(gc.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range gc.Candidates[0].Content.Parts {
		if p.Thought {
			continue
		}
		b.WriteString(p.Text)
	}
	return b.String()
}

// classify maps a failed call onto the error taxonomy. Credential problems are
// recognized from the HTTP status, the API status/reason, or an API_KEY mention
// in the provider's message.
func classify(status int, raw []byte, cause error) error {
	if status == 0 {
		if strings.Contains(cause.Error(), "API_KEY") {
			return common.ConfigurationError(cause)
		}
		return common.RemoteError(cause.Error(), cause)
	}

	var body apiErrorBody
	_ = json.Unmarshal(raw, &body)
	msg := strings.TrimSpace(body.Error.Message)
	detail := fmt.Errorf("gemini status %d: %s: %w", status, msg, cause)

	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return common.ConfigurationError(detail)
	}
	switch body.Error.Status {
	case "UNAUTHENTICATED", "PERMISSION_DENIED":
		return common.ConfigurationError(detail)
	}
	for _, d := range body.Error.Details {
		if strings.HasPrefix(d.Reason, "API_KEY") {
			return common.ConfigurationError(detail)
		}
	}
	if strings.Contains(msg, "API_KEY") {
		return common.ConfigurationError(detail)
	}
	return common.RemoteError(msg, detail)
}
