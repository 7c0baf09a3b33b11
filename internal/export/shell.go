package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

const shellTemplate = `<!DOCTYPE html>
<html lang="en">
  <head>
    <meta charset="UTF-8">
    <style>
      body { font-family: 'Calibri', 'Arial', sans-serif; font-size: 11pt; }
      p { margin-bottom: 10pt; line-height: 1.15; }
    </style>
  </head>
  <body>
%s
  </body>
</html>
`

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
)

// Normalize returns content as an HTML fragment. Anything that does not
// already start with markup is treated as markdown, line breaks kept.
func Normalize(content string) (string, error) {
	if strings.HasPrefix(strings.TrimSpace(content), "<") {
		return content, nil
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(content), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}

// Shell wraps an HTML fragment in the fixed document shell (Calibri 11pt,
// 10pt paragraph spacing, 1.15 line height).
func Shell(fragment string) string {
	return fmt.Sprintf(shellTemplate, fragment)
}
