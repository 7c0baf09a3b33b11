// Package encode turns a user-supplied image into the (mimeType, base64) pair
// the extraction client sends inline.
package encode

import (
	"context"
	"encoding/base64"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/joseph-ayodele/handscribe/constants"
	"github.com/joseph-ayodele/handscribe/internal/common"
)

// Payload is the inline image handed to the model.
type Payload struct {
	MimeType   string
	Base64Data string
}

// DecodedLen is the byte length of the original file.
func (p Payload) DecodedLen() int {
	return base64.StdEncoding.DecodedLen(len(p.Base64Data)) - padding(p.Base64Data)
}

var reMediaType = regexp.MustCompile(`:(.*?);`)

// Encode reads r fully and produces its payload. declaredType wins when set;
// otherwise the type is sniffed from the content.
// Read errors are returned unchanged.
func Encode(ctx context.Context, r io.Reader, declaredType string) (Payload, error) {
	select {
	case <-ctx.Done():
		return Payload{}, ctx.Err()
	default:
	}

	b, err := io.ReadAll(r)
	if err != nil {
		return Payload{}, err
	}
	return ParseDataURL(DataURL(resolveType(declaredType, b), b))
}

// EncodeFile is Encode for a path on disk; the extension decides the type.
func EncodeFile(ctx context.Context, path string) (Payload, error) {
	f, err := os.Open(path)
	if err != nil {
		return Payload{}, err
	}
	defer f.Close()

	declared := constants.MIMEFromExt(filepath.Ext(path))
	if declared == "" {
		declared = mime.TypeByExtension(filepath.Ext(path))
	}
	return Encode(ctx, f, declared)
}

// DataURL renders b the way a browser FileReader does.
func DataURL(mimeType string, b []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(b)
}

// ParseDataURL splits a data URI into its media type and base64 payload.
func ParseDataURL(s string) (Payload, error) {
	header, data, found := strings.Cut(s, ",")
	if !found || data == "" {
		return Payload{}, common.InputParseError(nil)
	}
	m := reMediaType.FindStringSubmatch(header)
	if m == nil {
		return Payload{}, common.InputParseError(nil)
	}
	return Payload{MimeType: m[1], Base64Data: data}, nil
}

func resolveType(declared string, b []byte) string {
	if declared = strings.TrimSpace(declared); declared != "" {
		// drop parameters such as "; charset=binary"
		if mt, _, err := mime.ParseMediaType(declared); err == nil {
			return mt
		}
		return declared
	}
	sniffed := http.DetectContentType(b)
	if mt, _, err := mime.ParseMediaType(sniffed); err == nil {
		return mt
	}
	return "application/octet-stream"
}

func padding(s string) int {
	switch {
	case strings.HasSuffix(s, "=="):
		return 2
	case strings.HasSuffix(s, "="):
		return 1
	default:
		return 0
	}
}
