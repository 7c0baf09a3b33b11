package constants

import "strings"

// AcceptedMIMETypes are the image types the upload surface offers.
// They are advisory: nothing rejects other types programmatically.
var AcceptedMIMETypes = []string{"image/png", "image/jpeg", "image/webp"}

// MaxUploadMBDefault is the size guidance shown next to the upload surface.
const MaxUploadMBDefault = 10

// Download names.
const (
	HandwritingFilename = "extracted-handwriting.txt"
	DocumentFilename    = "extracted-document.docx"
	TablesFilename      = "extracted-tables.xlsx"
)

// Content types used for artifacts.
const (
	ContentTypeText = "text/plain; charset=utf-8"
	ContentTypeHTML = "text/html; charset=utf-8"
	ContentTypeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MIMEFromExt maps an image extension to its MIME type, "" when unknown.
func MIMEFromExt(ext string) string {
	switch NormalizeExt(ext) {
	case "png":
		return "image/png"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "webp":
		return "image/webp"
	default:
		return ""
	}
}

// IsAcceptedMIME reports whether mime is one of AcceptedMIMETypes.
func IsAcceptedMIME(mime string) bool {
	mime = strings.ToLower(strings.TrimSpace(mime))
	for _, m := range AcceptedMIMETypes {
		if m == mime {
			return true
		}
	}
	return false
}
