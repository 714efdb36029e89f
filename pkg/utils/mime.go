package utils

import (
	"mime"
	"net/http"
	"strings"
)

// DetectMimeAndExt analyzes a byte slice to determine both its MIME type and
// standard extension. It returns ("application/octet-stream", ".bin") if
// identification fails. Telegram file metadata frequently omits the content
// type, so downloaded media is sniffed before it is handed back to a caller.
func DetectMimeAndExt(data []byte) (string, string) {
	mimeType := "application/octet-stream"
	if len(data) > 0 {
		mimeType = http.DetectContentType(data)
	}
	return mimeType, mimeToExt(mimeType)
}

// IsImageMime reports whether the MIME type names an image format.
func IsImageMime(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/")
}

// mimeToExt converts a MIME type to its first standard extension, defaulting to ".bin".
func mimeToExt(mimeType string) string {
	exts, err := mime.ExtensionsByType(mimeType)
	if err != nil || len(exts) == 0 {
		return ".bin"
	}
	return exts[0]
}
