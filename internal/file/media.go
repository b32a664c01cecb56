package file

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// fallbackMediaType is used when neither the name nor the content identify the format.
const fallbackMediaType = "bin"

// SanitizeExtension keeps alphanumerics plus '_', '-' and '.', lower-cased, without the leading dot.
func SanitizeExtension(ext string) string {
	cleaned := strings.TrimLeft(strings.TrimSpace(ext), ".")
	var b strings.Builder
	for _, r := range cleaned {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-', r == '.':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		}
	}
	return b.String()
}

// DetectMediaType derives the format token from the filename extension,
// falling back to content sniffing over head when the name has none.
func DetectMediaType(filename string, head []byte) string {
	if ext := SanitizeExtension(filepath.Ext(filename)); ext != "" {
		return ext
	}
	if ext := SanitizeExtension(mimetype.Detect(head).Extension()); ext != "" {
		return ext
	}
	return fallbackMediaType
}

// ContentType maps a format token to a MIME type for HTTP and object storage.
func ContentType(mediaType string) string {
	if ct := mime.TypeByExtension("." + mediaType); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
