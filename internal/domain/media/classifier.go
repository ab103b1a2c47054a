// Package media buckets uploads by MIME type.
package media

import (
	"mime"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/h2non/filetype"

	"github.com/bryanwahyu/trustlayer/internal/domain/analysis"
)

const pdfMIME = "application/pdf"

var acceptedPrefixes = []string{"image/", "video/", "audio/", "text/"}

// Classify maps a MIME type to a content bucket. Anything unrecognized is an image.
func Classify(mimeType string) analysis.ContentType {
	m := normalize(mimeType)
	switch {
	case strings.HasPrefix(m, "video"):
		return analysis.ContentVideo
	case strings.HasPrefix(m, "audio"):
		return analysis.ContentAudio
	case strings.HasPrefix(m, "text"), m == pdfMIME:
		return analysis.ContentText
	default:
		return analysis.ContentImage
	}
}

// Validate rejects MIME types the upload workflow does not accept.
func Validate(mimeType string) error {
	m := normalize(mimeType)
	if m == pdfMIME {
		return nil
	}
	for _, p := range acceptedPrefixes {
		if strings.HasPrefix(m, p) {
			return nil
		}
	}
	return &analysis.ValidationError{Message: "Please upload an Image, Video, Audio, or Text file."}
}

// IsPlainText reports whether the payload should travel as a decoded string.
// PDFs classify as text but are sent as raw bytes.
func IsPlainText(mimeType string) bool {
	return strings.HasPrefix(normalize(mimeType), "text/")
}

func normalize(mimeType string) string {
	m := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(m, ';'); i >= 0 {
		m = strings.TrimSpace(m[:i])
	}
	return m
}

// Sniff guesses a MIME type when the client sent none: magic bytes first,
// then the file extension, then a UTF-8 check for plain text.
func Sniff(filename string, data []byte) string {
	if kind, err := filetype.Match(data); err == nil && kind != filetype.Unknown {
		return kind.MIME.Value
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); byExt != "" {
		return byExt
	}
	if len(data) > 0 && utf8.Valid(data) {
		return "text/plain; charset=utf-8"
	}
	return "application/octet-stream"
}
