package fileutil

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// OctetStream is the content type reported when nothing more specific is known
const OctetStream = "application/octet-stream"

// knownTypes covers the media the analysis models accept. Entries here win
// over the platform MIME database, which differs between hosts.
var knownTypes = map[string]string{
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".mpeg": "video/mpeg",
	".mpg":  "video/mpeg",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".flac": "audio/flac",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".pdf":  "application/pdf",
	".txt":  "text/plain",
	".log":  "text/plain",
	".md":   "text/markdown",
	".csv":  "text/csv",
	".json": "application/json",
	".yaml": "text/plain",
	".yml":  "text/plain",
	".html": "text/html",
	".xml":  "text/xml",
}

// ContentTypeFor resolves the content type of a local file: the extension
// table first, then the platform MIME database, then sniffing the first 512
// bytes. It returns OctetStream when the type cannot be determined.
func ContentTypeFor(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if t, ok := knownTypes[ext]; ok {
		return t, nil
	}
	if ext != "" {
		if t := mime.TypeByExtension(ext); t != "" {
			return stripParams(t), nil
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}
	if n == 0 {
		return OctetStream, nil
	}
	return stripParams(http.DetectContentType(head[:n])), nil
}

// IsResolved reports whether a content type is specific enough to upload
func IsResolved(contentType string) bool {
	return contentType != "" && contentType != OctetStream
}

func stripParams(t string) string {
	if i := strings.IndexByte(t, ';'); i >= 0 {
		return strings.TrimSpace(t[:i])
	}
	return t
}
