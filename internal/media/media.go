// Package media resolves file extensions to MIME types and enforces the
// per-slot upload allow-lists.
package media

import (
	"fmt"
	"path/filepath"
	"strings"

	"mediachat/internal/models"
)

var mimeByExt = map[string]string{
	".pdf":  "application/pdf",
	".txt":  "text/plain",
	".md":   "text/markdown",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".mp4":  "video/mp4",
}

// Fallbacks when the extension is unknown but the media kind is.
var mimeByKind = map[models.MediaKind]string{
	models.KindDocument: "text/plain",
	models.KindImage:    "image/jpeg",
	models.KindAudio:    "audio/mpeg",
	models.KindVideo:    "video/mp4",
}

var extsByKind = map[models.MediaKind][]string{
	models.KindDocument: {".pdf", ".txt", ".md"},
	models.KindImage:    {".jpg", ".jpeg", ".png"},
	models.KindAudio:    {".mp3", ".wav"},
	models.KindVideo:    {".mp4"},
}

// ResolveMIME infers the MIME type from the file name, falling back to the
// media kind's default.
func ResolveMIME(filename string, kind models.MediaKind) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if mt, ok := mimeByExt[ext]; ok {
		return mt
	}
	return mimeByKind[kind]
}

// AllowedExtensions lists the uploader allow-list for a slot, without the
// leading dots, for display.
func AllowedExtensions(slot models.Slot) []string {
	exts := extsByKind[slot.Kind()]
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		out = append(out, strings.TrimPrefix(e, "."))
	}
	return out
}

// CheckFilename rejects files whose extension is not on the slot's
// allow-list. The plain chat slot accepts no files at all.
func CheckFilename(slot models.Slot, filename string) error {
	kind := slot.Kind()
	if kind == models.KindNone {
		return fmt.Errorf("slot %s does not accept file uploads", slot)
	}
	ext := strings.ToLower(filepath.Ext(filename))
	for _, allowed := range extsByKind[kind] {
		if ext == allowed {
			return nil
		}
	}
	return fmt.Errorf("file type %q not allowed for slot %s", ext, slot)
}

// SniffAllowed verifies a detected content type against the slot's media
// kind. Detection is advisory (text files often sniff as generic types), so
// only a clear cross-kind mismatch is rejected.
func SniffAllowed(slot models.Slot, contentType string) bool {
	switch slot.Kind() {
	case models.KindImage:
		return strings.HasPrefix(contentType, "image/")
	case models.KindAudio:
		return strings.HasPrefix(contentType, "audio/") ||
			strings.HasPrefix(contentType, "application/octet-stream")
	case models.KindVideo:
		return strings.HasPrefix(contentType, "video/") ||
			strings.HasPrefix(contentType, "application/octet-stream")
	case models.KindDocument:
		return strings.HasPrefix(contentType, "text/") ||
			strings.HasPrefix(contentType, "application/pdf") ||
			strings.HasPrefix(contentType, "application/octet-stream")
	default:
		return false
	}
}
