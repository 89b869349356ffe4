package media

import (
	"testing"

	"mediachat/internal/models"
)

func TestResolveMIME(t *testing.T) {
	cases := []struct {
		name string
		kind models.MediaKind
		want string
	}{
		{"report.pdf", models.KindDocument, "application/pdf"},
		{"notes.txt", models.KindDocument, "text/plain"},
		{"readme.MD", models.KindDocument, "text/markdown"},
		{"photo.PNG", models.KindImage, "image/png"},
		{"photo.jpeg", models.KindImage, "image/jpeg"},
		{"song.mp3", models.KindAudio, "audio/mpeg"},
		{"clip.mp4", models.KindVideo, "video/mp4"},
		// unknown extensions fall back per media kind
		{"mystery.bin", models.KindDocument, "text/plain"},
		{"mystery.bin", models.KindImage, "image/jpeg"},
		{"mystery.bin", models.KindAudio, "audio/mpeg"},
		{"mystery.bin", models.KindVideo, "video/mp4"},
	}
	for _, tc := range cases {
		if got := ResolveMIME(tc.name, tc.kind); got != tc.want {
			t.Errorf("ResolveMIME(%q, %s) = %q, want %q", tc.name, tc.kind, got, tc.want)
		}
	}
}

func TestCheckFilename(t *testing.T) {
	if err := CheckFilename(models.SlotVideo, "clip.mp4"); err != nil {
		t.Fatalf("mp4 should be allowed for video slot: %v", err)
	}
	if err := CheckFilename(models.SlotVideo, "clip.avi"); err == nil {
		t.Fatalf("avi should be rejected for video slot")
	}
	if err := CheckFilename(models.SlotChat, "anything.txt"); err == nil {
		t.Fatalf("plain chat slot should reject uploads")
	}
	if err := CheckFilename(models.SlotDocuments, "a.PDF"); err != nil {
		t.Fatalf("extension match should be case-insensitive: %v", err)
	}
}

func TestAllowedExtensions(t *testing.T) {
	exts := AllowedExtensions(models.SlotImage)
	want := map[string]bool{"jpg": true, "jpeg": true, "png": true}
	if len(exts) != len(want) {
		t.Fatalf("unexpected extensions %v", exts)
	}
	for _, e := range exts {
		if !want[e] {
			t.Errorf("unexpected extension %q", e)
		}
	}
	if got := AllowedExtensions(models.SlotChat); len(got) != 0 {
		t.Fatalf("chat slot should expose no extensions, got %v", got)
	}
}
