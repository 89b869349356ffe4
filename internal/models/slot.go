package models

import "fmt"

// Slot identifies one media kind's isolated conversation context. Keys are a
// closed set so registry entries cannot collide across media kinds.
type Slot string

const (
	SlotChat      Slot = "chat"
	SlotDocument  Slot = "document"
	SlotDocuments Slot = "documents"
	SlotImage     Slot = "image"
	SlotAudio     Slot = "audio"
	SlotVideo     Slot = "video"
)

// MediaKind classifies what a slot accepts.
type MediaKind string

const (
	KindNone     MediaKind = ""
	KindDocument MediaKind = "document"
	KindImage    MediaKind = "image"
	KindAudio    MediaKind = "audio"
	KindVideo    MediaKind = "video"
)

// Slots lists every slot in display order.
var Slots = []Slot{SlotChat, SlotDocument, SlotDocuments, SlotImage, SlotAudio, SlotVideo}

// ParseSlot validates a slot identifier coming from the request path.
func ParseSlot(s string) (Slot, error) {
	slot := Slot(s)
	for _, known := range Slots {
		if slot == known {
			return slot, nil
		}
	}
	return "", fmt.Errorf("unknown slot %q", s)
}

// Kind reports the media kind the slot accepts. The plain chat slot takes no
// files at all.
func (s Slot) Kind() MediaKind {
	switch s {
	case SlotDocument, SlotDocuments:
		return KindDocument
	case SlotImage:
		return KindImage
	case SlotAudio:
		return KindAudio
	case SlotVideo:
		return KindVideo
	default:
		return KindNone
	}
}

// MultiFile reports whether the slot accepts several files per upload.
func (s Slot) MultiFile() bool {
	return s == SlotDocuments
}

// RequiresPolling reports whether uploaded assets for this slot go through the
// remote processing state machine before they can be used. Document and image
// content is usable as soon as the upload returns.
func (s Slot) RequiresPolling() bool {
	return s == SlotAudio || s == SlotVideo
}
