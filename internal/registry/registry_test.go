package registry

import (
	"context"
	"errors"
	"testing"

	"mediachat/internal/models"
)

type stubSession struct {
	id         int
	transcript []*models.ChatMessage
}

func (s *stubSession) Send(context.Context, string) (*models.ChatMessage, error) {
	return &models.ChatMessage{Role: models.RoleModel, Content: "ok"}, nil
}
func (s *stubSession) Transcript() []*models.ChatMessage { return s.transcript }
func (s *stubSession) Assets() []*models.RemoteAsset     { return nil }

func TestGetOrCreateVacantSlot(t *testing.T) {
	r := New()
	want := &stubSession{id: 1}

	got, created, err := r.GetOrCreate(models.SlotVideo, false, func() (Session, error) {
		return want, nil
	})
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if !created || got != want {
		t.Fatalf("expected fresh session, created=%v", created)
	}
}

func TestGetOrCreateReturnsExistingUnchanged(t *testing.T) {
	r := New()
	first := &stubSession{id: 1}
	r.GetOrCreate(models.SlotImage, false, func() (Session, error) { return first, nil })

	got, created, err := r.GetOrCreate(models.SlotImage, false, func() (Session, error) {
		t.Fatal("create must not run for an occupied slot")
		return nil, nil
	})
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if created || got != first {
		t.Fatalf("existing session must be returned unchanged")
	}
}

func TestGetOrCreateResetReplacesSession(t *testing.T) {
	r := New()
	first := &stubSession{id: 1, transcript: []*models.ChatMessage{{Role: models.RoleUser, Content: "old"}}}
	r.GetOrCreate(models.SlotAudio, false, func() (Session, error) { return first, nil })

	second := &stubSession{id: 2}
	got, created, err := r.GetOrCreate(models.SlotAudio, true, func() (Session, error) {
		return second, nil
	})
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if !created || got == first {
		t.Fatalf("reset must produce a distinct session")
	}
	if len(got.Transcript()) != 0 {
		t.Fatalf("reset session must start with an empty transcript")
	}

	current, ok := r.Get(models.SlotAudio)
	if !ok || current != second {
		t.Fatalf("reset session must replace the prior one in the slot")
	}
}

func TestGetOrCreateCreateError(t *testing.T) {
	r := New()
	wantErr := errors.New("remote down")
	_, _, err := r.GetOrCreate(models.SlotChat, false, func() (Session, error) {
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
	if _, ok := r.Get(models.SlotChat); ok {
		t.Fatalf("failed creation must leave the slot vacant")
	}
}

func TestResetClearsOnlyOneSlot(t *testing.T) {
	r := New()
	video := &stubSession{id: 1}
	audio := &stubSession{id: 2}
	r.GetOrCreate(models.SlotVideo, false, func() (Session, error) { return video, nil })
	r.GetOrCreate(models.SlotAudio, false, func() (Session, error) { return audio, nil })

	removed := r.Reset(models.SlotVideo)
	if removed != video {
		t.Fatalf("Reset should hand back the discarded session")
	}
	if _, ok := r.Get(models.SlotVideo); ok {
		t.Fatalf("video slot should be vacant after reset")
	}
	if _, ok := r.Get(models.SlotAudio); !ok {
		t.Fatalf("reset must not touch other slots")
	}

	if again := r.Reset(models.SlotVideo); again != nil {
		t.Fatalf("resetting a vacant slot should return nil")
	}
}
