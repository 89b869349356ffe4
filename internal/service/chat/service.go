// Package chat wires the per-slot interaction flow: stage an upload, push it
// to the remote service, gate on readiness, then converse through a session
// bound to it.
package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"mediachat/internal/docreader"
	"mediachat/internal/gemini"
	"mediachat/internal/media"
	"mediachat/internal/models"
	"mediachat/internal/registry"
	"mediachat/internal/staging"
)

// SystemInstruction is fixed for the plain chat slot; media slots carry none.
const SystemInstruction = "You are a helpful assistant. Answer the user's questions clearly and concisely."

// Remote is the inference-service surface the interaction flow needs.
type Remote interface {
	UploadAsset(ctx context.Context, path, mimeType string) (*models.RemoteAsset, error)
	AssetState(ctx context.Context, name string) (*models.RemoteAsset, error)
	DeleteAsset(ctx context.Context, name string) error
	NewSession(ctx context.Context, cfg gemini.SessionConfig) (registry.Session, error)
}

type geminiRemote struct {
	*gemini.Client
}

func (g geminiRemote) NewSession(ctx context.Context, cfg gemini.SessionConfig) (registry.Session, error) {
	return g.Client.NewSession(ctx, cfg)
}

// NewRemote adapts the concrete client to the Remote interface.
func NewRemote(c *gemini.Client) Remote {
	return geminiRemote{c}
}

// Options tune the service. Zero values fall back to the built-in defaults.
type Options struct {
	PollInterval time.Duration
	// MaxPollWait bounds readiness polling; zero waits without bound.
	MaxPollWait   time.Duration
	DefaultParams models.GenerationParams
	// ReleasePolicies overrides the per-slot remote-asset cleanup policy.
	ReleasePolicies map[models.Slot]models.ReleasePolicy
}

// Service owns the session registry and the pending attachments that the
// next session creation will bind.
type Service struct {
	remote Remote
	store  *staging.Store
	reg    *registry.Registry
	poller gemini.Poller
	params models.GenerationParams

	mu       sync.Mutex
	pending  map[models.Slot][]gemini.Binding
	released map[models.Slot]bool
	policies map[models.Slot]models.ReleasePolicy
}

// NewService builds the interaction service.
func NewService(remote Remote, store *staging.Store, opts Options) *Service {
	params := opts.DefaultParams
	if params == (models.GenerationParams{}) {
		params = models.DefaultGenerationParams()
	}
	policies := make(map[models.Slot]models.ReleasePolicy, len(models.Slots))
	for _, slot := range models.Slots {
		policies[slot] = models.DefaultReleasePolicy(slot)
	}
	for slot, policy := range opts.ReleasePolicies {
		policies[slot] = policy
	}
	return &Service{
		remote: remote,
		store:  store,
		reg:    registry.New(),
		poller: gemini.Poller{
			Interval: opts.PollInterval,
			MaxWait:  opts.MaxPollWait,
		},
		params:   params,
		pending:  make(map[models.Slot][]gemini.Binding),
		released: make(map[models.Slot]bool),
		policies: policies,
	}
}

// Upload is one file received from the browser.
type Upload struct {
	Name string
	Data io.Reader
}

// Attachment describes an accepted upload back to the user.
type Attachment struct {
	FileName  string            `json:"file_name"`
	MIMEType  string            `json:"mime_type"`
	Size      int64             `json:"size"`
	AssetName string            `json:"asset_name,omitempty"`
	AssetURI  string            `json:"asset_uri,omitempty"`
	State     models.AssetState `json:"state,omitempty"`
	TextChars int               `json:"text_chars,omitempty"`
}

// Attach stages the uploads, runs the media-kind specific ingestion, and
// records the result as the slot's pending bindings. Bindings take effect at
// the next session creation; a live session is never rebound. Every staged
// artifact is released before Attach returns, on success and failure alike.
func (s *Service) Attach(ctx context.Context, slot models.Slot, uploads []Upload) ([]*Attachment, error) {
	if len(uploads) == 0 {
		return nil, errors.New("no file provided")
	}
	if !slot.MultiFile() && len(uploads) > 1 {
		return nil, fmt.Errorf("slot %s accepts a single file", slot)
	}
	for _, u := range uploads {
		if err := media.CheckFilename(slot, u.Name); err != nil {
			return nil, err
		}
	}

	var (
		attachments []*Attachment
		bindings    []gemini.Binding
		err         error
	)
	switch slot.Kind() {
	case models.KindDocument:
		attachments, bindings, err = s.attachDocuments(ctx, slot, uploads)
	case models.KindImage:
		attachments, bindings, err = s.attachImage(ctx, slot, uploads[0])
	case models.KindAudio, models.KindVideo:
		attachments, bindings, err = s.attachAsset(ctx, slot, uploads[0])
	default:
		return nil, fmt.Errorf("slot %s does not accept file uploads", slot)
	}
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	displaced := s.pending[slot]
	s.pending[slot] = bindings
	s.mu.Unlock()

	// A displaced pending asset was uploaded but will never be bound now;
	// nothing else would reclaim it.
	for _, b := range displaced {
		if b.Asset != nil {
			s.deleteAsset(ctx, b.Asset)
		}
	}
	return attachments, nil
}

// attachDocuments extracts text from each file and, for the multi-document
// slot, writes the merged output as one more tracked artifact. The group
// releases every per-file artifact plus the merged one.
func (s *Service) attachDocuments(ctx context.Context, slot models.Slot, uploads []Upload) ([]*Attachment, []gemini.Binding, error) {
	group := s.store.NewGroup()
	defer group.Release()

	var (
		attachments []*Attachment
		docs        []docreader.Document
	)
	for _, u := range uploads {
		staged, err := group.Stage(u.Name, u.Data)
		if err != nil {
			return nil, nil, err
		}
		doc, err := docreader.ExtractFile(staged.Path, u.Name)
		if err != nil {
			return nil, nil, err
		}
		docs = append(docs, doc)
		attachments = append(attachments, &Attachment{
			FileName:  u.Name,
			MIMEType:  media.ResolveMIME(u.Name, slot.Kind()),
			Size:      staged.Size,
			TextChars: len(doc.Text),
		})
	}

	merged := docreader.Merge(docs)
	if slot.MultiFile() && len(docs) > 1 {
		if _, err := group.Stage("merged.txt", strings.NewReader(merged)); err != nil {
			return nil, nil, err
		}
	}
	return attachments, []gemini.Binding{{Text: merged}}, nil
}

func (s *Service) attachImage(ctx context.Context, slot models.Slot, upload Upload) ([]*Attachment, []gemini.Binding, error) {
	mimeType := media.ResolveMIME(upload.Name, slot.Kind())
	var (
		attachment *Attachment
		binding    gemini.Binding
	)
	err := s.store.WithStaged(upload.Name, upload.Data, func(staged *staging.Staged) error {
		data, err := os.ReadFile(staged.Path)
		if err != nil {
			return fmt.Errorf("read staged image: %w", err)
		}
		binding = gemini.Binding{Inline: &gemini.InlineData{Data: data, MIMEType: mimeType}}
		attachment = &Attachment{FileName: upload.Name, MIMEType: mimeType, Size: staged.Size}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return []*Attachment{attachment}, []gemini.Binding{binding}, nil
}

// attachAsset uploads the staged artifact and drives it to readiness before
// it may be bound. A failed terminal state never reaches a session.
func (s *Service) attachAsset(ctx context.Context, slot models.Slot, upload Upload) ([]*Attachment, []gemini.Binding, error) {
	mimeType := media.ResolveMIME(upload.Name, slot.Kind())
	var (
		asset *models.RemoteAsset
		size  int64
	)
	err := s.store.WithStaged(upload.Name, upload.Data, func(staged *staging.Staged) error {
		size = staged.Size
		uploaded, err := s.remote.UploadAsset(ctx, staged.Path, mimeType)
		if err != nil {
			return err
		}
		ready, err := s.poller.AwaitReady(ctx, uploaded, s.remote.AssetState)
		if err != nil {
			return err
		}
		asset = ready
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	attachment := &Attachment{
		FileName:  upload.Name,
		MIMEType:  mimeType,
		Size:      size,
		AssetName: asset.Name,
		AssetURI:  asset.URI,
		State:     asset.State,
	}
	return []*Attachment{attachment}, []gemini.Binding{{Asset: asset}}, nil
}

// Ask runs one prompt through the slot's session, creating it first when the
// slot is vacant or reset is requested. Pending attachments are consumed at
// creation only.
func (s *Service) Ask(ctx context.Context, slot models.Slot, content string, params *models.GenerationParams, reset bool) (*models.ChatMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errors.New("prompt cannot be empty")
	}
	if reset {
		s.discardSession(ctx, slot)
	}

	effective := s.params
	if params != nil {
		effective = *params
	}

	session, created, err := s.reg.GetOrCreate(slot, false, func() (registry.Session, error) {
		bindings := s.takePending(slot)
		cfg := gemini.SessionConfig{
			Bindings: bindings,
			Params:   effective,
		}
		if slot == models.SlotChat {
			cfg.SystemInstruction = SystemInstruction
		}
		sess, err := s.remote.NewSession(ctx, cfg)
		if err != nil {
			// The attachments must survive a failed creation so a retry
			// still binds them, and Reset can still release them.
			s.restorePending(slot, bindings)
			return nil, err
		}
		return sess, nil
	})
	if err != nil {
		return nil, err
	}
	if created {
		s.mu.Lock()
		delete(s.released, slot)
		s.mu.Unlock()
	}

	reply, err := session.Send(ctx, content)
	if err != nil {
		return nil, err
	}

	if s.policy(slot) == models.ReleaseAfterSend {
		s.releaseOnce(ctx, slot, session)
	}
	return reply, nil
}

// Transcript returns the slot's accumulated transcript, empty when no
// session exists.
func (s *Service) Transcript(slot models.Slot) []*models.ChatMessage {
	session, ok := s.reg.Get(slot)
	if !ok {
		return nil
	}
	return session.Transcript()
}

// Reset clears the slot entirely: the session, its transcript, and any
// pending attachments, releasing remote assets where the policy calls for
// it.
func (s *Service) Reset(ctx context.Context, slot models.Slot) {
	s.discardSession(ctx, slot)

	s.mu.Lock()
	pending := s.pending[slot]
	delete(s.pending, slot)
	s.mu.Unlock()

	// Pending assets were uploaded but never bound; nothing else will
	// release them.
	for _, b := range pending {
		if b.Asset != nil {
			s.deleteAsset(ctx, b.Asset)
		}
	}
}

// discardSession removes the slot's session and applies the release policy
// to its bound assets. Pending attachments survive, so a reset-and-resend
// can bind the still-uploaded file to the fresh session.
func (s *Service) discardSession(ctx context.Context, slot models.Slot) {
	old := s.reg.Reset(slot)
	if old == nil {
		return
	}
	s.mu.Lock()
	alreadyReleased := s.released[slot]
	delete(s.released, slot)
	s.mu.Unlock()
	if alreadyReleased || s.policy(slot) == models.ReleaseNever {
		return
	}
	for _, asset := range old.Assets() {
		s.deleteAsset(ctx, asset)
	}
}

func (s *Service) releaseOnce(ctx context.Context, slot models.Slot, session registry.Session) {
	s.mu.Lock()
	if s.released[slot] {
		s.mu.Unlock()
		return
	}
	s.released[slot] = true
	s.mu.Unlock()
	for _, asset := range session.Assets() {
		s.deleteAsset(ctx, asset)
	}
}

func (s *Service) deleteAsset(ctx context.Context, asset *models.RemoteAsset) {
	if err := s.remote.DeleteAsset(ctx, asset.Name); err != nil {
		log.Printf("release remote asset %s failed: %v", asset.Name, err)
		return
	}
	log.Printf("deleted remote asset %s", asset.URI)
}

func (s *Service) takePending(slot models.Slot) []gemini.Binding {
	s.mu.Lock()
	defer s.mu.Unlock()
	bindings := s.pending[slot]
	delete(s.pending, slot)
	return bindings
}

// restorePending puts consumed bindings back after a failed session creation.
// A concurrent Attach wins; its fresh bindings are not overwritten.
func (s *Service) restorePending(slot models.Slot, bindings []gemini.Binding) {
	if len(bindings) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pending[slot]; !ok {
		s.pending[slot] = bindings
	}
}

func (s *Service) policy(slot models.Slot) models.ReleasePolicy {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.policies[slot]
}
