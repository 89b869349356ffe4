package gemini

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"mediachat/internal/models"
)

// InlineData is a media payload sent with every model call instead of being
// uploaded (images and extracted document text travel this way).
type InlineData struct {
	Data     []byte
	MIMEType string
}

// Binding is one media item attached to a session at creation time. Exactly
// one field is set.
type Binding struct {
	Asset  *models.RemoteAsset // uploaded remote file (audio, video)
	Inline *InlineData         // raw bytes (image)
	Text   string              // extracted document text
}

// SessionConfig fixes a session's shape at creation. Bindings are immutable
// afterwards; only replacing the whole session changes them.
type SessionConfig struct {
	SystemInstruction string
	Bindings          []Binding
	Params            models.GenerationParams
}

type generateFunc func(ctx context.Context, parts []genai.Part) (string, *models.Usage, error)

// Session is a stateful conversation handle: bound media plus a running
// transcript. Turns are appended only after a successful model call.
type Session struct {
	mu         sync.Mutex
	bound      []genai.Part
	assets     []*models.RemoteAsset
	transcript []*models.ChatMessage
	generate   generateFunc
}

// NewSession creates a remote chat carrying the generation parameters and,
// for the plain chat slot, the fixed system instruction.
func (c *Client) NewSession(ctx context.Context, cfg SessionConfig) (*Session, error) {
	genCfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(cfg.Params.Temperature),
		TopP:            genai.Ptr(cfg.Params.TopP),
		MaxOutputTokens: cfg.Params.MaxOutputTokens,
	}
	if cfg.SystemInstruction != "" {
		genCfg.SystemInstruction = genai.NewContentFromText(cfg.SystemInstruction, genai.RoleUser)
	}
	chat, err := c.genai.Chats.Create(ctx, c.model, genCfg, nil)
	if err != nil {
		return nil, &InferenceError{Err: fmt.Errorf("create chat: %w", err)}
	}

	s := newSession(cfg, func(ctx context.Context, parts []genai.Part) (string, *models.Usage, error) {
		resp, err := chat.SendMessage(ctx, parts...)
		if err != nil {
			return "", nil, err
		}
		return resp.Text(), usageFromResponse(resp), nil
	})
	return s, nil
}

func newSession(cfg SessionConfig, generate generateFunc) *Session {
	s := &Session{generate: generate}
	for _, b := range cfg.Bindings {
		switch {
		case b.Asset != nil:
			s.assets = append(s.assets, b.Asset)
			s.bound = append(s.bound, genai.Part{
				FileData: &genai.FileData{FileURI: b.Asset.URI, MIMEType: b.Asset.MIMEType},
			})
		case b.Inline != nil:
			s.bound = append(s.bound, genai.Part{
				InlineData: &genai.Blob{Data: b.Inline.Data, MIMEType: b.Inline.MIMEType},
			})
		case b.Text != "":
			s.bound = append(s.bound, genai.Part{Text: b.Text})
		}
	}
	if cfg.SystemInstruction != "" {
		s.transcript = append(s.transcript, &models.ChatMessage{
			Role:      models.RoleSystem,
			Content:   cfg.SystemInstruction,
			CreatedAt: time.Now(),
		})
	}
	return s
}

// Send forwards the bound media plus the full accumulated transcript text
// together with the new message, then appends both turns. On failure the
// transcript is left exactly as it was.
func (s *Session) Send(ctx context.Context, text string) (*models.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	parts := make([]genai.Part, 0, len(s.bound)+1)
	parts = append(parts, s.bound...)
	parts = append(parts, genai.Part{Text: s.renderOutgoing(text)})

	replyText, usage, err := s.generate(ctx, parts)
	if err != nil {
		return nil, &InferenceError{Err: err}
	}

	now := time.Now()
	reply := &models.ChatMessage{
		Role:      models.RoleModel,
		Content:   replyText,
		CreatedAt: now,
		Usage:     usage,
	}
	s.transcript = append(s.transcript,
		&models.ChatMessage{Role: models.RoleUser, Content: text, CreatedAt: now},
		reply,
	)
	return reply, nil
}

// renderOutgoing prefixes the new message with every prior turn, so the model
// always sees the full running transcript inline.
func (s *Session) renderOutgoing(text string) string {
	if len(s.transcript) == 0 {
		return text
	}
	var b strings.Builder
	for _, m := range s.transcript {
		switch m.Role {
		case models.RoleUser:
			fmt.Fprintf(&b, "User: %s\n", m.Content)
		case models.RoleModel:
			fmt.Fprintf(&b, "Model: %s\n", m.Content)
		}
	}
	b.WriteString(text)
	return b.String()
}

// Transcript returns a copy of the accumulated turns.
func (s *Session) Transcript() []*models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.ChatMessage, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// Assets lists the remote assets bound at creation, for release policies.
func (s *Session) Assets() []*models.RemoteAsset {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.RemoteAsset, len(s.assets))
	copy(out, s.assets)
	return out
}

func usageFromResponse(resp *genai.GenerateContentResponse) *models.Usage {
	if resp == nil || resp.UsageMetadata == nil {
		return nil
	}
	return &models.Usage{
		PromptTokens: resp.UsageMetadata.PromptTokenCount,
		OutputTokens: resp.UsageMetadata.CandidatesTokenCount,
		TotalTokens:  resp.UsageMetadata.TotalTokenCount,
	}
}
