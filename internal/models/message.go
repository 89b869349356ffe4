package models

import "time"

type Role string

const (
	RoleUser   Role = "user"
	RoleModel  Role = "model"
	RoleSystem Role = "system"
)

// ChatMessage captures one turn of a slot's transcript.
type ChatMessage struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Usage     *Usage    `json:"usage,omitempty"`
}

// Usage is the token accounting the service reports for a reply.
type Usage struct {
	PromptTokens int32 `json:"prompt_tokens"`
	OutputTokens int32 `json:"output_tokens"`
	TotalTokens  int32 `json:"total_tokens"`
}
