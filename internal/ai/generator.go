// Package ai wraps the text generation provider used by the assistant
// endpoints and the resurfacing scheduler.
package ai

import (
	"context"
	"errors"

	"google.golang.org/genai"
)

// ErrProvider is returned for every failure of the generation provider,
// including a missing API key.
var ErrProvider = errors.New("ai provider error")

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Feature labels used for metrics and logs.
const (
	FeatureChat         = "chat"
	FeatureSuggestTodos = "suggest_todos"
	FeatureProjectPlan  = "project_plan"
	FeatureResurfacing  = "resurfacing"
)

type Message struct {
	Role    string `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content" validate:"required"`
}

// Request describes one generation call. Prompt, when set, is appended as
// a final user message.
type Request struct {
	Feature  string
	System   string
	Messages []Message
	Prompt   string
	// Schema switches the provider to JSON output constrained by the schema.
	Schema *genai.Schema
}

// Result carries the generated text and the provider-reported total token
// count for the call.
type Result struct {
	Text   string
	Tokens int64
}

// Generator is implemented by Gemini and by test fakes.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Result, error)
	// Stream calls onChunk for every text fragment as it arrives. The
	// returned Result holds the full text. An error from onChunk aborts
	// the stream and is returned as is.
	Stream(ctx context.Context, req Request, onChunk func(string) error) (*Result, error)
}
