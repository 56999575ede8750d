package ai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/hubideas/hubideas/internal/config"
	"github.com/hubideas/hubideas/internal/metrics"
)

// Gemini implements Generator on the Gemini API.
type Gemini struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGemini creates the Gemini generator. An empty API key yields a
// generator whose every call fails with ErrProvider, so callers can still
// fall back.
func NewGemini(ctx context.Context, cfg config.AIConfig) (*Gemini, error) {
	g := &Gemini{model: cfg.Model, timeout: cfg.Timeout}
	if cfg.APIKey == "" {
		return g, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	g.client = client
	return g, nil
}

func (g *Gemini) Configured() bool {
	return g.client != nil
}

func (g *Gemini) Generate(ctx context.Context, req Request) (*Result, error) {
	if g.client == nil {
		observe(req.Feature, "unconfigured")
		return nil, fmt.Errorf("%w: no api key configured", ErrProvider)
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.model, toContents(req), toConfig(req))
	if err != nil {
		observe(req.Feature, "error")
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}

	res := &Result{Text: strings.TrimSpace(resp.Text()), Tokens: totalTokens(resp)}
	if res.Text == "" {
		observe(req.Feature, "empty")
		return nil, fmt.Errorf("%w: empty response", ErrProvider)
	}

	observe(req.Feature, "success")
	slog.Debug("ai generation finished",
		"feature", req.Feature,
		"model", g.model,
		"tokens", res.Tokens,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

func (g *Gemini) Stream(ctx context.Context, req Request, onChunk func(string) error) (*Result, error) {
	if g.client == nil {
		observe(req.Feature, "unconfigured")
		return nil, fmt.Errorf("%w: no api key configured", ErrProvider)
	}

	var (
		sb     strings.Builder
		tokens int64
	)
	for resp, err := range g.client.Models.GenerateContentStream(ctx, g.model, toContents(req), toConfig(req)) {
		if err != nil {
			observe(req.Feature, "error")
			return &Result{Text: sb.String(), Tokens: tokens}, fmt.Errorf("%w: %v", ErrProvider, err)
		}
		// Usage metadata is cumulative; the last chunk carries the total.
		tokens = max(tokens, totalTokens(resp))

		chunk := resp.Text()
		if chunk == "" {
			continue
		}
		sb.WriteString(chunk)
		if err := onChunk(chunk); err != nil {
			observe(req.Feature, "aborted")
			return &Result{Text: sb.String(), Tokens: tokens}, err
		}
	}

	observe(req.Feature, "success")
	return &Result{Text: sb.String(), Tokens: tokens}, nil
}

func toContents(req Request) []*genai.Content {
	contents := make([]*genai.Content, 0, len(req.Messages)+1)
	for _, m := range req.Messages {
		role := genai.Role(genai.RoleUser)
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}
	if req.Prompt != "" {
		contents = append(contents, genai.NewContentFromText(req.Prompt, genai.RoleUser))
	}
	return contents
}

func toConfig(req Request) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.Schema != nil {
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseSchema = req.Schema
	}
	return cfg
}

func totalTokens(resp *genai.GenerateContentResponse) int64 {
	if resp == nil || resp.UsageMetadata == nil {
		return 0
	}
	return int64(resp.UsageMetadata.TotalTokenCount)
}

func observe(feature, status string) {
	if feature == "" {
		feature = "unknown"
	}
	metrics.AIGenerationsTotal.WithLabelValues(feature, status).Inc()
}
