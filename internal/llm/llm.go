// Package llm talks to chat-completion providers for role classification
// and cover letter text.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/config"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/secrets"
)

var (
	// ErrDisabled is returned by New when llm.provider is none.
	ErrDisabled = errors.New("llm disabled")
	// ErrUnknownRole means the model answered with a role that is not configured.
	ErrUnknownRole = errors.New("llm returned unknown role")
)

const (
	defaultOpenAIModel = "gpt-4o-mini"
	defaultGeminiModel = "gemini-2.0-flash"
)

// Request is one prompt. When JSON is set the provider is asked for a JSON
// object; Schema, if present, constrains it further.
type Request struct {
	System      string
	User        string
	JSON        bool
	SchemaName  string
	Schema      *jsonschema.Definition
	MaxTokens   int
	Temperature float32
}

type Completer interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
}

// New builds the configured provider wrapped with retries. It returns
// ErrDisabled when no provider is configured.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (Completer, error) {
	var (
		c   Completer
		err error
	)
	switch strings.ToLower(cfg.LLM.Provider) {
	case "", "none":
		return nil, ErrDisabled
	case "openai":
		key, kerr := secrets.Get(cfg, secrets.OpenAI)
		if kerr != nil {
			return nil, fmt.Errorf("llm openai: %w", kerr)
		}
		model := cfg.LLM.Model
		if model == "" {
			model = defaultOpenAIModel
		}
		c = NewOpenAI(key, model, cfg.LLM.BaseURL)
	case "gemini":
		key, kerr := secrets.Get(cfg, secrets.Gemini)
		if kerr != nil {
			return nil, fmt.Errorf("llm gemini: %w", kerr)
		}
		model := cfg.LLM.Model
		if model == "" {
			model = defaultGeminiModel
		}
		c, err = NewGemini(ctx, key, model)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.LLM.Provider)
	}

	timeout := time.Duration(cfg.LLM.TimeoutSeconds) * time.Second
	return WithRetry(c, cfg.LLM.MaxRetries, timeout, logger), nil
}

// Close releases provider resources when the completer holds any.
func Close(c Completer) error {
	if cl, ok := c.(interface{ Close() error }); ok {
		return cl.Close()
	}
	return nil
}
