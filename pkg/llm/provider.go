package llm

import (
	"context"
)

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// DeltaFunc receives incremental output during streaming generation.
// Returning an error aborts the stream.
type DeltaFunc func(delta string) error

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string // Override default model
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithMaxTokens(maxTokens int) Option {
	return func(o *Options) {
		o.MaxTokens = maxTokens
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// LLMProvider defines the contract for any LLM backend
type LLMProvider interface {
	// Chat sends a chat history to the model and returns the response
	Chat(ctx context.Context, history []Message, options ...Option) (string, error)

	// ChatStream sends a chat history and delivers incremental deltas to
	// onDelta as they arrive, returning the full concatenated response.
	// Providers without native token streaming emit the complete response
	// re-chunked into fixed-size deltas.
	ChatStream(ctx context.Context, history []Message, onDelta DeltaFunc, options ...Option) (string, error)

	// Generate sends a single prompt to the model (convenience method)
	Generate(ctx context.Context, prompt string, options ...Option) (string, error)
}

// EmitChunks splits text into fixed-size rune chunks and feeds them to
// onDelta. Used by providers that cannot stream natively.
func EmitChunks(text string, chunkSize int, onDelta DeltaFunc) error {
	if chunkSize <= 0 {
		chunkSize = 64
	}
	runes := []rune(text)
	for i := 0; i < len(runes); i += chunkSize {
		end := i + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		if err := onDelta(string(runes[i:end])); err != nil {
			return err
		}
	}
	return nil
}
