package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"crag-notes-be/pkg/llm"
)

// GeminiProvider talks to the Gemini generateContent REST API. Gemini has
// no plain NDJSON streaming endpoint we rely on, so ChatStream re-chunks
// the full response into fixed-size deltas.
type GeminiProvider struct {
	ApiKey    string
	ModelName string
	ChunkSize int
	Client    *http.Client
}

var _ llm.LLMProvider = &GeminiProvider{}

func NewGeminiProvider(apiKey, modelName string, chunkSize int) *GeminiProvider {
	if modelName == "" {
		modelName = "gemini-2.0-flash"
	}
	return &GeminiProvider{
		ApiKey:    apiKey,
		ModelName: modelName,
		ChunkSize: chunkSize,
		Client:    &http.Client{Timeout: 120 * time.Second},
	}
}

type geminiChatParts struct {
	Text string `json:"text"`
}

type geminiChatContent struct {
	Parts []geminiChatParts `json:"parts"`
	Role  string            `json:"role,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"maxOutputTokens,omitempty"`
}

type geminiChatRequest struct {
	Contents          []geminiChatContent     `json:"contents"`
	SystemInstruction *geminiChatContent      `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiChatCandidate struct {
	Content geminiChatContent `json:"content"`
}

type geminiChatResponse struct {
	Candidates []geminiChatCandidate `json:"candidates"`
}

func (p *GeminiProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	options := &llm.Options{Temperature: 0.1}
	for _, opt := range opts {
		opt(options)
	}

	reqPayload := geminiChatRequest{
		GenerationConfig: &geminiGenerationConfig{
			Temperature: options.Temperature,
			MaxTokens:   options.MaxTokens,
		},
	}

	for _, msg := range history {
		switch msg.Role {
		case "system":
			reqPayload.SystemInstruction = &geminiChatContent{
				Parts: []geminiChatParts{{Text: msg.Content}},
			}
		case "assistant", "model":
			reqPayload.Contents = append(reqPayload.Contents, geminiChatContent{
				Parts: []geminiChatParts{{Text: msg.Content}},
				Role:  "model",
			})
		default: // "user", "human"
			reqPayload.Contents = append(reqPayload.Contents, geminiChatContent{
				Parts: []geminiChatParts{{Text: msg.Content}},
				Role:  "user",
			})
		}
	}

	model := p.ModelName
	if options.Model != "" {
		model = options.Model
	}

	payloadBytes, err := json.Marshal(reqPayload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf(
		"https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent",
		model,
	)
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewBuffer(payloadBytes))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("x-goog-api-key", p.ApiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	var geminiResp geminiChatResponse
	if err := json.Unmarshal(bodyBytes, &geminiResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini returned no candidates")
	}

	return geminiResp.Candidates[0].Content.Parts[0].Text, nil
}

func (p *GeminiProvider) ChatStream(ctx context.Context, history []llm.Message, onDelta llm.DeltaFunc, opts ...llm.Option) (string, error) {
	full, err := p.Chat(ctx, history, opts...)
	if err != nil {
		return "", err
	}
	if err := llm.EmitChunks(full, p.ChunkSize, onDelta); err != nil {
		return full, err
	}
	return full, nil
}

func (p *GeminiProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, opts...)
}
