package llm

import (
	"context"
	"encoding/json"
	"fmt"
)

// preset holds per-provider defaults applied when Config leaves them empty.
type preset struct {
	baseURL string
	prefix  string
	model   string
	// nativeEmbed selects Ollama's /api/embed endpoint for embeddings.
	nativeEmbed bool
}

var presets = map[string]preset{
	"groq":       {baseURL: "https://api.groq.com/openai", prefix: "/v1", model: "llama3-8b-8192"},
	"ollama":     {baseURL: "http://localhost:11434", prefix: "/v1", nativeEmbed: true},
	"openai":     {baseURL: "https://api.openai.com", prefix: "/v1", model: "gpt-4o-mini"},
	"gemini":     {baseURL: "https://generativelanguage.googleapis.com/v1beta/openai"},
	"openrouter": {baseURL: "https://openrouter.ai/api", prefix: "/v1"},
	"lmstudio":   {baseURL: "http://localhost:1234", prefix: "/v1"},
	"xai":        {baseURL: "https://api.x.ai", prefix: "/v1"},
	"custom":     {prefix: "/v1"},
}

// compatProvider serves chat and embeddings over the OpenAI-compatible API.
type compatProvider struct {
	base client
}

func (p *compatProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	return p.base.chat(ctx, req)
}

func (p *compatProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return p.base.embed(ctx, texts)
}

// ollamaProvider chats through Ollama's OpenAI-compatible endpoint but
// embeds through the native batch API.
type ollamaProvider struct {
	base client
}

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

func (p *ollamaProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	return p.base.chat(ctx, req)
}

func (p *ollamaProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	respBody, err := p.base.post(ctx, "/api/embed", ollamaEmbedRequest{
		Model: p.base.cfg.Model,
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}

	var resp ollamaEmbedResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("decoding ollama embed response: %w", err)
	}

	out := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		out[i] = float64sToFloat32s(emb)
	}
	return out, nil
}

func float64sToFloat32s(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}
