package llm

import (
	"fmt"
	"reflect"
	"testing"
)

func TestNewProvider(t *testing.T) {
	tests := []struct {
		provider string
		wantType string
	}{
		{"groq", "*llm.compatProvider"},
		{"ollama", "*llm.ollamaProvider"},
		{"openai", "*llm.compatProvider"},
		{"gemini", "*llm.compatProvider"},
		{"lmstudio", "*llm.compatProvider"},
		{"openrouter", "*llm.compatProvider"},
		{"xai", "*llm.compatProvider"},
		{"custom", "*llm.compatProvider"},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			p, err := NewProvider(Config{Provider: tt.provider, Model: "test-model"})
			if err != nil {
				t.Fatalf("NewProvider(%q) returned error: %v", tt.provider, err)
			}
			if got := fmt.Sprintf("%T", p); got != tt.wantType {
				t.Errorf("NewProvider(%q) type = %s, want %s", tt.provider, got, tt.wantType)
			}
		})
	}
}

func TestNewProviderUnknown(t *testing.T) {
	_, err := NewProvider(Config{Provider: "doesnotexist", Model: "test-model"})
	if err == nil {
		t.Fatal("expected error for unknown provider, got nil")
	}
	want := "unknown llm provider: doesnotexist"
	if err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
}

func TestNewProviderEmpty(t *testing.T) {
	_, err := NewProvider(Config{Model: "test-model"})
	if err == nil {
		t.Fatal("expected error for empty provider, got nil")
	}
	want := "llm provider not specified"
	if err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
}

// baseConfig reaches base.cfg on the concrete provider.
func baseConfig(t *testing.T, p Provider) reflect.Value {
	t.Helper()
	return reflect.ValueOf(p).Elem().FieldByName("base").FieldByName("cfg")
}

func TestDefaultBaseURLs(t *testing.T) {
	tests := []struct {
		provider string
		wantURL  string
	}{
		{"groq", "https://api.groq.com/openai"},
		{"ollama", "http://localhost:11434"},
		{"openai", "https://api.openai.com"},
		{"lmstudio", "http://localhost:1234"},
		{"openrouter", "https://openrouter.ai/api"},
		{"xai", "https://api.x.ai"},
		{"custom", ""},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			p, err := NewProvider(Config{Provider: tt.provider, Model: "test-model"})
			if err != nil {
				t.Fatalf("NewProvider(%q): %v", tt.provider, err)
			}
			if got := baseConfig(t, p).FieldByName("BaseURL").String(); got != tt.wantURL {
				t.Errorf("default BaseURL for %q = %q, want %q", tt.provider, got, tt.wantURL)
			}
		})
	}
}

func TestExplicitBaseURLPreserved(t *testing.T) {
	customURL := "http://my-server:9999"

	for _, provider := range []string{"groq", "ollama", "lmstudio", "openrouter", "xai", "custom"} {
		t.Run(provider, func(t *testing.T) {
			p, err := NewProvider(Config{Provider: provider, Model: "m", BaseURL: customURL})
			if err != nil {
				t.Fatalf("NewProvider(%q): %v", provider, err)
			}
			if got := baseConfig(t, p).FieldByName("BaseURL").String(); got != customURL {
				t.Errorf("provider %q BaseURL = %q, want %q", provider, got, customURL)
			}
		})
	}
}

func TestDefaultModel(t *testing.T) {
	p, err := NewProvider(Config{Provider: "groq"})
	if err != nil {
		t.Fatal(err)
	}
	if got := baseConfig(t, p).FieldByName("Model").String(); got != "llama3-8b-8192" {
		t.Errorf("groq default model = %q", got)
	}

	p, err = NewProvider(Config{Provider: "ollama", Model: "all-minilm"})
	if err != nil {
		t.Fatal(err)
	}
	if got := baseConfig(t, p).FieldByName("Model").String(); got != "all-minilm" {
		t.Errorf("model = %q, want all-minilm", got)
	}
}

func TestAPIKeyPassedThrough(t *testing.T) {
	p, err := NewProvider(Config{Provider: "openrouter", Model: "test", APIKey: "sk-test-key-123"})
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	if got := baseConfig(t, p).FieldByName("APIKey").String(); got != "sk-test-key-123" {
		t.Errorf("api key = %q, want %q", got, "sk-test-key-123")
	}
}

func TestGeminiHasNoPathPrefix(t *testing.T) {
	p, err := NewProvider(Config{Provider: "gemini", Model: "gemini-2.5-flash"})
	if err != nil {
		t.Fatal(err)
	}
	prefix := reflect.ValueOf(p).Elem().FieldByName("base").FieldByName("prefix").String()
	if prefix != "" {
		t.Errorf("gemini prefix = %q, want empty", prefix)
	}
}
