package config

import (
	"errors"
	"strings"
	"testing"
)

// validConfig returns a config that passes Validate when GEMINI_API_KEY is set.
func validConfig() *Config {
	return &Config{
		Provider:      ProviderGemini,
		ModelName:     "gemini-2.5-flash",
		MaxTokens:     800,
		EmbedderModel: DefaultGeminiEmbedderModel,
		ChunkSize:     DefaultChunkSize,
		ChunkOverlap:  DefaultChunkOverlap,
		DocsDir:       "./docs",
		MaxResults:    DefaultMaxResults,
		MaxHistory:    DefaultMaxHistory,
		Addr:          ":8000",
		LogLevel:      "info",
	}
}

func TestValidate(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:   "valid config",
			mutate: func(*Config) {},
		},
		{
			name:    "unknown provider",
			mutate:  func(c *Config) { c.Provider = "ollama" },
			wantErr: ErrInvalidProvider,
		},
		{
			name:    "empty model name",
			mutate:  func(c *Config) { c.ModelName = "" },
			wantErr: ErrInvalidModelName,
		},
		{
			name:    "zero max tokens",
			mutate:  func(c *Config) { c.MaxTokens = 0 },
			wantErr: ErrInvalidMaxTokens,
		},
		{
			name:    "empty embedder model",
			mutate:  func(c *Config) { c.EmbedderModel = "" },
			wantErr: ErrInvalidEmbedderModel,
		},
		{
			name:    "zero chunk size",
			mutate:  func(c *Config) { c.ChunkSize = 0 },
			wantErr: ErrInvalidChunking,
		},
		{
			name:    "overlap equals chunk size",
			mutate:  func(c *Config) { c.ChunkOverlap = c.ChunkSize },
			wantErr: ErrInvalidChunking,
		},
		{
			name:    "negative overlap",
			mutate:  func(c *Config) { c.ChunkOverlap = -1 },
			wantErr: ErrInvalidChunking,
		},
		{
			name:    "zero max results",
			mutate:  func(c *Config) { c.MaxResults = 0 },
			wantErr: ErrInvalidMaxResults,
		},
		{
			name:    "negative max history",
			mutate:  func(c *Config) { c.MaxHistory = -1 },
			wantErr: ErrInvalidMaxHistory,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_NilConfig(t *testing.T) {
	var cfg *Config
	if err := cfg.Validate(); !errors.Is(err, ErrConfigNil) {
		t.Fatalf("Validate() on nil config = %v, want ErrConfigNil", err)
	}
}

func TestValidate_MissingAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	cfg := validConfig()
	err := cfg.Validate()
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("Validate() error = %v, want ErrMissingAPIKey", err)
	}
	if !strings.Contains(err.Error(), "GEMINI_API_KEY") {
		t.Errorf("error should name the missing variable, got: %v", err)
	}
}

func TestFullModelName(t *testing.T) {
	tests := []struct {
		name      string
		modelName string
		want      string
	}{
		{"bare model name", "gemini-2.5-flash", "googleai/gemini-2.5-flash"},
		{"already qualified", "googleai/gemini-2.5-pro", "googleai/gemini-2.5-pro"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.ModelName = tt.modelName
			if got := cfg.FullModelName(); got != tt.want {
				t.Errorf("FullModelName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFullEmbedderName(t *testing.T) {
	cfg := validConfig()
	want := "googleai/" + DefaultGeminiEmbedderModel
	if got := cfg.FullEmbedderName(); got != want {
		t.Errorf("FullEmbedderName() = %q, want %q", got, want)
	}
}
