// Package app assembles the pipeline from configuration: Genkit and
// its provider plugin, the embedder, the vector index, the tool
// registry, the agent and the facade.
package app

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"

	"github.com/lectern-ai/lectern/internal/chat"
	"github.com/lectern-ai/lectern/internal/chunker"
	"github.com/lectern-ai/lectern/internal/config"
	"github.com/lectern-ai/lectern/internal/index"
	"github.com/lectern-ai/lectern/internal/log"
	"github.com/lectern-ai/lectern/internal/rag"
	"github.com/lectern-ai/lectern/internal/session"
	"github.com/lectern-ai/lectern/internal/tools"
)

// App is the core application container.
type App struct {
	Config   *config.Config
	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	Index    *index.Index
	Registry *tools.Registry
	Sessions *session.Store
	Agent    *chat.Agent
	System   *rag.System
	Logger   log.Logger
}

// Setup creates and initializes the application. The configuration
// must already be validated.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = log.NewNop()
	}

	a := &App{Config: cfg, Logger: logger}

	g, err := provideGenkit(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	embedder := googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found for provider %q", cfg.EmbedderModel, cfg.Provider)
	}
	a.Embedder = embedder

	ix, err := index.New(index.NewEmbeddingFunc(embedder), logger)
	if err != nil {
		return nil, fmt.Errorf("creating vector index: %w", err)
	}
	a.Index = ix

	registry, err := provideRegistry(ix, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Registry = registry

	a.Sessions = session.NewStore(cfg.MaxHistory, logger)

	agent, err := chat.New(chat.Config{
		Genkit:    g,
		Registry:  registry,
		Sessions:  a.Sessions,
		ModelName: cfg.FullModelName(),
		MaxTokens: cfg.MaxTokens,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating agent: %w", err)
	}
	a.Agent = agent

	system, err := rag.New(rag.Config{
		Chunker: chunker.New(chunker.Config{
			MaxChars: cfg.ChunkSize,
			Overlap:  cfg.ChunkOverlap,
		}, logger),
		Index:    ix,
		Agent:    agent,
		Sessions: a.Sessions,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating system: %w", err)
	}
	a.System = system

	logger.Info("application initialized",
		"provider", cfg.Provider,
		"model", cfg.ModelName,
		"embedder", cfg.EmbedderModel,
		"tools", registry.Count(),
	)
	return a, nil
}

// provideGenkit initializes Genkit with the configured AI provider
// plugin. Both supported providers ride the googlegenai plugin.
func provideGenkit(ctx context.Context, cfg *config.Config, logger log.Logger) (*genkit.Genkit, error) {
	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	if g == nil {
		return nil, fmt.Errorf("initializing genkit with provider %q", cfg.Provider)
	}
	logger.Debug("genkit initialized", "provider", cfg.Provider, "model", cfg.ModelName)
	return g, nil
}

// provideRegistry creates the retrieval tools and registers them.
func provideRegistry(ix *index.Index, cfg *config.Config, logger log.Logger) (*tools.Registry, error) {
	search, err := tools.NewSearch(ix, cfg.MaxResults, logger)
	if err != nil {
		return nil, fmt.Errorf("creating search tool: %w", err)
	}
	outline, err := tools.NewOutline(ix, logger)
	if err != nil {
		return nil, fmt.Errorf("creating outline tool: %w", err)
	}

	registry := tools.NewRegistry(logger)
	if err := registry.Register(search); err != nil {
		return nil, fmt.Errorf("registering search tool: %w", err)
	}
	if err := registry.Register(outline); err != nil {
		return nil, fmt.Errorf("registering outline tool: %w", err)
	}
	return registry, nil
}
