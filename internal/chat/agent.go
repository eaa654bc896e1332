// Package chat drives the two-pass tool-use protocol against the
// language model.
//
// Pass 1 sends the system policy, rendered conversation history and
// the user query with tool schemas attached, asking Genkit to return
// tool requests unexecuted. If the model requested tools, the agent
// executes them through the registry in request order, appends the
// model turn and a tool-response turn, and issues pass 2 with tool-use
// disabled. That bounds every query to exactly one retrieval round:
// two model calls plus however many tool calls the model requested in
// its single tool-using turn.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/lectern-ai/lectern/internal/log"
	"github.com/lectern-ai/lectern/internal/session"
	"github.com/lectern-ai/lectern/internal/tools"
)

// ErrGenerationUnavailable indicates the language-model call failed
// after the retry policy was exhausted. The underlying cause stays
// wrapped so callers can tell configuration errors from transient ones.
var ErrGenerationUnavailable = errors.New("generation unavailable")

// DefaultMaxTokens bounds the model's output length.
const DefaultMaxTokens = 800

// systemPrompt is the fixed generation policy. History is appended at
// query time.
const systemPrompt = `You are an assistant that answers questions about course materials.

Tool usage:
- Use search_course_content for questions about specific course content or detailed educational materials.
- Use get_course_outline for questions about course structure, lesson lists, or what a course covers.
- Use at most one round of retrieval per question. If a tool returns nothing useful, say so plainly.
- Answer general knowledge questions directly, without any tool.

Keep answers brief and grounded in the retrieved material. Do not comment on the tools or describe your search process.`

// fallbackResponseMessage is returned when the model produces an empty
// final turn.
const fallbackResponseMessage = "I was unable to generate a response. Please try rephrasing your question."

// Answer is the terminal output of one query: the final text plus the
// ordered citations collected from the tool executions that produced it.
type Answer struct {
	Text    string
	Sources []tools.Source
}

// Config holds the Agent's dependencies.
type Config struct {
	Genkit    *genkit.Genkit
	Registry  *tools.Registry
	Sessions  *session.Store
	ModelName string // provider-qualified, e.g. "googleai/gemini-2.5-flash"

	// MaxTokens bounds output length. Default: DefaultMaxTokens.
	MaxTokens int

	// Logger defaults to a no-op logger.
	Logger log.Logger

	// RetryConfig defaults to DefaultRetryConfig().
	RetryConfig *RetryConfig

	// RateLimiter paces model calls. Default: 10 req/s, burst 30.
	RateLimiter *rate.Limiter
}

func (c *Config) validate() error {
	if c.Genkit == nil {
		return fmt.Errorf("genkit instance is required")
	}
	if c.Registry == nil {
		return fmt.Errorf("tool registry is required")
	}
	if c.Sessions == nil {
		return fmt.Errorf("session store is required")
	}
	if c.ModelName == "" {
		return fmt.Errorf("model name is required")
	}
	return nil
}

// Agent orchestrates generation. Immutable after construction; safe
// for concurrent queries.
type Agent struct {
	g           *genkit.Genkit
	registry    *tools.Registry
	sessions    *session.Store
	modelName   string
	maxTokens   int
	toolRefs    []ai.ToolRef
	logger      log.Logger
	retryConfig RetryConfig
	rateLimiter *rate.Limiter
}

// New creates an Agent and resolves the registry's tool definitions
// once up front.
func New(cfg Config) (*Agent, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewNop()
	}
	retryConfig := DefaultRetryConfig()
	if cfg.RetryConfig != nil {
		retryConfig = *cfg.RetryConfig
	}
	limiter := cfg.RateLimiter
	if limiter == nil {
		limiter = rate.NewLimiter(10, 30)
	}

	return &Agent{
		g:           cfg.Genkit,
		registry:    cfg.Registry,
		sessions:    cfg.Sessions,
		modelName:   cfg.ModelName,
		maxTokens:   cfg.MaxTokens,
		toolRefs:    cfg.Registry.Refs(cfg.Genkit),
		logger:      cfg.Logger,
		retryConfig: retryConfig,
		rateLimiter: limiter,
	}, nil
}

// Ask answers one query for the given session. On success the exchange
// is recorded in the session store.
func (a *Agent) Ask(ctx context.Context, sessionID uuid.UUID, query string) (*Answer, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query is required")
	}

	sys := systemPrompt
	if history := a.sessions.History(sessionID); history != "" {
		sys += "\n\nPrevious conversation:\n" + history
	}
	userMsg := ai.NewUserMessage(ai.NewTextPart(query))

	first, err := a.generateWithRetry(ctx, []ai.GenerateOption{
		ai.WithModelName(a.modelName),
		ai.WithSystem(sys),
		ai.WithMessages(userMsg),
		ai.WithTools(a.toolRefs...),
		ai.WithReturnToolRequests(true),
		ai.WithConfig(a.generationConfig()),
	})
	if err != nil {
		return nil, err
	}

	requests := first.ToolRequests()
	if len(requests) == 0 {
		text := finalText(first)
		a.sessions.AppendExchange(sessionID, query, text)
		return &Answer{Text: text}, nil
	}

	a.logger.Debug("model requested tools", "session", sessionID, "count", len(requests))

	// Execute the requested tools in the model's order. Citations
	// travel in the outcome values, so a burst of requests simply
	// concatenates its citation lists.
	var sources []tools.Source
	parts := make([]*ai.Part, 0, len(requests))
	for _, req := range requests {
		input, _ := req.Input.(map[string]any)
		outcome := a.registry.Execute(ctx, req.Name, input)
		sources = append(sources, outcome.Sources...)
		parts = append(parts, ai.NewToolResponsePart(&ai.ToolResponse{
			Name:   req.Name,
			Ref:    req.Ref,
			Output: outcome.Text,
		}))
	}

	messages := []*ai.Message{
		userMsg,
		first.Message,
		{Role: ai.RoleTool, Content: parts},
	}

	// Pass 2 carries the tool transcript but offers no tools.
	second, err := a.generateWithRetry(ctx, []ai.GenerateOption{
		ai.WithModelName(a.modelName),
		ai.WithSystem(sys),
		ai.WithMessages(messages...),
		ai.WithConfig(a.generationConfig()),
	})
	if err != nil {
		return nil, err
	}

	text := finalText(second)
	a.sessions.AppendExchange(sessionID, query, text)
	return &Answer{Text: text, Sources: sources}, nil
}

// generationConfig builds the per-call model configuration. The
// googlegenai plugin only accepts genai config types, and Temperature
// must be a pointer so an explicit 0 survives serialization instead of
// falling back to the provider default.
func (a *Agent) generationConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0),
		MaxOutputTokens: int32(a.maxTokens),
	}
}

func finalText(resp *ai.ModelResponse) string {
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return fallbackResponseMessage
	}
	return text
}
