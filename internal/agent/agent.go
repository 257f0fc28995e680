package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"wikichat/internal/llm"
	"wikichat/internal/textutil"
	"wikichat/internal/trace"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

const (
	defaultStrategy      = "zero-shot-react-description"
	defaultMaxIterations = 15

	// maxMessageAttr caps the user message recorded on the run span, in
	// characters.
	maxMessageAttr = 200

	// stoppedAnswer is returned when the iteration budget runs out before the
	// model produces a final answer.
	stoppedAnswer = "Agent stopped due to iteration limit or time limit."
)

// Runner answers a single message. Implementations keep no state between
// calls.
type Runner interface {
	Run(ctx context.Context, message string) (string, error)
}

// Strategy is a reasoning pattern driving the model and the tools.
type Strategy interface {
	Name() string
	Run(ctx context.Context, message string) (string, error)
}

// StrategyFactory builds a strategy from the agent's collaborators.
type StrategyFactory func(provider llm.Provider, registry *Registry, maxIterations int) Strategy

var strategies = map[string]StrategyFactory{
	"zero-shot-react-description": func(p llm.Provider, r *Registry, n int) Strategy {
		return newReActStrategy(p, r, n)
	},
	"tool-calling": func(p llm.Provider, r *Registry, n int) Strategy {
		return newToolCallingStrategy(p, r, n)
	},
}

// Strategies lists the built-in strategy names.
func Strategies() []string {
	names := make([]string, 0, len(strategies))
	for name := range strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type Option func(*Agent)

// WithMaxIterations bounds the number of model calls per run.
func WithMaxIterations(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.maxIterations = n
		}
	}
}

// Agent is the process-wide handle the HTTP layer dispatches to. It is built
// once at startup and is safe for concurrent use.
type Agent struct {
	strategy      Strategy
	provider      llm.Provider
	maxIterations int
}

// New builds an agent around provider and the tools in registry using the
// named strategy. An empty name selects zero-shot-react-description.
func New(provider llm.Provider, registry *Registry, strategy string, opts ...Option) (*Agent, error) {
	if strategy == "" {
		strategy = defaultStrategy
	}
	factory, ok := strategies[strategy]
	if !ok {
		return nil, fmt.Errorf("unknown agent strategy %q (known: %v)", strategy, Strategies())
	}

	a := &Agent{provider: provider, maxIterations: defaultMaxIterations}
	for _, opt := range opts {
		opt(a)
	}
	a.strategy = factory(provider, registry, a.maxIterations)
	return a, nil
}

func (a *Agent) Strategy() string { return a.strategy.Name() }

func (a *Agent) Run(ctx context.Context, message string) (string, error) {
	ctx, span := trace.Tracer().Start(ctx, "agent.run",
		oteltrace.WithAttributes(
			attribute.String("agent.strategy", a.strategy.Name()),
			attribute.String("llm.provider", a.provider.Name()),
			attribute.String("request.id", RequestIDFromContext(ctx)),
			attribute.String("user.message", textutil.Truncate(message, maxMessageAttr)),
		),
	)
	defer span.End()

	answer, err := a.strategy.Run(ctx, message)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	span.SetAttributes(attribute.Int("agent.answer_length", len(answer)))
	return answer, nil
}

// generate performs one traced model call.
func generate(ctx context.Context, provider llm.Provider, req llm.Request, iteration int) (*llm.Response, error) {
	ctx, span := trace.Tracer().Start(ctx, "llm.generate",
		oteltrace.WithAttributes(attribute.Int("llm.iteration", iteration)),
	)
	defer span.End()

	resp, err := provider.Generate(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.String("llm.model", resp.Model),
		attribute.Int64("llm.input_tokens", resp.InputTokens),
		attribute.Int64("llm.output_tokens", resp.OutputTokens),
	)
	slog.Debug("llm.generate",
		"request_id", RequestIDFromContext(ctx),
		"iteration", iteration,
		"model", resp.Model,
		"tool_calls", len(resp.ToolCalls),
	)
	return resp, nil
}
