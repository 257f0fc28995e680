package agent

import (
	"context"
	"log/slog"

	"wikichat/internal/trace"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

type tracedTool struct {
	Tool
}

func withTrace(t Tool) Tool {
	return &tracedTool{Tool: t}
}

func (t *tracedTool) Execute(ctx context.Context, input string) (string, error) {
	ctx, span := trace.Tracer().Start(ctx, "tool."+t.Name(),
		oteltrace.WithAttributes(
			attribute.String("gen_ai.tool.name", t.Name()),
			attribute.String("gen_ai.tool.input", input),
		),
	)
	defer span.End()

	slog.Debug("tool call", "request_id", RequestIDFromContext(ctx), "tool", t.Name(), "input", input)

	result, err := t.Tool.Execute(ctx, input)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.Warn("tool execution failed", "request_id", RequestIDFromContext(ctx), "tool", t.Name(), "error", err)
		return result, err
	}

	span.SetAttributes(attribute.Int("gen_ai.tool.output_length", len(result)))
	slog.Debug("tool result", "request_id", RequestIDFromContext(ctx), "tool", t.Name(), "bytes", len(result))
	return result, nil
}
