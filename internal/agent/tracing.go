// Tracing instrumentation for agent runs.
package agent

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/cognia-ai/agent-engine"

// startRunSpan starts a span covering the whole agent run.
func startRunSpan(ctx context.Context, runID, task string) (context.Context, trace.Span) {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "agent.run")
	span.SetAttributes(
		attribute.String("agent.run_id", runID),
		attribute.String("agent.task", truncateForTrace(task, 500)),
	)
	return ctx, span
}

// endRunSpan ends the run span with result info.
func endRunSpan(span trace.Span, result *Result, err error) {
	span.SetAttributes(
		attribute.Bool("agent.success", result.Success),
		attribute.Int("agent.steps", result.TotalSteps),
		attribute.Int("agent.tokens", result.TokenUsage.Total()),
	)
	if err != nil {
		span.RecordError(err)
	}
	span.End()
}

// startStepSpan starts a child span for one loop iteration.
func startStepSpan(ctx context.Context, runID string, step int) (context.Context, trace.Span) {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "agent.step")
	span.SetAttributes(
		attribute.String("agent.run_id", runID),
		attribute.Int("agent.step", step),
	)
	return ctx, span
}

func truncateForTrace(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
