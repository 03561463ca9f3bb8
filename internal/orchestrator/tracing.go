// Tracing instrumentation for orchestrations.
package orchestrator

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/cognia-ai/agent-engine"

// startSubAgentSpan starts a span covering one sub-agent execution,
// including all of its retry attempts.
func startSubAgentSpan(ctx context.Context, sa *SubAgent) (context.Context, trace.Span) {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "orchestrator.subagent")
	span.SetAttributes(
		attribute.String("subagent.id", sa.ID),
		attribute.String("subagent.name", sa.Name),
	)
	return ctx, span
}

// endSubAgentSpan ends the sub-agent span with its terminal state.
func endSubAgentSpan(span trace.Span, sa *SubAgent, res *Result) {
	span.SetAttributes(
		attribute.String("subagent.status", string(sa.Status())),
		attribute.Bool("subagent.success", res.Success),
		attribute.Int("subagent.retries", sa.RetryCount()),
	)
	span.End()
}

// startBatchSpan starts a span covering one parallel batch.
func startBatchSpan(ctx context.Context, batch, size int) (context.Context, trace.Span) {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "orchestrator.batch")
	span.SetAttributes(
		attribute.Int("batch.number", batch),
		attribute.Int("batch.size", size),
	)
	return ctx, span
}
