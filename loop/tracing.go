// Tracing instrumentation for the loop controller.
package loop

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/c360studio/agentloop/loop"

// startExecutionSpan starts the root span for one execution.
func startExecutionSpan(ctx context.Context, threadID, executionID, model string) (context.Context, trace.Span) {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "execution.run")
	span.SetAttributes(
		attribute.String("execution.thread_id", threadID),
		attribute.String("execution.id", executionID),
		attribute.String("execution.model", model),
	)
	return ctx, span
}

// endExecutionSpan closes the execution span with its terminal outcome.
func endExecutionSpan(span trace.Span, status Status, turns int, err error) {
	span.SetAttributes(
		attribute.String("execution.status", string(status)),
		attribute.Int("execution.turns", turns),
	)
	if err != nil {
		span.RecordError(err)
	}
	span.End()
}

// startTurnSpan starts a span for one turn.
func startTurnSpan(ctx context.Context, turnNumber int, model string) (context.Context, trace.Span) {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "turn")
	span.SetAttributes(
		attribute.Int("turn.number", turnNumber),
		attribute.String("turn.model", model),
	)
	return ctx, span
}

// endTurnSpan closes a turn span with its scoring outcome.
func endTurnSpan(span trace.Span, confidence int, status string, err error) {
	span.SetAttributes(
		attribute.Int("turn.confidence", confidence),
		attribute.String("turn.status", status),
	)
	if err != nil {
		span.RecordError(err)
	}
	span.End()
}

// startToolSpan starts a span for one tool call.
func startToolSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "tool."+name)
	span.SetAttributes(attribute.String("tool.name", name))
	return ctx, span
}

// endToolSpan closes a tool span.
func endToolSpan(span trace.Span, failed bool) {
	span.SetAttributes(attribute.Bool("tool.failed", failed))
	span.End()
}
