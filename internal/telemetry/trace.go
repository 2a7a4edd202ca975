package telemetry

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/felixgeelhaar/grievance/internal/errors"
)

// StartCommand opens the span of one command run, named by its path
// ("grievance grievances list").
func (p *Provider) StartCommand(ctx context.Context, path string) (context.Context, trace.Span) {
	return p.Tracer().Start(ctx, path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("cli.command", path)),
	)
}

// EndCommand records the outcome of a command run and ends its span.
// A coded error adds its code as error.code.
func EndCommand(span trace.Span, err error) {
	if err == nil {
		span.SetStatus(codes.Ok, "")
		span.End()
		return
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		span.SetAttributes(attribute.String("error.code", string(appErr.Code)))
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.End()
}

// RecordDecision adds a guard decision to the span in ctx
func RecordDecision(ctx context.Context, route, phase, decision string) {
	trace.SpanFromContext(ctx).AddEvent("guard.decision", trace.WithAttributes(
		attribute.String("guard.route", route),
		attribute.String("session.phase", phase),
		attribute.String("guard.decision", decision),
	))
}

// RecordTransition adds a session phase change to the span in ctx
func RecordTransition(ctx context.Context, phase string) {
	trace.SpanFromContext(ctx).AddEvent("session.transition", trace.WithAttributes(
		attribute.String("session.phase", phase),
	))
}
