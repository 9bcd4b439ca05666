package otel

import (
	"context"
	"sync"

	eventbus "github.com/tvarn/fieldplan/internal/eventbus"
	events "github.com/tvarn/fieldplan/internal/events"
	reqid "github.com/tvarn/fieldplan/internal/reqid"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
)

// Setup configures OpenTelemetry and attaches tracing subscribers to bus.
// If endpoint is empty, no telemetry is configured.
func Setup(bus *eventbus.Bus, endpoint, service string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	exp, err := otlptracegrpc.New(context.Background(),
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithDialOption(grpc.WithInsecure()))
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(service),
		)),
	)
	otel.SetTracerProvider(tp)

	sub := &subscriber{tracer: otel.Tracer("fieldplan")}
	sub.register(bus)

	return tp.Shutdown, nil
}

type subscriber struct {
	tracer       trace.Tracer
	httpSpans    sync.Map // rid -> trace.Span
	planSpans    sync.Map // rid -> trace.Span
	extractSpans sync.Map // rid -> trace.Span
}

func (s *subscriber) register(bus *eventbus.Bus) {
	eventbus.Subscribe(bus, func(ctx context.Context, e events.HTTPStart) {
		rid, _ := reqid.FromContext(ctx)
		_, span := s.tracer.Start(ctx, "http.request")
		span.SetAttributes(
			semconv.HTTPMethodKey.String(e.Request.Method),
			attribute.String("http.target", e.Request.URL.Path),
		)
		s.httpSpans.Store(rid, span)
	})

	eventbus.Subscribe(bus, func(ctx context.Context, e events.HTTPFinish) {
		rid, _ := reqid.FromContext(ctx)
		v, ok := s.httpSpans.LoadAndDelete(rid)
		if !ok {
			return
		}
		span := v.(trace.Span)
		span.SetAttributes(semconv.HTTPStatusCodeKey.Int(e.Status))
		span.End()
	})

	eventbus.Subscribe(bus, func(ctx context.Context, e events.PlanStart) {
		rid, _ := reqid.FromContext(ctx)
		parent := ctx
		if v, ok := s.httpSpans.Load(rid); ok {
			parent = trace.ContextWithSpan(ctx, v.(trace.Span))
		}
		_, span := s.tracer.Start(parent, "fieldplan.plan")
		span.SetAttributes(
			attribute.String("fieldplan.resource", e.Resource),
			attribute.Int("fieldplan.fields", e.Fields),
		)
		s.planSpans.Store(rid, span)
	})

	eventbus.Subscribe(bus, func(ctx context.Context, e events.PlanFinish) {
		rid, _ := reqid.FromContext(ctx)
		v, ok := s.planSpans.LoadAndDelete(rid)
		if !ok {
			return
		}
		span := v.(trace.Span)
		span.SetAttributes(
			attribute.Int("fieldplan.selects", e.Selects),
			attribute.Int("fieldplan.loads", e.Loads),
		)
		if e.Err != nil {
			span.RecordError(e.Err)
		}
		span.End()
	})

	eventbus.Subscribe(bus, func(ctx context.Context, e events.ExtractStart) {
		rid, _ := reqid.FromContext(ctx)
		parent := ctx
		if v, ok := s.httpSpans.Load(rid); ok {
			parent = trace.ContextWithSpan(ctx, v.(trace.Span))
		}
		_, span := s.tracer.Start(parent, "fieldplan.extract")
		span.SetAttributes(attribute.String("fieldplan.resource", e.Resource))
		s.extractSpans.Store(rid, span)
	})

	eventbus.Subscribe(bus, func(ctx context.Context, e events.ExtractFinish) {
		rid, _ := reqid.FromContext(ctx)
		v, ok := s.extractSpans.LoadAndDelete(rid)
		if !ok {
			return
		}
		v.(trace.Span).End()
	})
}
