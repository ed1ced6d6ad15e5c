package emit

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTelEmitter creates one span per event, grounded on
// graph/emit/otel.go: span name is the event message, attributes carry
// run/iter/depth plus every Meta entry, and the span status is set to
// error when Meta["error"] is present.
type OTelEmitter struct {
	tracer trace.Tracer
}

// NewOTelEmitter returns an OTelEmitter using the named tracer from the
// global TracerProvider.
func NewOTelEmitter(name string) *OTelEmitter {
	return &OTelEmitter{tracer: otel.Tracer(name)}
}

func (o *OTelEmitter) Emit(event Event) {
	_, span := o.tracer.Start(context.Background(), event.Msg)
	defer span.End()
	o.annotate(span, event)
}

func (o *OTelEmitter) EmitBatch(ctx context.Context, events []Event) error {
	for _, e := range events {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, span := o.tracer.Start(ctx, e.Msg)
		o.annotate(span, e)
		span.End()
	}
	return nil
}

func (o *OTelEmitter) Flush(context.Context) error { return nil }

func (o *OTelEmitter) annotate(span trace.Span, event Event) {
	attrs := []attribute.KeyValue{
		attribute.String("run_id", event.RunID),
		attribute.Int("iter", event.Iter),
		attribute.Int("depth", event.Depth),
	}
	for k, v := range event.Meta {
		attrs = append(attrs, attribute.String(k, toString(v)))
	}
	span.SetAttributes(attrs...)
	if _, hasErr := event.Meta["error"]; hasErr {
		span.SetStatus(codes.Error, event.Msg)
	}
}

func toString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
