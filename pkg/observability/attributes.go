package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Charter semantic convention attributes.
var (
	AttrOp        = attribute.Key("charter.call.op")
	AttrCallID    = attribute.Key("charter.call.id")
	AttrCaller    = attribute.Key("charter.call.caller")
	AttrOutcome   = attribute.Key("charter.call.outcome")
	AttrFaultKind = attribute.Key("charter.fault.kind")
	AttrStateHash = attribute.Key("charter.state.hash")
	AttrSequence  = attribute.Key("charter.journal.sequence")
)

// CallAttributes identifies one call on a span.
func CallAttributes(callID, caller string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrCallID.String(callID),
		AttrCaller.String(caller),
	}
}

// AddSpanEvent adds an event to the current span.
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(attrs...))
}
