package emit

import "context"

// Emitter is the sink every scheduler event is sent to, grounded on
// graph/emit.Emitter.
type Emitter interface {
	Emit(event Event)
	EmitBatch(ctx context.Context, events []Event) error
	Flush(ctx context.Context) error
}
