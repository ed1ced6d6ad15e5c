package emit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// LogEmitter writes events as either plain text lines or one JSON
// object per line, grounded on graph/emit/log.go's LogEmitter.
type LogEmitter struct {
	w       io.Writer
	jsonMode bool
}

// NewLogEmitter returns a LogEmitter writing to w. jsonMode selects
// JSONL output over the default human-readable text.
func NewLogEmitter(w io.Writer, jsonMode bool) *LogEmitter {
	return &LogEmitter{w: w, jsonMode: jsonMode}
}

func (l *LogEmitter) Emit(event Event) {
	if l.jsonMode {
		l.emitJSON(event)
		return
	}
	l.emitText(event)
}

func (l *LogEmitter) emitText(event Event) {
	fmt.Fprintf(l.w, "[%s] iter=%d depth=%d %s\n", event.RunID, event.Iter, event.Depth, event.Msg)
}

func (l *LogEmitter) emitJSON(event Event) {
	enc := json.NewEncoder(l.w)
	_ = enc.Encode(event)
}

func (l *LogEmitter) EmitBatch(ctx context.Context, events []Event) error {
	for _, e := range events {
		if err := ctx.Err(); err != nil {
			return err
		}
		l.Emit(e)
	}
	return nil
}

// Flush is a no-op: writers that buffer internally (e.g. bufio.Writer)
// should wrap themselves and flush on their own terms, the way the
// teacher's LogEmitter documents.
func (l *LogEmitter) Flush(context.Context) error {
	return nil
}
