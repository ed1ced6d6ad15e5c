package emit

import (
	"context"
	"sync"
)

// HistoryFilter narrows BufferedEmitter.History's result set.
type HistoryFilter struct {
	RunID   string
	MinIter int
	MaxIter int
}

// BufferedEmitter accumulates events in memory per run, grounded on
// graph/emit/buffered.go. Useful for tests that assert on emitted
// events without wiring a real sink.
type BufferedEmitter struct {
	mu     sync.Mutex
	events map[string][]Event
}

// NewBufferedEmitter returns an empty BufferedEmitter.
func NewBufferedEmitter() *BufferedEmitter {
	return &BufferedEmitter{events: make(map[string][]Event)}
}

func (b *BufferedEmitter) Emit(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events[event.RunID] = append(b.events[event.RunID], event)
}

func (b *BufferedEmitter) EmitBatch(ctx context.Context, events []Event) error {
	for _, e := range events {
		if err := ctx.Err(); err != nil {
			return err
		}
		b.Emit(e)
	}
	return nil
}

func (b *BufferedEmitter) Flush(context.Context) error { return nil }

// History returns the events matching filter, in emission order.
func (b *BufferedEmitter) History(filter HistoryFilter) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Event
	for _, e := range b.events[filter.RunID] {
		if filter.MinIter > 0 && e.Iter < filter.MinIter {
			continue
		}
		if filter.MaxIter > 0 && e.Iter > filter.MaxIter {
			continue
		}
		out = append(out, e)
	}
	return out
}
