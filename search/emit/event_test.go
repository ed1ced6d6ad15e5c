package emit_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/dshills/pexplore/search/emit"
)

func TestNullEmitterDiscardsEverything(t *testing.T) {
	n := emit.NewNullEmitter()
	n.Emit(emit.Event{Msg: "hello"})
	if err := n.EmitBatch(context.Background(), []emit.Event{{Msg: "a"}, {Msg: "b"}}); err != nil {
		t.Fatalf("EmitBatch on NullEmitter should never error, got %v", err)
	}
}

func TestLogEmitterTextMode(t *testing.T) {
	var buf bytes.Buffer
	l := emit.NewLogEmitter(&buf, false)
	l.Emit(emit.Event{RunID: "run-1", Iter: 2, Depth: 3, Msg: "step taken"})
	out := buf.String()
	if !strings.Contains(out, "run-1") || !strings.Contains(out, "step taken") {
		t.Fatalf("text mode output missing expected fields: %q", out)
	}
}

func TestLogEmitterJSONMode(t *testing.T) {
	var buf bytes.Buffer
	l := emit.NewLogEmitter(&buf, true)
	l.Emit(emit.Event{RunID: "run-1", Iter: 5, Msg: "checkpoint saved"})

	var decoded emit.Event
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("JSON mode should emit one valid JSON object per line: %v", err)
	}
	if decoded.RunID != "run-1" || decoded.Iter != 5 {
		t.Fatalf("decoded event does not match input: %+v", decoded)
	}
}

func TestBufferedEmitterHistoryFilter(t *testing.T) {
	b := emit.NewBufferedEmitter()
	b.Emit(emit.Event{RunID: "r1", Iter: 1, Msg: "a"})
	b.Emit(emit.Event{RunID: "r1", Iter: 2, Msg: "b"})
	b.Emit(emit.Event{RunID: "r2", Iter: 1, Msg: "c"})

	hist := b.History(emit.HistoryFilter{RunID: "r1"})
	if len(hist) != 2 {
		t.Fatalf("expected 2 events for r1, got %d", len(hist))
	}

	hist = b.History(emit.HistoryFilter{RunID: "r1", MinIter: 2})
	if len(hist) != 1 || hist[0].Msg != "b" {
		t.Fatalf("MinIter filter should leave only the iter=2 event, got %+v", hist)
	}
}
