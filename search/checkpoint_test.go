package search_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/dshills/pexplore/search"
	"github.com/dshills/pexplore/search/boolalg"
	"github.com/dshills/pexplore/search/store"
)

// boolalgGuardCodec/intVSCodec are a minimal search.GuardCodec/
// search.ValueSummaryCodec pair bound to boolalg.World and
// search.PrimitiveVS[int], enough to exercise search.JSONCodec's
// generic Schedule/TaskManager serialization in a test without a real
// solver.
type boolalgGuardCodec struct{ w *boolalg.World }

func (c boolalgGuardCodec) EncodeGuard(g search.Guard) ([]byte, error) {
	return json.Marshal(c.w.Bits(g))
}

func (c boolalgGuardCodec) DecodeGuard(b []byte) (search.Guard, error) {
	var bits uint64
	if err := json.Unmarshal(b, &bits); err != nil {
		return nil, err
	}
	return c.w.FromBits(bits), nil
}

// vsWireEntry is domainVSCodec's wire shape for one guarded value.
// Kind distinguishes the two concrete ValueSummary element types this
// test's domain actually produces: machine local state (int) and
// sender picks (search.Machine).
type vsWireEntry struct {
	Bits      uint64
	Kind      string
	Int       int
	MachineID string
}

// domainVSCodec is a minimal search.ValueSummaryCodec bound to
// boolalg.World, handling both PrimitiveVS[int] (machine local state)
// and PrimitiveVS[search.Machine] (sender choices) so it can round-trip
// a real Schedule produced by Step. Decoding a machine-valued entry
// looks the machine up by ID in machines, since LoadCheckpoint resumes
// into a fresh Runtime whose Machine instances are not the ones the
// checkpoint was saved from.
type domainVSCodec struct {
	w        *boolalg.World
	machines map[string]search.Machine
}

func (c domainVSCodec) EncodeValueSummary(vs search.ValueSummary) ([]byte, error) {
	switch pvs := vs.(type) {
	case *search.PrimitiveVS[int]:
		out := make([]vsWireEntry, 0, len(pvs.GuardedValues()))
		for _, gv := range pvs.GuardedValues() {
			out = append(out, vsWireEntry{Bits: c.w.Bits(gv.Guard), Kind: "int", Int: gv.Value})
		}
		return json.Marshal(out)
	case *search.PrimitiveVS[search.Machine]:
		out := make([]vsWireEntry, 0, len(pvs.GuardedValues()))
		for _, gv := range pvs.GuardedValues() {
			out = append(out, vsWireEntry{Bits: c.w.Bits(gv.Guard), Kind: "machine", MachineID: gv.Value.ID()})
		}
		return json.Marshal(out)
	default:
		return nil, fmt.Errorf("domainVSCodec: unsupported ValueSummary type %T", vs)
	}
}

func (c domainVSCodec) DecodeValueSummary(b []byte) (search.ValueSummary, error) {
	var in []vsWireEntry
	if err := json.Unmarshal(b, &in); err != nil {
		return nil, err
	}
	if len(in) == 0 {
		return search.NewPrimitiveVS([]search.GuardedValue[int]{}), nil
	}
	switch in[0].Kind {
	case "machine":
		gvs := make([]search.GuardedValue[search.Machine], len(in))
		for i, e := range in {
			m, ok := c.machines[e.MachineID]
			if !ok {
				return nil, fmt.Errorf("domainVSCodec: unknown machine id %q", e.MachineID)
			}
			gvs[i] = search.GuardedValue[search.Machine]{Guard: c.w.FromBits(e.Bits), Value: m}
		}
		return search.NewPrimitiveVS(gvs), nil
	default:
		gvs := make([]search.GuardedValue[int], len(in))
		for i, e := range in {
			gvs[i] = search.GuardedValue[int]{Guard: c.w.FromBits(e.Bits), Value: e.Int}
		}
		return search.NewPrimitiveVS(gvs), nil
	}
}

// twoSenderRuntime offers every machine that is not halted and still
// has a queued tick (A, then B), each with int local state, so Step
// produces a real pending Backtrack at every depth where both are
// ready under explicit-mode ChoiceSelector.Select.
type twoSenderRuntime struct {
	w        *boolalg.World
	machines []*toyMachine
}

func newTwoSenderRuntime(w *boolalg.World, ticksEach int) *twoSenderRuntime {
	a := &toyMachine{id: "A", w: w, target: ticksEach, buf: &toyBuffer{w: w}}
	b := &toyMachine{id: "B", w: w, target: ticksEach, buf: &toyBuffer{w: w}}
	for i := 0; i < ticksEach; i++ {
		a.buf.msgs = append(a.buf.msgs, search.Message{Sender: "A", Target: "A", Event: "tick", Guard: w.True()})
		b.buf.msgs = append(b.buf.msgs, search.Message{Sender: "B", Target: "B", Event: "tick", Guard: w.True()})
	}
	return &twoSenderRuntime{w: w, machines: []*toyMachine{a, b}}
}

func (r *twoSenderRuntime) Machines() []search.Machine {
	out := make([]search.Machine, len(r.machines))
	for i, m := range r.machines {
		out[i] = m
	}
	return out
}

func (r *twoSenderRuntime) CurrentMachines() []search.Machine { return r.Machines() }

func (r *twoSenderRuntime) GetNextSender(ctx context.Context) (search.ValueSummary, error) {
	choices, err := r.GetNextSenderChoices(ctx)
	if err != nil || len(choices) == 0 {
		return search.NewPrimitiveVS([]search.GuardedValue[search.Machine]{}), err
	}
	return choices[0], nil
}

func (r *twoSenderRuntime) GetNextSenderChoices(ctx context.Context) ([]search.ValueSummary, error) {
	var out []search.ValueSummary
	for _, m := range r.machines {
		if m.Halted() || len(m.buf.msgs) == 0 {
			continue
		}
		out = append(out, search.NewPrimitiveVS([]search.GuardedValue[search.Machine]{{Guard: r.w.True(), Value: search.Machine(m)}}))
	}
	return out, nil
}

func (r *twoSenderRuntime) PerformEffect(ctx context.Context, msg search.Message) error {
	for _, m := range r.machines {
		if m.id == msg.Target {
			m.counter++
			if m.counter >= m.target {
				m.halted = true
			}
		}
	}
	return nil
}

func (r *twoSenderRuntime) InitializeSearch(ctx context.Context) error        { return nil }
func (r *twoSenderRuntime) CheckLiveness(ctx context.Context, final bool) error { return nil }
func (r *twoSenderRuntime) MergeSymmetryClasses(ctx context.Context) error    { return nil }

// TestJSONCodecRoundTripsScheduleWithBacktracks exercises Testable
// Property 7: SaveCheckpoint/LoadCheckpoint through search.JSONCodec
// must reproduce a multi-depth Schedule, including every depth's
// pending Backtrack set, and must arrange for the resumed scheduler to
// replay (not regenerate) every choice already made.
func TestJSONCodecRoundTripsScheduleWithBacktracks(t *testing.T) {
	w := boolalg.NewWorld(1)
	rt := newTwoSenderRuntime(w, 3)
	mem := store.NewMemStore()
	sched := search.NewScheduler(rt, w, mem, nil, search.DefaultOptions(), search.WithBacktrack(true))

	ctx := context.Background()
	for i := 0; i < 4; i++ {
		done, err := sched.Step(ctx)
		if err != nil {
			t.Fatalf("Step %d failed: %v", i, err)
		}
		if done {
			t.Fatalf("Step %d reported done before expected", i)
		}
	}

	originalSize := sched.Schedule().Size()
	originalChoiceDepth := sched.State().ChoiceDepth
	if originalSize == 0 {
		t.Fatal("expected a non-empty Schedule before checkpointing")
	}
	backtracksByDepth := make([]int, originalSize)
	chosenByDepth := make([]search.ValueSummary, originalSize)
	for d := 0; d < originalSize; d++ {
		c := sched.Schedule().At(d)
		if c == nil {
			continue
		}
		backtracksByDepth[d] = len(c.Backtrack)
		chosenByDepth[d] = c.Chosen
	}
	if backtracksByDepth[0] == 0 {
		t.Fatal("expected depth 0 to have a pending backtrack (two machines ready to send)")
	}

	resumedRuntime := newTwoSenderRuntime(w, 3)
	machinesByID := make(map[string]search.Machine)
	for _, m := range resumedRuntime.Machines() {
		machinesByID[m.ID()] = m
	}
	codec := search.NewJSONCodec(boolalgGuardCodec{w: w}, domainVSCodec{w: w, machines: machinesByID})
	if err := sched.SaveCheckpoint(ctx, codec, "mid-run"); err != nil {
		t.Fatalf("SaveCheckpoint failed: %v", err)
	}

	resumed := search.NewScheduler(resumedRuntime, w, mem, nil, search.DefaultOptions(), search.WithBacktrack(true))
	if err := resumed.LoadCheckpoint(ctx, codec, sched.RunID()); err != nil {
		t.Fatalf("LoadCheckpoint failed: %v", err)
	}

	if resumed.Schedule().Size() != originalSize {
		t.Fatalf("expected restored Schedule size %d, got %d", originalSize, resumed.Schedule().Size())
	}
	for d := 0; d < originalSize; d++ {
		c := resumed.Schedule().At(d)
		if c == nil {
			t.Fatalf("depth %d missing after restore", d)
		}
		if len(c.Backtrack) != backtracksByDepth[d] {
			t.Fatalf("depth %d: expected %d pending backtracks, got %d", d, backtracksByDepth[d], len(c.Backtrack))
		}
		if d < originalChoiceDepth {
			if c.Repeat == nil || c.Repeat.IsEmpty() {
				t.Fatalf("depth %d: expected Repeat to be populated for replay", d)
			}
		}
	}

	// Replaying depth 0 through GetNext must reproduce the exact
	// original sender rather than generating a fresh candidate.
	replayed, _, err := resumed.Schedule().GetNext(0, false, &search.ChoiceSelector{Orchestrator: search.NoneOrchestrator{}}, func() ([]search.ValueSummary, error) {
		t.Fatal("replay at depth 0 should not call the candidate producer")
		return nil, nil
	})
	if err != nil {
		t.Fatalf("replay GetNext at depth 0 failed: %v", err)
	}
	origGV, _ := w.Concretize(chosenByDepth[0])
	replayedGV, _ := w.Concretize(replayed)
	origMachine, _ := origGV.Value.(search.Machine)
	replayedMachine, _ := replayedGV.Value.(search.Machine)
	if origMachine == nil || replayedMachine == nil || origMachine.ID() != replayedMachine.ID() {
		t.Fatalf("replayed sender at depth 0 = %v, want the same machine ID as %v", replayedGV.Value, origGV.Value)
	}
}

// jsonDepthCodec serializes just the iteration depth, enough to prove
// the save/load/reinitialize cycle wires through the store correctly.
type jsonDepthCodec struct{}

func (jsonDepthCodec) Encode(s *search.Scheduler) ([]byte, error) {
	return json.Marshal(struct{ Depth int }{Depth: s.State().Depth})
}

func (jsonDepthCodec) Decode(s *search.Scheduler, data []byte) error {
	var payload struct{ Depth int }
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	s.State().Depth = payload.Depth
	return nil
}

func TestCheckpointSaveLoadRoundTrip(t *testing.T) {
	w := boolalg.NewWorld(1)
	rt := newSingleTickRuntime(w, 3)
	mem := store.NewMemStore()
	sched := search.NewScheduler(rt, w, mem, nil, search.DefaultOptions())
	sched.State().Depth = 5

	ctx := context.Background()
	codec := jsonDepthCodec{}
	if err := sched.SaveCheckpoint(ctx, codec, "mid-run"); err != nil {
		t.Fatalf("SaveCheckpoint failed: %v", err)
	}

	sched.State().Depth = 0
	if err := sched.LoadCheckpoint(ctx, codec, sched.RunID()); err != nil {
		t.Fatalf("LoadCheckpoint failed: %v", err)
	}
	if sched.State().Depth != 5 {
		t.Fatalf("expected restored depth 5, got %d", sched.State().Depth)
	}
}

func TestCheckpointBacktrackSnapshotRoundTrip(t *testing.T) {
	w := boolalg.NewWorld(1)
	rt := newSingleTickRuntime(w, 3)
	mem := store.NewMemStore()
	sched := search.NewScheduler(rt, w, mem, nil, search.DefaultOptions())
	sched.State().Depth = 7

	ctx := context.Background()
	codec := jsonDepthCodec{}
	task := &search.BacktrackTask{ID: 1, Depth: 7, ChoiceDepth: 2}
	if err := sched.SaveBacktrackSnapshot(ctx, codec, task); err != nil {
		t.Fatalf("SaveBacktrackSnapshot failed: %v", err)
	}

	sched.State().Depth = 0
	if err := sched.LoadBacktrackSnapshot(ctx, codec, task.ID); err != nil {
		t.Fatalf("LoadBacktrackSnapshot failed: %v", err)
	}
	if sched.State().Depth != 7 {
		t.Fatalf("expected restored depth 7, got %d", sched.State().Depth)
	}
}
