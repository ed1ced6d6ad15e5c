package search_test

import (
	"context"
	"testing"

	"github.com/dshills/pexplore/search"
	"github.com/dshills/pexplore/search/boolalg"
	"github.com/dshills/pexplore/search/store"
)

// toyBuffer is a minimal FIFO SendBuffer: guards are always the
// world's True(), since these scenario tests never need a message to
// be split under a sub-guard.
type toyBuffer struct {
	w    *boolalg.World
	msgs []search.Message
}

func (b *toyBuffer) SatisfiesPredUnderGuard(pred func(search.Message) bool) search.ValueSummary {
	for _, m := range b.msgs {
		if pred(m) {
			return search.NewPrimitiveVS([]search.GuardedValue[bool]{{Guard: b.w.True(), Value: true}})
		}
	}
	return search.NewPrimitiveVS([]search.GuardedValue[bool]{})
}

func (b *toyBuffer) RemoveUnderGuard(g search.Guard) (search.Message, bool) {
	if len(b.msgs) == 0 {
		return search.Message{}, false
	}
	msg := b.msgs[0]
	b.msgs = b.msgs[1:]
	return msg, true
}

// toyMachine is a single counting actor: each dispatched message
// increments its counter, halting once it reaches a target.
type toyMachine struct {
	id       string
	w        *boolalg.World
	counter  int
	halted   bool
	target   int
	buf      *toyBuffer
	sched    search.SchedulerHandle
	initMsgs []search.Message
}

func (m *toyMachine) ID() string { return m.id }

func (m *toyMachine) GetLocalState() []search.ValueSummary {
	return []search.ValueSummary{
		search.NewPrimitiveVS([]search.GuardedValue[int]{{Guard: m.w.True(), Value: m.counter}}),
	}
}

func (m *toyMachine) SetLocalState(state []search.ValueSummary) {
	if len(state) == 0 {
		return
	}
	pvs, ok := state[0].(*search.PrimitiveVS[int])
	if !ok {
		return
	}
	gvs := pvs.GuardedValues()
	if len(gvs) > 0 {
		m.counter = gvs[0].Value
	}
}

func (m *toyMachine) Reset() {
	m.counter = 0
	m.halted = false
}

func (m *toyMachine) SetScheduler(h search.SchedulerHandle) { m.sched = h }
func (m *toyMachine) Halted() bool                          { return m.halted }
func (m *toyMachine) SendBuffer() search.SendBuffer          { return m.buf }

// toyRuntime is a deterministic single-machine runtime used for
// scenario S1: the machine ticks itself 5 times then halts, with no
// nondeterminism anywhere.
type toyRuntime struct {
	w        *boolalg.World
	machines []*toyMachine
}

func newSingleTickRuntime(w *boolalg.World, ticks int) *toyRuntime {
	m := &toyMachine{id: "A", w: w, target: ticks, buf: &toyBuffer{w: w}}
	for i := 0; i < ticks; i++ {
		m.buf.msgs = append(m.buf.msgs, search.Message{Sender: "A", Target: "A", Event: "tick", Guard: w.True()})
	}
	return &toyRuntime{w: w, machines: []*toyMachine{m}}
}

func (r *toyRuntime) Machines() []search.Machine {
	out := make([]search.Machine, len(r.machines))
	for i, m := range r.machines {
		out[i] = m
	}
	return out
}

func (r *toyRuntime) CurrentMachines() []search.Machine { return r.Machines() }

func (r *toyRuntime) GetNextSender(ctx context.Context) (search.ValueSummary, error) {
	choices, err := r.GetNextSenderChoices(ctx)
	if err != nil || len(choices) == 0 {
		return search.NewPrimitiveVS([]search.GuardedValue[search.Machine]{}), err
	}
	return choices[0], nil
}

func (r *toyRuntime) GetNextSenderChoices(ctx context.Context) ([]search.ValueSummary, error) {
	var out []search.ValueSummary
	for _, m := range r.machines {
		if m.Halted() || len(m.buf.msgs) == 0 {
			continue
		}
		out = append(out, search.NewPrimitiveVS([]search.GuardedValue[search.Machine]{{Guard: r.w.True(), Value: search.Machine(m)}}))
	}
	return out, nil
}

func (r *toyRuntime) PerformEffect(ctx context.Context, msg search.Message) error {
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

func (r *toyRuntime) InitializeSearch(ctx context.Context) error { return nil }
func (r *toyRuntime) CheckLiveness(ctx context.Context, final bool) error { return nil }
func (r *toyRuntime) MergeSymmetryClasses(ctx context.Context) error { return nil }

// TestScenarioS1SingleMachineDeterministic exercises spec scenario S1:
// one machine, no nondeterminism, runs 5 steps then halts.
func TestScenarioS1SingleMachineDeterministic(t *testing.T) {
	w := boolalg.NewWorld(1)
	rt := newSingleTickRuntime(w, 5)

	sched := search.NewScheduler(rt, w, store.NewMemStore(), nil, search.DefaultOptions())
	result, err := sched.DoSearch(context.Background())
	if err != nil {
		t.Fatalf("DoSearch returned error: %v", err)
	}
	if result != "correct for any depth" {
		t.Fatalf("expected result %q, got %q", "correct for any depth", result)
	}
	if sched.State().Iter != 1 {
		t.Fatalf("expected exactly 1 iteration, got %d", sched.State().Iter)
	}
	if !sched.State().Done {
		t.Fatal("expected the iteration to be marked done")
	}
	for d := 0; d < sched.Schedule().Size(); d++ {
		c := sched.Schedule().At(d)
		if c != nil && len(c.Backtrack) != 0 {
			t.Fatalf("depth %d should have no backtrack in a fully deterministic run", d)
		}
	}
	if rt.machines[0].counter != 5 {
		t.Fatalf("expected the machine to have ticked 5 times, got %d", rt.machines[0].counter)
	}
}
