package search

import (
	"math"
	"math/rand"

	"github.com/dshills/pexplore/search/reinforce"
	"gonum.org/v1/gonum/floats"
)

// ChoiceOrchestrator reorders a candidate list at a choice point; the
// first element after Reorder becomes the one explored now, the rest
// become backtracks in explicit mode (§4.4).
type ChoiceOrchestrator interface {
	Reorder(choices []ValueSummary, isData bool) []ValueSummary
}

// NoneOrchestrator preserves the producer's original order.
type NoneOrchestrator struct{}

func (NoneOrchestrator) Reorder(choices []ValueSummary, isData bool) []ValueSummary {
	return choices
}

// RandomOrchestrator shuffles deterministically from a seeded PRNG,
// grounded on the teacher's seeded-RNG pattern (initRNG, computeBackoff's
// jitter source) rather than the global math/rand source.
type RandomOrchestrator struct {
	rng *rand.Rand
}

// NewRandomOrchestrator seeds a RandomOrchestrator from seed.
func NewRandomOrchestrator(seed int64) *RandomOrchestrator {
	return &RandomOrchestrator{rng: rand.New(rand.NewSource(seed))}
}

func (o *RandomOrchestrator) Reorder(choices []ValueSummary, isData bool) []ValueSummary {
	out := append([]ValueSummary(nil), choices...)
	o.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// Learner is implemented by orchestrators backed by a reinforce.Table:
// Step calls Learn once per choice with the distinctness signal so the
// table's Q-values reflect which choices actually led somewhere new
// (§6, "reward +1 for a choice that led to a still-unexplored state
// this step, 0 otherwise").
type Learner interface {
	Learn(choice ValueSummary, distinct bool)
}

// ChoiceKeyFunc derives a stable action key for a ValueSummary
// candidate, used to index the reinforce.Table.
type ChoiceKeyFunc func(ValueSummary) string

// StateHashFunc derives the current program-state hash used as the
// reinforce.Table's state dimension.
type StateHashFunc func() string

// QLearningOrchestrator sorts candidates by descending Q-value from a
// state/action table keyed by (program_state_hash, choice_key),
// grounded on niceyeti-tabular's alpha-MC table and gonum's MaxIdx for
// deterministic tie-breaking.
type QLearningOrchestrator struct {
	Table     *reinforce.Table
	StateHash StateHashFunc
	ChoiceKey ChoiceKeyFunc
}

func (o *QLearningOrchestrator) Reorder(choices []ValueSummary, isData bool) []ValueSummary {
	if o.Table == nil || o.StateHash == nil || o.ChoiceKey == nil {
		return choices
	}
	state := o.StateHash()
	return sortByQDescending(choices, o.Table, state, o.ChoiceKey)
}

// Learn updates Table with reward 1 when choice led to a distinct
// state this step, 0 otherwise.
func (o *QLearningOrchestrator) Learn(choice ValueSummary, distinct bool) {
	if o.Table == nil || o.StateHash == nil || o.ChoiceKey == nil {
		return
	}
	reward := 0.0
	if distinct {
		reward = 1.0
	}
	o.Table.Update(o.StateHash(), o.ChoiceKey(choice), reward)
}

// EpsilonGreedyOrchestrator plays the Q-greedy choice with probability
// 1-epsilon and a uniform choice otherwise, grounded on
// niceyeti-tabular's policy_alpha_max epsilon branch.
type EpsilonGreedyOrchestrator struct {
	Table     *reinforce.Table
	StateHash StateHashFunc
	ChoiceKey ChoiceKeyFunc
	Epsilon   float64
	rng       *rand.Rand
}

// NewEpsilonGreedyOrchestrator builds an EpsilonGreedyOrchestrator
// seeded for deterministic replay.
func NewEpsilonGreedyOrchestrator(table *reinforce.Table, stateHash StateHashFunc, choiceKey ChoiceKeyFunc, epsilon float64, seed int64) *EpsilonGreedyOrchestrator {
	return &EpsilonGreedyOrchestrator{
		Table:     table,
		StateHash: stateHash,
		ChoiceKey: choiceKey,
		Epsilon:   epsilon,
		rng:       rand.New(rand.NewSource(seed)),
	}
}

func (o *EpsilonGreedyOrchestrator) Reorder(choices []ValueSummary, isData bool) []ValueSummary {
	if len(choices) <= 1 {
		return choices
	}
	if o.rng.Float64() < o.Epsilon {
		out := append([]ValueSummary(nil), choices...)
		o.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
		return out
	}
	if o.Table == nil || o.StateHash == nil || o.ChoiceKey == nil {
		return choices
	}
	return sortByQDescending(choices, o.Table, o.StateHash(), o.ChoiceKey)
}

// Learn updates Table with reward 1 when choice led to a distinct
// state this step, 0 otherwise.
func (o *EpsilonGreedyOrchestrator) Learn(choice ValueSummary, distinct bool) {
	if o.Table == nil || o.StateHash == nil || o.ChoiceKey == nil {
		return
	}
	reward := 0.0
	if distinct {
		reward = 1.0
	}
	o.Table.Update(o.StateHash(), o.ChoiceKey(choice), reward)
}

// sortByQDescending orders choices by descending Q(state, choiceKey),
// using gonum's floats.MaxIdx repeatedly for deterministic tie-breaking
// (MaxIdx returns the lowest index among ties).
func sortByQDescending(choices []ValueSummary, table *reinforce.Table, state string, keyOf ChoiceKeyFunc) []ValueSummary {
	remaining := make([]float64, len(choices))
	for i, c := range choices {
		remaining[i] = table.Value(state, keyOf(c))
	}
	out := make([]ValueSummary, 0, len(choices))
	for range choices {
		best := floats.MaxIdx(remaining)
		out = append(out, choices[best])
		remaining[best] = math.Inf(-1)
	}
	return out
}
