// Package reinforce provides an incremental-mean Q-value table for the
// QLearning and EpsilonGreedy ChoiceOrchestrator variants, grounded on
// niceyeti-tabular's alpha-MC training loop (reinforcement/learning.go):
// the same delta := alpha * (reward - Q) update rule, applied online at
// each choice point instead of at the end of a rollout.
package reinforce

import "sync"

// key pairs a program-state hash with an action (choice) key.
type key struct {
	state  string
	action string
}

// Table is a concurrency-safe Q-value table. The scheduler itself is
// single-threaded (§5), but the table is also consulted by BacktrackTask
// replay fanned out to separate processes sharing a persisted table, so
// it guards its map the way the teacher's atomic_float guards shared
// value cells.
type Table struct {
	mu     sync.RWMutex
	values map[key]float64
	alpha  float64
}

// NewTable builds a Q-table with the given learning rate alpha.
func NewTable(alpha float64) *Table {
	return &Table{values: make(map[key]float64), alpha: alpha}
}

// Value returns the current Q(state, action), defaulting to 0 for an
// unseen pair.
func (t *Table) Value(state, action string) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.values[key{state: state, action: action}]
}

// Update applies the incremental-mean rule Q += alpha * (reward - Q),
// matching niceyeti-tabular's alpha_mc_train_vanilla_parallel delta
// computation.
func (t *Table) Update(state, action string, reward float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	k := key{state: state, action: action}
	q := t.values[k]
	t.values[k] = q + t.alpha*(reward-q)
}

// Len reports how many (state, action) pairs have been observed.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.values)
}
