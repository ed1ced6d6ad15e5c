package search

import "math/rand"

// BacktrackTask is a frozen prefix of the Schedule representing
// "explore this subtree later" (§3, §4.5).
type BacktrackTask struct {
	ID       int
	Parent   int
	Children []int
	Depth    int
	ChoiceDepth int
	// Choices is a cloned Schedule frozen at creation time.
	Choices *Schedule
	// PerChoiceDepthStats mirrors coverage bookkeeping per depth.
	PerChoiceDepthStats map[int]CoverageDelta
	// PrefixCoverage is in (0, 1].
	PrefixCoverage    float64
	Priority          float64
	NumBacktracks     int
	NumDataBacktracks int
	Completed         bool
}

// TaskManager maintains the tree of BacktrackTasks and the
// cross-iteration orchestration policy (§4.5).
type TaskManager struct {
	Mode TaskOrchestration

	allTasks map[int]*BacktrackTask
	pending  []int
	finished []int
	nextID   int
	rng      *rand.Rand
}

// NewTaskManager builds a TaskManager with a root task covering the
// entire schedule (prefix_coverage = 1).
func NewTaskManager(mode TaskOrchestration, seed int64) *TaskManager {
	tm := &TaskManager{
		Mode:     mode,
		allTasks: make(map[int]*BacktrackTask),
		rng:      rand.New(rand.NewSource(seed)),
	}
	root := &BacktrackTask{ID: 0, Parent: -1, PrefixCoverage: 1, Choices: NewSchedule(nil)}
	tm.allTasks[0] = root
	tm.pending = append(tm.pending, 0)
	tm.nextID = 1
	return tm
}

// Task returns the BacktrackTask with the given id, or nil if none
// exists, for inspection by callers and tests.
func (tm *TaskManager) Task(id int) *BacktrackTask {
	return tm.allTasks[id]
}

// NumPendingBacktracks returns the sum of pending tasks' NumBacktracks,
// the invariant quantity named in §4.5.
func (tm *TaskManager) NumPendingBacktracks() int {
	total := 0
	for _, id := range tm.pending {
		total += tm.allTasks[id].NumBacktracks
	}
	return total
}

// SetBacktrackTasks walks the current Schedule and creates new child
// tasks for each depth whose Backtrack is non-empty, bounded by
// maxTasks. parentID is the task the current iteration was exploring.
func (tm *TaskManager) SetBacktrackTasks(schedule *Schedule, parentID, maxTasks int) {
	parent, ok := tm.allTasks[parentID]
	if !ok {
		return
	}

	type residual struct {
		depth int
		count int
	}
	var residuals []residual
	for d := 0; d < schedule.Size(); d++ {
		c := schedule.At(d)
		if c != nil && len(c.Backtrack) > 0 {
			residuals = append(residuals, residual{depth: d, count: len(c.Backtrack)})
		}
	}

	// Mark parent completed and move it to finished before children are
	// added to pending (§4.5 invariant).
	parent.Completed = true
	tm.finished = append(tm.finished, parentID)
	tm.removePending(parentID)

	if len(residuals) == 0 {
		return
	}

	// Create one exact task per residual depth until the budget's last
	// slot is reached; if more residuals remain at that point, the last
	// slot becomes a combined task preserving the whole remaining suffix
	// so no backtracks are lost (§4.5).
	for i, r := range residuals {
		lastSlot := maxTasks > 0 && i == maxTasks-1
		if lastSlot && len(residuals) > maxTasks {
			tm.createTask(parent, schedule, r.depth, false)
			return
		}
		tm.createTask(parent, schedule, r.depth, true)
	}
}

// createTask clones schedule for a new child task rooted at depth d.
// exact clears all choice state at depths > d; a combined (non-exact)
// task preserves the suffix from d onward.
func (tm *TaskManager) createTask(parent *BacktrackTask, schedule *Schedule, d int, exact bool) {
	clone := schedule.Clone()
	clone.ClearBacktrackBefore(d)
	if exact {
		clone.TruncateFrom(d + 1)
	}

	// Sum Backtrack across the whole preserved suffix: an exact task
	// truncates everything past d so only depth d itself can contribute,
	// but a combined task keeps depths d+1.. as well, and every one of
	// those with a pending Backtrack set adds to the task's total.
	numBacktracks := 0
	for i := d; i < clone.Size(); i++ {
		if c := clone.At(i); c != nil {
			numBacktracks += len(c.Backtrack)
		}
	}

	id := tm.nextID
	tm.nextID++
	task := &BacktrackTask{
		ID:            id,
		Parent:        parent.ID,
		Depth:         d,
		ChoiceDepth:   d,
		Choices:       clone,
		NumBacktracks: numBacktracks,
		PrefixCoverage: parent.PrefixCoverage / float64(len(parent.Children)+1),
	}
	parent.Children = append(parent.Children, id)
	tm.allTasks[id] = task
	tm.pending = append(tm.pending, id)
}

// GetNextTask selects the next pending task per the orchestration
// policy: DepthFirst leaves the manager idle (returns nil, false);
// Random picks uniformly; CoverageAStar/Learn pop the highest-priority
// pending task.
func (tm *TaskManager) GetNextTask() (*BacktrackTask, bool) {
	if len(tm.pending) == 0 {
		return nil, false
	}
	switch tm.Mode {
	case TaskOrchestrationDepthFirst:
		return nil, false
	case TaskOrchestrationRandom:
		idx := tm.rng.Intn(len(tm.pending))
		id := tm.pending[idx]
		tm.removePendingAt(idx)
		return tm.allTasks[id], true
	default: // CoverageAStar, Learn
		best := 0
		bestPriority := tm.allTasks[tm.pending[0]].Priority
		for i, id := range tm.pending {
			p := tm.allTasks[id].Priority
			if p > bestPriority {
				best = i
				bestPriority = p
			}
		}
		id := tm.pending[best]
		tm.removePendingAt(best)
		return tm.allTasks[id], true
	}
}

func (tm *TaskManager) removePending(id int) {
	for i, p := range tm.pending {
		if p == id {
			tm.removePendingAt(i)
			return
		}
	}
}

func (tm *TaskManager) removePendingAt(i int) {
	tm.pending = append(tm.pending[:i], tm.pending[i+1:]...)
}
