package search

import "encoding/json"

// GuardCodec encodes/decodes a single Guard for a specific solver
// binding. Guard is solver-owned (§ collab.go), so JSONCodec cannot
// serialize one on its own; callers supply a GuardCodec bound to their
// concrete solver the way boolalg.World.Bits/FromBits do for the toy
// algebra used in tests.
type GuardCodec interface {
	EncodeGuard(Guard) ([]byte, error)
	DecodeGuard([]byte) (Guard, error)
}

// ValueSummaryCodec encodes/decodes a single ValueSummary for a
// specific solver binding, the ValueSummary counterpart to GuardCodec.
type ValueSummaryCodec interface {
	EncodeValueSummary(ValueSummary) ([]byte, error)
	DecodeValueSummary([]byte) (ValueSummary, error)
}

// JSONCodec is the default Codec: it serializes every scheduler-owned
// field of Schedule/Choice/BacktrackTask/TaskManager/IterationState to
// JSON directly, the way graph.Checkpoint[S] is a concrete JSON-tagged
// struct rather than a caller-supplied blob (graph/checkpoint.go). Only
// the opaque Guard/ValueSummary leaves are delegated to Guards/Values.
type JSONCodec struct {
	Guards GuardCodec
	Values ValueSummaryCodec
}

// NewJSONCodec builds a JSONCodec bound to a solver's Guard/ValueSummary
// encoding.
func NewJSONCodec(guards GuardCodec, values ValueSummaryCodec) *JSONCodec {
	return &JSONCodec{Guards: guards, Values: values}
}

type jsonChoice struct {
	Chosen               []byte
	Backtrack            [][]byte
	Repeat               []byte
	HandledUniverse       []byte
	SavedMachines        map[string][][]byte
	SavedHalted          map[string]bool
	SavedSchedulerDepth  int
	SchedulerDepth       int
	SchedulerChoiceDepth int
	IsData               bool
}

type jsonSchedule struct {
	Filter  []byte
	Choices []*jsonChoice
}

type jsonTask struct {
	ID                  int
	Parent              int
	Children            []int
	Depth               int
	ChoiceDepth         int
	Choices             jsonSchedule
	PerChoiceDepthStats map[int]CoverageDelta
	PrefixCoverage      float64
	Priority            float64
	NumBacktracks       int
	NumDataBacktracks   int
	Completed           bool
}

type jsonIterationState struct {
	Iter               int
	StartIter          int
	Depth              int
	ChoiceDepth        int
	BacktrackDepth     int
	Done               bool
	IsDoneIterating    bool
	StickyStep         bool
	Result             string
	DistinctStateGuard []byte
	SrcState           [][]byte
}

// jsonCheckpoint is the full wire payload: every in-memory component
// Scheduler needs to resume scheduling, Guard/ValueSummary leaves
// opaque-encoded via the bound GuardCodec/ValueSummaryCodec.
type jsonCheckpoint struct {
	State         jsonIterationState
	Schedule      jsonSchedule
	TaskMode      TaskOrchestration
	Tasks         map[int]jsonTask
	Pending       []int
	Finished      []int
	NextTaskID    int
	CurrentTaskID int
}

func (c *JSONCodec) encodeGuard(g Guard) ([]byte, error) {
	if g == nil {
		return nil, nil
	}
	return c.Guards.EncodeGuard(g)
}

func (c *JSONCodec) decodeGuard(b []byte) (Guard, error) {
	if len(b) == 0 {
		return nil, nil
	}
	return c.Guards.DecodeGuard(b)
}

func (c *JSONCodec) encodeVS(vs ValueSummary) ([]byte, error) {
	if vs == nil {
		return nil, nil
	}
	return c.Values.EncodeValueSummary(vs)
}

func (c *JSONCodec) decodeVS(b []byte) (ValueSummary, error) {
	if len(b) == 0 {
		return nil, nil
	}
	return c.Values.DecodeValueSummary(b)
}

func (c *JSONCodec) encodeVSSlice(vss []ValueSummary) ([][]byte, error) {
	out := make([][]byte, len(vss))
	for i, vs := range vss {
		b, err := c.encodeVS(vs)
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

func (c *JSONCodec) decodeVSSlice(bs [][]byte) ([]ValueSummary, error) {
	out := make([]ValueSummary, len(bs))
	for i, b := range bs {
		vs, err := c.decodeVS(b)
		if err != nil {
			return nil, err
		}
		out[i] = vs
	}
	return out, nil
}

func (c *JSONCodec) encodeChoice(choice *Choice) (*jsonChoice, error) {
	if choice == nil {
		return nil, nil
	}
	chosen, err := c.encodeVS(choice.Chosen)
	if err != nil {
		return nil, err
	}
	backtrack, err := c.encodeVSSlice(choice.Backtrack)
	if err != nil {
		return nil, err
	}
	repeat, err := c.encodeVS(choice.Repeat)
	if err != nil {
		return nil, err
	}
	handled, err := c.encodeGuard(choice.HandledUniverse)
	if err != nil {
		return nil, err
	}
	savedMachines := make(map[string][][]byte, len(choice.Saved.Machines))
	for id, vss := range choice.Saved.Machines {
		enc, err := c.encodeVSSlice(vss)
		if err != nil {
			return nil, err
		}
		savedMachines[id] = enc
	}
	return &jsonChoice{
		Chosen:              chosen,
		Backtrack:           backtrack,
		Repeat:              repeat,
		HandledUniverse:     handled,
		SavedMachines:       savedMachines,
		SavedHalted:         choice.Saved.Halted,
		SavedSchedulerDepth: choice.Saved.SchedulerDepth,
		SchedulerDepth:       choice.SchedulerDepth,
		SchedulerChoiceDepth: choice.SchedulerChoiceDepth,
		IsData:               choice.IsData,
	}, nil
}

func (c *JSONCodec) decodeChoice(jc *jsonChoice) (*Choice, error) {
	if jc == nil {
		return nil, nil
	}
	chosen, err := c.decodeVS(jc.Chosen)
	if err != nil {
		return nil, err
	}
	backtrack, err := c.decodeVSSlice(jc.Backtrack)
	if err != nil {
		return nil, err
	}
	repeat, err := c.decodeVS(jc.Repeat)
	if err != nil {
		return nil, err
	}
	handled, err := c.decodeGuard(jc.HandledUniverse)
	if err != nil {
		return nil, err
	}
	machines := make(map[string][]ValueSummary, len(jc.SavedMachines))
	for id, enc := range jc.SavedMachines {
		vss, err := c.decodeVSSlice(enc)
		if err != nil {
			return nil, err
		}
		machines[id] = vss
	}
	halted := jc.SavedHalted
	if halted == nil {
		halted = make(map[string]bool)
	}
	return &Choice{
		Chosen:          chosen,
		Backtrack:       backtrack,
		Repeat:          repeat,
		HandledUniverse: handled,
		Saved: SchedulerState{
			Machines:       machines,
			Halted:         halted,
			SchedulerDepth: jc.SavedSchedulerDepth,
		},
		SchedulerDepth:       jc.SchedulerDepth,
		SchedulerChoiceDepth: jc.SchedulerChoiceDepth,
		IsData:               jc.IsData,
	}, nil
}

func (c *JSONCodec) encodeSchedule(s *Schedule) (jsonSchedule, error) {
	if s == nil {
		return jsonSchedule{}, nil
	}
	filter, err := c.encodeGuard(s.Filter)
	if err != nil {
		return jsonSchedule{}, err
	}
	choices := make([]*jsonChoice, s.Size())
	for i := 0; i < s.Size(); i++ {
		jc, err := c.encodeChoice(s.At(i))
		if err != nil {
			return jsonSchedule{}, err
		}
		choices[i] = jc
	}
	return jsonSchedule{Filter: filter, Choices: choices}, nil
}

func (c *JSONCodec) decodeSchedule(js jsonSchedule) (*Schedule, error) {
	filter, err := c.decodeGuard(js.Filter)
	if err != nil {
		return nil, err
	}
	sched := NewSchedule(filter)
	sched.choices = make([]*Choice, len(js.Choices))
	for i, jc := range js.Choices {
		choice, err := c.decodeChoice(jc)
		if err != nil {
			return nil, err
		}
		sched.choices[i] = choice
	}
	return sched, nil
}

func (c *JSONCodec) encodeTask(task *BacktrackTask) (jsonTask, error) {
	sched, err := c.encodeSchedule(task.Choices)
	if err != nil {
		return jsonTask{}, err
	}
	return jsonTask{
		ID:                  task.ID,
		Parent:              task.Parent,
		Children:            append([]int(nil), task.Children...),
		Depth:               task.Depth,
		ChoiceDepth:         task.ChoiceDepth,
		Choices:             sched,
		PerChoiceDepthStats: task.PerChoiceDepthStats,
		PrefixCoverage:      task.PrefixCoverage,
		Priority:            task.Priority,
		NumBacktracks:       task.NumBacktracks,
		NumDataBacktracks:   task.NumDataBacktracks,
		Completed:           task.Completed,
	}, nil
}

func (c *JSONCodec) decodeTask(jt jsonTask) (*BacktrackTask, error) {
	sched, err := c.decodeSchedule(jt.Choices)
	if err != nil {
		return nil, err
	}
	return &BacktrackTask{
		ID:                  jt.ID,
		Parent:              jt.Parent,
		Children:            jt.Children,
		Depth:               jt.Depth,
		ChoiceDepth:         jt.ChoiceDepth,
		Choices:             sched,
		PerChoiceDepthStats: jt.PerChoiceDepthStats,
		PrefixCoverage:      jt.PrefixCoverage,
		Priority:            jt.Priority,
		NumBacktracks:       jt.NumBacktracks,
		NumDataBacktracks:   jt.NumDataBacktracks,
		Completed:           jt.Completed,
	}, nil
}

// Encode implements Codec.
func (c *JSONCodec) Encode(s *Scheduler) ([]byte, error) {
	sched, err := c.encodeSchedule(s.schedule)
	if err != nil {
		return nil, err
	}
	distinctGuard, err := c.encodeGuard(s.state.DistinctStateGuard)
	if err != nil {
		return nil, err
	}
	srcState, err := c.encodeVSSlice(s.state.SrcState)
	if err != nil {
		return nil, err
	}

	tasks := make(map[int]jsonTask, len(s.taskManager.allTasks))
	for id, task := range s.taskManager.allTasks {
		jt, err := c.encodeTask(task)
		if err != nil {
			return nil, err
		}
		tasks[id] = jt
	}

	payload := jsonCheckpoint{
		State: jsonIterationState{
			Iter:               s.state.Iter,
			StartIter:          s.state.StartIter,
			Depth:              s.state.Depth,
			ChoiceDepth:        s.state.ChoiceDepth,
			BacktrackDepth:     s.state.BacktrackDepth,
			Done:               s.state.Done,
			IsDoneIterating:    s.state.IsDoneIterating,
			StickyStep:         s.state.StickyStep,
			Result:             s.state.Result,
			DistinctStateGuard: distinctGuard,
			SrcState:           srcState,
		},
		Schedule:      sched,
		TaskMode:      s.taskManager.Mode,
		Tasks:         tasks,
		Pending:       append([]int(nil), s.taskManager.pending...),
		Finished:      append([]int(nil), s.taskManager.finished...),
		NextTaskID:    s.taskManager.nextID,
		CurrentTaskID: s.currentTaskID,
	}
	return json.Marshal(payload)
}

// Decode implements Codec. It restores Schedule/TaskManager/
// IterationState from data, then marks every choice shallower than the
// resume point as a Repeat so the next forward pass through Step
// replays the original sender choices and effects instead of
// generating fresh ones — reconstructing live Runtime machine state by
// re-running the same effects rather than snapshotting it directly
// (Runtime is opaque to this package; see collab.go). Depth/ChoiceDepth
// are reset to 0 so that replay actually starts from the beginning;
// they are rebuilt naturally as Step re-executes each repeated choice.
func (c *JSONCodec) Decode(s *Scheduler, data []byte) error {
	var payload jsonCheckpoint
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}

	sched, err := c.decodeSchedule(payload.Schedule)
	if err != nil {
		return err
	}
	distinctGuard, err := c.decodeGuard(payload.State.DistinctStateGuard)
	if err != nil {
		return err
	}
	srcState, err := c.decodeVSSlice(payload.State.SrcState)
	if err != nil {
		return err
	}

	tasks := make(map[int]*BacktrackTask, len(payload.Tasks))
	for id, jt := range payload.Tasks {
		task, err := c.decodeTask(jt)
		if err != nil {
			return err
		}
		tasks[id] = task
	}

	resumeChoiceDepth := payload.State.ChoiceDepth
	for d := 0; d < resumeChoiceDepth; d++ {
		if choice := sched.At(d); choice != nil {
			choice.Repeat = choice.Chosen
		}
	}

	s.schedule = sched
	s.taskManager.Mode = payload.TaskMode
	s.taskManager.allTasks = tasks
	s.taskManager.pending = payload.Pending
	s.taskManager.finished = payload.Finished
	s.taskManager.nextID = payload.NextTaskID
	s.currentTaskID = payload.CurrentTaskID

	s.state.Iter = payload.State.Iter
	s.state.StartIter = payload.State.StartIter
	s.state.Depth = 0
	s.state.ChoiceDepth = 0
	s.state.BacktrackDepth = payload.State.BacktrackDepth
	s.state.Done = false
	s.state.IsDoneIterating = payload.State.IsDoneIterating
	s.state.StickyStep = false
	s.state.Result = payload.State.Result
	s.state.DistinctStateGuard = distinctGuard
	s.state.SrcState = srcState

	return nil
}
