// Package emit provides observability sinks for scheduler events,
// grounded on graph/emit: a small Emitter interface with log, null,
// buffered, and OpenTelemetry implementations.
package emit

import "time"

// Event is one observable occurrence during a search run: a step
// taken, a backtrack restored, a task selected, a checkpoint written.
type Event struct {
	RunID     string
	Iter      int
	Depth     int
	Msg       string
	Meta      map[string]interface{}
	Timestamp time.Time
}
