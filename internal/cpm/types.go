package cpm

import (
	"errors"
	"fmt"

	"github.com/joshharrison/critpath/internal/graph"
)

// CPMResult holds the complete critical path analysis.
type CPMResult struct {
	Tasks           map[string]*TaskSchedule
	TopoOrder       []string
	CriticalTasks   []string // zero-float task IDs in topological order
	ProjectDuration int
	Waves           []Wave // parallelizable groups

	sched *graph.Schedule
}

// TaskSchedule holds the scheduling info for a single task.
type TaskSchedule struct {
	TaskID     string
	Duration   int
	ES, EF     int // earliest start/finish
	LS, LF     int // latest start/finish
	TotalFloat int
	FreeFloat  int
	IsCritical bool
	Wave       int // which parallel wave this belongs to
}

// Wave represents a group of tasks that share an earliest start and can run in parallel.
type Wave struct {
	Index      int
	Start      int // common earliest start
	TaskIDs    []string
	IsCritical bool // true if wave contains critical path tasks
}

// ErrInvariant marks a scheduling post-condition failure. It signals a
// defect in the scheduler or a schedule not produced by graph.Build,
// never a problem with user input.
var ErrInvariant = errors.New("internal error: scheduling invariant violated")

// InvariantError reports which task broke which post-condition.
type InvariantError struct {
	TaskID string
	Msg    string
}

func (e *InvariantError) Error() string {
	if e.TaskID == "" {
		return fmt.Sprintf("%s: %s", ErrInvariant, e.Msg)
	}
	return fmt.Sprintf("%s: task %s: %s", ErrInvariant, e.TaskID, e.Msg)
}

func (e *InvariantError) Unwrap() error { return ErrInvariant }
