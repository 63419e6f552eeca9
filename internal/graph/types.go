package graph

// Task is a single node of a Schedule. Predecessors and Successors hold
// indices into the owning Schedule's Tasks slice.
type Task struct {
	ID           string
	Description  string
	Duration     int
	Line         int // source line of the record, 0 if unknown
	Predecessors []int
	Successors   []int
}

// IsStart reports whether the task has no predecessors.
func (t *Task) IsStart() bool { return len(t.Predecessors) == 0 }

// IsEnd reports whether the task has no successors.
func (t *Task) IsEnd() bool { return len(t.Successors) == 0 }

// Schedule is a validated, fully linked task graph. It owns every Task;
// tasks refer to each other only by index. Tasks are kept in input order.
type Schedule struct {
	Title string
	Tasks []Task

	index map[string]int
	order []int // topological order, predecessors first
	start int
	end   int
}

// TaskCount returns the number of tasks in the schedule.
func (s *Schedule) TaskCount() int {
	return len(s.Tasks)
}

// Task returns the task with the given id, or nil.
func (s *Schedule) Task(id string) *Task {
	i, ok := s.index[id]
	if !ok {
		return nil
	}
	return &s.Tasks[i]
}

// Start returns the index of the single start task.
func (s *Schedule) Start() int { return s.start }

// End returns the index of the single end task.
func (s *Schedule) End() int { return s.end }

// Order returns task indices in topological order: every task appears
// after all of its predecessors.
func (s *Schedule) Order() []int {
	out := make([]int, len(s.order))
	copy(out, s.order)
	return out
}

// IDs maps task indices to their ids.
func (s *Schedule) IDs(idx []int) []string {
	ids := make([]string, len(idx))
	for i, n := range idx {
		ids[i] = s.Tasks[n].ID
	}
	return ids
}
