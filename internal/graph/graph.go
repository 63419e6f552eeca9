package graph

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/joshharrison/critpath/internal/plan"
)

// NoPredecessor is the placeholder marking a start task in the predecessor field.
const NoPredecessor = "-"

// MaxDuration bounds a single task duration, keeping every path sum far
// from integer overflow.
const MaxDuration = 1_000_000_000

var idPattern = regexp.MustCompile(`^[\p{L}\p{N}_]+$`)

// Build constructs a Schedule from task records.
//
// Field-format and reference errors are collected across all records and
// returned together. Structural errors (duplicate ids, cycles, start or end
// count) are checked afterwards and returned on the first violation.
func Build(title string, records []plan.Record) (*Schedule, error) {
	if len(records) == 0 {
		return nil, &StructuralError{Kind: KindEmpty, Msg: "task list is empty"}
	}

	s := &Schedule{
		Title: title,
		Tasks: make([]Task, 0, len(records)),
		index: make(map[string]int, len(records)),
	}

	var errs []error
	var dups []string

	// Index all tasks before resolving any predecessor, so references may
	// point forward in the input.
	for _, rec := range records {
		id := strings.TrimSpace(rec.ID)
		if !idPattern.MatchString(id) {
			errs = append(errs, &FieldError{Line: rec.Line, TaskID: id, Field: "id", Value: rec.ID,
				Reason: "must consist of letters, digits or '_'"})
		}
		dur, err := parseDuration(rec.Duration)
		if err != nil {
			errs = append(errs, &FieldError{Line: rec.Line, TaskID: id, Field: "duration", Value: rec.Duration,
				Reason: err.Error()})
		}
		if _, ok := s.index[id]; ok {
			dups = append(dups, id)
			continue
		}
		s.index[id] = len(s.Tasks)
		s.Tasks = append(s.Tasks, Task{
			ID:          id,
			Description: strings.TrimSpace(rec.Description),
			Duration:    dur,
			Line:        rec.Line,
		})
	}

	resolved := make(map[string]bool, len(records))
	for _, rec := range records {
		id := strings.TrimSpace(rec.ID)
		if resolved[id] {
			continue // duplicate, reported below
		}
		resolved[id] = true
		t := &s.Tasks[s.index[id]]

		preds, err := SplitPredecessors(rec.Predecessors)
		if err != nil {
			errs = append(errs, &FieldError{Line: rec.Line, TaskID: id, Field: "predecessors", Value: rec.Predecessors,
				Reason: err.Error()})
			continue
		}
		for _, p := range preds {
			pi, ok := s.index[p]
			if !ok {
				errs = append(errs, &ReferenceError{Line: rec.Line, TaskID: id, Missing: p})
				continue
			}
			t.Predecessors = append(t.Predecessors, pi)
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if len(dups) > 0 {
		return nil, &StructuralError{Kind: KindDuplicateID, IDs: dups, Msg: "duplicate task id"}
	}

	// Successors are derived here and nowhere else.
	for i := range s.Tasks {
		for _, p := range s.Tasks[i].Predecessors {
			s.Tasks[p].Successors = append(s.Tasks[p].Successors, i)
		}
	}

	if cycle := s.DetectCycle(); cycle != nil {
		return nil, &StructuralError{Kind: KindCycle, IDs: cycle, Msg: "dependency cycle"}
	}

	var starts, ends []int
	for i := range s.Tasks {
		if s.Tasks[i].IsStart() {
			starts = append(starts, i)
		}
		if s.Tasks[i].IsEnd() {
			ends = append(ends, i)
		}
	}
	switch {
	case len(starts) == 0:
		return nil, &StructuralError{Kind: KindNoStart, Msg: "no start task"}
	case len(starts) > 1:
		return nil, &StructuralError{Kind: KindMultipleStart, IDs: s.IDs(starts), Msg: "multiple start tasks"}
	case len(ends) == 0:
		return nil, &StructuralError{Kind: KindNoEnd, Msg: "no end task"}
	case len(ends) > 1:
		return nil, &StructuralError{Kind: KindMultipleEnd, IDs: s.IDs(ends), Msg: "multiple end tasks"}
	}
	s.start = starts[0]
	s.end = ends[0]

	order, err := s.topoSort()
	if err != nil {
		return nil, err
	}
	s.order = order

	return s, nil
}

func parseDuration(raw string) (int, error) {
	v := strings.TrimSpace(raw)
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.New("not an integer")
	}
	if n < 0 {
		return 0, errors.New("must not be negative")
	}
	if n > MaxDuration {
		return 0, fmt.Errorf("too large (max %d)", MaxDuration)
	}
	return n, nil
}

// SplitPredecessors parses a comma-separated predecessor field. The
// NoPredecessor marker or an empty field yields no predecessors.
// Duplicate ids are collapsed, keeping first occurrence order.
func SplitPredecessors(raw string) ([]string, error) {
	v := strings.TrimSpace(raw)
	if v == "" || v == NoPredecessor {
		return nil, nil
	}
	seen := make(map[string]bool)
	var ids []string
	for _, part := range strings.Split(v, ",") {
		p := strings.TrimSpace(part)
		switch {
		case p == "":
			return nil, errors.New("empty predecessor id")
		case p == NoPredecessor:
			return nil, errors.New("'-' cannot be combined with other predecessors")
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		ids = append(ids, p)
	}
	return ids, nil
}

// topoSort performs Kahn's algorithm. Ready tasks are released in input
// order, so the result is stable for a given input.
func (s *Schedule) topoSort() ([]int, error) {
	inDegree := make([]int, len(s.Tasks))
	var queue []int
	for i := range s.Tasks {
		inDegree[i] = len(s.Tasks[i].Predecessors)
		if inDegree[i] == 0 {
			queue = append(queue, i)
		}
	}

	order := make([]int, 0, len(s.Tasks))
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		order = append(order, node)

		for _, succ := range s.Tasks[node].Successors {
			inDegree[succ]--
			if inDegree[succ] == 0 {
				queue = append(queue, succ)
			}
		}
	}

	if len(order) != len(s.Tasks) {
		var rest []int
		for i, d := range inDegree {
			if d > 0 {
				rest = append(rest, i)
			}
		}
		return nil, &StructuralError{Kind: KindCycle, IDs: s.IDs(rest), Msg: "dependency cycle"}
	}
	return order, nil
}

// DetectCycle returns the ids along a cycle if one exists, or nil if the graph is acyclic.
// Uses DFS with coloring: white (unvisited), gray (in progress), black (done).
func (s *Schedule) DetectCycle() []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)

	color := make([]int, len(s.Tasks))
	parent := make([]int, len(s.Tasks))

	var dfs func(node int) []int
	dfs = func(node int) []int {
		color[node] = gray
		for _, next := range s.Tasks[node].Successors {
			if color[next] == gray {
				cycle := []int{next, node}
				cur := node
				for cur != next {
					cur = parent[cur]
					cycle = append(cycle, cur)
				}
				for i, j := 0, len(cycle)-1; i < j; i, j = i+1, j-1 {
					cycle[i], cycle[j] = cycle[j], cycle[i]
				}
				return cycle
			}
			if color[next] == white {
				parent[next] = node
				if cycle := dfs(next); cycle != nil {
					return cycle
				}
			}
		}
		color[node] = black
		return nil
	}

	for i := range s.Tasks {
		if color[i] == white {
			if cycle := dfs(i); cycle != nil {
				return s.IDs(cycle)
			}
		}
	}
	return nil
}
