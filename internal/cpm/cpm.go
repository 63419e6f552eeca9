package cpm

import (
	"fmt"
	"math"
	"sort"

	"github.com/joshharrison/critpath/internal/graph"
)

// Analyze performs critical path method analysis on a built schedule.
// The schedule is not modified; all timing lives in the returned result.
func Analyze(s *graph.Schedule) (*CPMResult, error) {
	order := s.Order()
	if len(order) != s.TaskCount() || len(order) == 0 {
		return nil, &InvariantError{Msg: fmt.Sprintf("topological order covers %d of %d tasks", len(order), s.TaskCount())}
	}

	// Indexed like s.Tasks; the map in the result shares these pointers.
	ts := make([]*TaskSchedule, s.TaskCount())
	for i := range s.Tasks {
		ts[i] = &TaskSchedule{TaskID: s.Tasks[i].ID, Duration: s.Tasks[i].Duration}
	}

	// Forward pass: ES = max(EF of all predecessors)
	for _, i := range order {
		es := 0
		for _, p := range s.Tasks[i].Predecessors {
			if ts[p].EF > es {
				es = ts[p].EF
			}
		}
		if ts[i].Duration < 0 || es > math.MaxInt-ts[i].Duration {
			return nil, &InvariantError{TaskID: ts[i].TaskID, Msg: fmt.Sprintf("finish time overflows (ES=%d, duration=%d)", es, ts[i].Duration)}
		}
		ts[i].ES = es
		ts[i].EF = es + ts[i].Duration
	}

	// Backward pass in reverse topological order: LF = min(LS of all successors).
	// The single end task fixes the project horizon at its own EF.
	for k := len(order) - 1; k >= 0; k-- {
		i := order[k]
		t := ts[i]
		succs := s.Tasks[i].Successors

		if len(succs) == 0 {
			t.LF = t.EF
			t.FreeFloat = 0
		} else {
			minLS, minES := ts[succs[0]].LS, ts[succs[0]].ES
			for _, n := range succs[1:] {
				if ts[n].LS < minLS {
					minLS = ts[n].LS
				}
				if ts[n].ES < minES {
					minES = ts[n].ES
				}
			}
			t.LF = minLS
			t.FreeFloat = minES - t.EF
		}
		t.LS = t.LF - t.Duration
		t.TotalFloat = t.LF - t.EF
		t.IsCritical = t.TotalFloat == 0
	}

	result := &CPMResult{
		Tasks:           make(map[string]*TaskSchedule, len(ts)),
		TopoOrder:       s.IDs(order),
		ProjectDuration: ts[s.End()].EF,
		sched:           s,
	}
	for _, t := range ts {
		result.Tasks[t.TaskID] = t
	}
	for _, i := range order {
		if ts[i].IsCritical {
			result.CriticalTasks = append(result.CriticalTasks, ts[i].TaskID)
		}
	}

	if err := result.check(); err != nil {
		return nil, err
	}

	result.Waves = computeWaves(result)
	return result, nil
}

// check verifies the post-conditions every schedule must satisfy.
func (r *CPMResult) check() error {
	start := r.Tasks[r.sched.Tasks[r.sched.Start()].ID]
	end := r.Tasks[r.sched.Tasks[r.sched.End()].ID]
	if start.ES != 0 {
		return &InvariantError{TaskID: start.TaskID, Msg: fmt.Sprintf("start task has ES=%d", start.ES)}
	}
	if end.LF != end.EF {
		return &InvariantError{TaskID: end.TaskID, Msg: fmt.Sprintf("end task has LF=%d, EF=%d", end.LF, end.EF)}
	}

	for _, id := range r.TopoOrder {
		t := r.Tasks[id]
		switch {
		case t.ES < 0 || t.EF < t.ES:
			return &InvariantError{TaskID: id, Msg: fmt.Sprintf("negative or reversed times ES=%d EF=%d", t.ES, t.EF)}
		case t.EF != t.ES+t.Duration:
			return &InvariantError{TaskID: id, Msg: "EF != ES + duration"}
		case t.LS != t.LF-t.Duration:
			return &InvariantError{TaskID: id, Msg: "LS != LF - duration"}
		case t.TotalFloat < 0:
			return &InvariantError{TaskID: id, Msg: fmt.Sprintf("negative total float %d", t.TotalFloat)}
		case t.FreeFloat < 0:
			return &InvariantError{TaskID: id, Msg: fmt.Sprintf("negative free float %d", t.FreeFloat)}
		case t.FreeFloat > t.TotalFloat:
			return &InvariantError{TaskID: id, Msg: fmt.Sprintf("free float %d exceeds total float %d", t.FreeFloat, t.TotalFloat)}
		}
	}
	return nil
}

// IsCriticalEdge reports whether both ends of the edge from -> to are critical.
func (r *CPMResult) IsCriticalEdge(from, to string) bool {
	a, b := r.Tasks[from], r.Tasks[to]
	return a != nil && b != nil && a.IsCritical && b.IsCritical
}

// CriticalPath returns one start-to-end path of critical tasks. It walks
// back from the end task through critical predecessors that finish exactly
// when their successor starts; among several, the smallest ID wins.
func (r *CPMResult) CriticalPath() ([]string, error) {
	s := r.sched
	cur := s.End()
	path := []string{s.Tasks[cur].ID}

	for cur != s.Start() {
		curTS := r.Tasks[s.Tasks[cur].ID]
		next := -1
		for _, p := range s.Tasks[cur].Predecessors {
			pTS := r.Tasks[s.Tasks[p].ID]
			if !pTS.IsCritical || pTS.EF != curTS.ES {
				continue
			}
			if next == -1 || s.Tasks[p].ID < s.Tasks[next].ID {
				next = p
			}
		}
		if next == -1 {
			return nil, &InvariantError{TaskID: curTS.TaskID, Msg: "critical task has no critical predecessor"}
		}
		cur = next
		path = append(path, s.Tasks[cur].ID)
	}

	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, nil
}

// computeWaves groups tasks by their earliest start time.
func computeWaves(result *CPMResult) []Wave {
	esGroups := make(map[int][]string)
	for _, id := range result.TopoOrder {
		es := result.Tasks[id].ES
		esGroups[es] = append(esGroups[es], id)
	}

	esValues := make([]int, 0, len(esGroups))
	for es := range esGroups {
		esValues = append(esValues, es)
	}
	sort.Ints(esValues)

	waves := make([]Wave, len(esValues))
	for i, es := range esValues {
		taskIDs := esGroups[es]

		hasCritical := false
		for _, id := range taskIDs {
			result.Tasks[id].Wave = i
			if result.Tasks[id].IsCritical {
				hasCritical = true
			}
		}

		// Critical tasks first within a wave, otherwise topological order
		sort.SliceStable(taskIDs, func(a, b int) bool {
			return result.Tasks[taskIDs[a]].IsCritical && !result.Tasks[taskIDs[b]].IsCritical
		})

		waves[i] = Wave{
			Index:      i,
			Start:      es,
			TaskIDs:    taskIDs,
			IsCritical: hasCritical,
		}
	}

	return waves
}
