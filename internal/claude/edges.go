package claude

import (
	"errors"
	"strings"

	"github.com/joshharrison/critpath/internal/graph"
	"github.com/joshharrison/critpath/internal/plan"
)

// SkippedEdge is an inferred edge rejected during validation.
type SkippedEdge struct {
	Edge   DepEdge
	Reason string
}

// Summaries converts task records into the form sent to Claude.
func Summaries(records []plan.Record) []TaskSummary {
	out := make([]TaskSummary, len(records))
	for i, r := range records {
		out[i] = TaskSummary{
			ID:          strings.TrimSpace(r.ID),
			Description: strings.TrimSpace(r.Description),
			Duration:    strings.TrimSpace(r.Duration),
		}
	}
	return out
}

// ValidatePredecessors checks every predecessor field parses, returning
// the field errors joined.
func ValidatePredecessors(records []plan.Record) error {
	var errs []error
	for _, r := range records {
		if _, err := graph.SplitPredecessors(r.Predecessors); err != nil {
			errs = append(errs, &graph.FieldError{Line: r.Line, TaskID: strings.TrimSpace(r.ID),
				Field: "predecessors", Value: r.Predecessors, Reason: err.Error()})
		}
	}
	return errors.Join(errs...)
}

// FilterEdges drops edges naming unknown tasks, self edges, edges already
// present in records, and edges that would close a cycle. Edges are
// considered in order, so earlier ones win.
func FilterEdges(records []plan.Record, edges []DepEdge) (accepted []DepEdge, skipped []SkippedEdge) {
	known := make(map[string]bool, len(records))
	// succ maps a predecessor to the tasks waiting on it.
	succ := make(map[string][]string)
	has := make(map[[2]string]bool)
	for _, r := range records {
		known[strings.TrimSpace(r.ID)] = true
	}
	for _, r := range records {
		id := strings.TrimSpace(r.ID)
		// Malformed fields contribute no edges; ValidatePredecessors reports them.
		preds, _ := graph.SplitPredecessors(r.Predecessors)
		for _, p := range preds {
			succ[p] = append(succ[p], id)
			has[[2]string{p, id}] = true
		}
	}

	for _, e := range edges {
		switch {
		case !known[e.TaskID]:
			skipped = append(skipped, SkippedEdge{e, "unknown task_id " + e.TaskID})
			continue
		case !known[e.PredecessorID]:
			skipped = append(skipped, SkippedEdge{e, "unknown predecessor_id " + e.PredecessorID})
			continue
		case e.TaskID == e.PredecessorID:
			skipped = append(skipped, SkippedEdge{e, "self edge"})
			continue
		case has[[2]string{e.PredecessorID, e.TaskID}]:
			skipped = append(skipped, SkippedEdge{e, "duplicate edge"})
			continue
		case reaches(succ, e.TaskID, e.PredecessorID):
			skipped = append(skipped, SkippedEdge{e, "would create cycle"})
			continue
		}
		succ[e.PredecessorID] = append(succ[e.PredecessorID], e.TaskID)
		has[[2]string{e.PredecessorID, e.TaskID}] = true
		accepted = append(accepted, e)
	}
	return accepted, skipped
}

// reaches reports whether target is reachable from start.
func reaches(succ map[string][]string, start, target string) bool {
	seen := map[string]bool{start: true}
	stack := []string{start}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == target {
			return true
		}
		for _, next := range succ[n] {
			if !seen[next] {
				seen[next] = true
				stack = append(stack, next)
			}
		}
	}
	return false
}

// ApplyEdges returns a copy of records with the edges merged into each
// task's predecessor field. Tasks left without predecessors get the
// NoPredecessor marker. A field that does not parse is kept verbatim,
// with the new ids appended.
func ApplyEdges(records []plan.Record, edges []DepEdge) []plan.Record {
	added := make(map[string][]string)
	for _, e := range edges {
		added[e.TaskID] = append(added[e.TaskID], e.PredecessorID)
	}

	out := make([]plan.Record, len(records))
	for i, r := range records {
		id := strings.TrimSpace(r.ID)
		preds, err := graph.SplitPredecessors(r.Predecessors)
		if err != nil {
			if len(added[id]) > 0 {
				r.Predecessors = strings.TrimSpace(r.Predecessors) + "," + strings.Join(added[id], ",")
			}
			out[i] = r
			continue
		}
		seen := make(map[string]bool, len(preds))
		for _, p := range preds {
			seen[p] = true
		}
		for _, p := range added[id] {
			if !seen[p] {
				seen[p] = true
				preds = append(preds, p)
			}
		}

		r.Predecessors = graph.NoPredecessor
		if len(preds) > 0 {
			r.Predecessors = strings.Join(preds, ",")
		}
		out[i] = r
	}
	return out
}
