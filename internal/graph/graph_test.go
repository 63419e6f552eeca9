package graph

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/joshharrison/critpath/internal/plan"
)

func rec(id, dur, preds string) plan.Record {
	return plan.Record{ID: id, Description: "Task " + id, Duration: dur, Predecessors: preds}
}

func mustBuild(t *testing.T, records []plan.Record) *Schedule {
	t.Helper()
	s, err := Build("test", records)
	if err != nil {
		t.Fatalf("build schedule: %v", err)
	}
	return s
}

func ids(s *Schedule, idx []int) []string {
	return s.IDs(idx)
}

func TestBuild_Diamond(t *testing.T) {
	// A -> B -> D
	// A -> C -> D
	s := mustBuild(t, []plan.Record{
		rec("A", "4", "-"),
		rec("B", "8", "A"),
		rec("C", "2", "A"),
		rec("D", "7", "B,C"),
	})

	if s.TaskCount() != 4 {
		t.Errorf("expected 4 tasks, got %d", s.TaskCount())
	}
	if got := s.Tasks[s.Start()].ID; got != "A" {
		t.Errorf("expected start A, got %s", got)
	}
	if got := s.Tasks[s.End()].ID; got != "D" {
		t.Errorf("expected end D, got %s", got)
	}

	a := s.Task("A")
	if got := ids(s, a.Successors); !reflect.DeepEqual(got, []string{"B", "C"}) {
		t.Errorf("expected A successors [B C], got %v", got)
	}
	d := s.Task("D")
	if got := ids(s, d.Predecessors); !reflect.DeepEqual(got, []string{"B", "C"}) {
		t.Errorf("expected D predecessors [B C], got %v", got)
	}
	if d.Duration != 7 {
		t.Errorf("expected D duration 7, got %d", d.Duration)
	}
}

func TestBuild_ForwardReferences(t *testing.T) {
	// D is listed first but depends on tasks declared later.
	s := mustBuild(t, []plan.Record{
		rec("D", "1", "B,C"),
		rec("B", "2", "A"),
		rec("C", "3", "A"),
		rec("A", "4", "-"),
	})

	order := ids(s, s.Order())
	pos := make(map[string]int)
	for i, id := range order {
		pos[id] = i
	}
	for _, pair := range [][2]string{{"A", "B"}, {"A", "C"}, {"B", "D"}, {"C", "D"}} {
		if pos[pair[0]] > pos[pair[1]] {
			t.Errorf("expected %s before %s in order %v", pair[0], pair[1], order)
		}
	}
}

func TestBuild_OrderIsStable(t *testing.T) {
	records := []plan.Record{
		rec("S", "1", "-"),
		rec("X", "1", "S"),
		rec("Y", "1", "S"),
		rec("Z", "1", "S"),
		rec("E", "1", "Z,Y,X"),
	}
	want := []string{"S", "X", "Y", "Z", "E"}
	for i := 0; i < 5; i++ {
		s := mustBuild(t, records)
		if got := ids(s, s.Order()); !reflect.DeepEqual(got, want) {
			t.Fatalf("run %d: expected order %v, got %v", i, want, got)
		}
	}
}

func TestBuild_SingleTask(t *testing.T) {
	s := mustBuild(t, []plan.Record{rec("solo", "3", "-")})
	if s.Start() != 0 || s.End() != 0 {
		t.Errorf("expected solo to be both start and end, got start=%d end=%d", s.Start(), s.End())
	}
}

func TestBuild_DuplicatePredecessorsCollapsed(t *testing.T) {
	s := mustBuild(t, []plan.Record{
		rec("A", "1", "-"),
		rec("B", "1", "A, A ,A"),
	})
	if n := len(s.Task("B").Predecessors); n != 1 {
		t.Errorf("expected 1 predecessor, got %d", n)
	}
	if n := len(s.Task("A").Successors); n != 1 {
		t.Errorf("expected 1 successor, got %d", n)
	}
}

func TestBuild_ZeroDurationMilestone(t *testing.T) {
	s := mustBuild(t, []plan.Record{
		rec("A", "0", "-"),
		rec("B", "5", "A"),
	})
	if s.Task("A").Duration != 0 {
		t.Errorf("expected milestone duration 0, got %d", s.Task("A").Duration)
	}
}

func TestBuild_DurationTooLarge(t *testing.T) {
	_, err := Build("test", []plan.Record{
		{Line: 1, ID: "A", Duration: "9223372036854775807", Predecessors: "-"},
		{Line: 2, ID: "B", Duration: "1", Predecessors: "A"},
	})
	var fe *FieldError
	if !errors.As(err, &fe) {
		t.Fatalf("expected field error, got %v", err)
	}
	if fe.Field != "duration" || fe.TaskID != "A" || !strings.Contains(fe.Reason, "too large") {
		t.Errorf("unexpected field error: %+v", fe)
	}
}

func TestBuild_MaxDurationAccepted(t *testing.T) {
	s := mustBuild(t, []plan.Record{rec("A", "1000000000", "-")})
	if s.Task("A").Duration != MaxDuration {
		t.Errorf("expected duration %d, got %d", MaxDuration, s.Task("A").Duration)
	}
}

func TestBuild_Empty(t *testing.T) {
	_, err := Build("test", nil)
	assertStructural(t, err, KindEmpty)
}

func TestBuild_MultipleStarts(t *testing.T) {
	_, err := Build("test", []plan.Record{
		rec("A", "1", "-"),
		rec("B", "1", "-"),
		rec("C", "1", "A,B"),
	})
	se := assertStructural(t, err, KindMultipleStart)
	if !reflect.DeepEqual(se.IDs, []string{"A", "B"}) {
		t.Errorf("expected offending ids [A B], got %v", se.IDs)
	}
	if !strings.Contains(err.Error(), "A, B") {
		t.Errorf("expected message to name both ids, got %q", err.Error())
	}
}

func TestBuild_MultipleEnds(t *testing.T) {
	_, err := Build("test", []plan.Record{
		rec("A", "1", "-"),
		rec("B", "1", "A"),
		rec("C", "1", "A"),
	})
	se := assertStructural(t, err, KindMultipleEnd)
	if !reflect.DeepEqual(se.IDs, []string{"B", "C"}) {
		t.Errorf("expected offending ids [B C], got %v", se.IDs)
	}
}

func TestBuild_NoStartBecauseOfCycle(t *testing.T) {
	// A -> B -> C -> A: every task has a predecessor.
	_, err := Build("test", []plan.Record{
		rec("A", "1", "C"),
		rec("B", "1", "A"),
		rec("C", "1", "B"),
	})
	se := assertStructural(t, err, KindCycle)
	if len(se.IDs) < 3 {
		t.Errorf("expected cycle of length >= 3, got %v", se.IDs)
	}
	t.Logf("cycle error (expected): %v", err)
}

func TestBuild_CycleBehindValidStart(t *testing.T) {
	_, err := Build("test", []plan.Record{
		rec("S", "1", "-"),
		rec("A", "1", "S,C"),
		rec("B", "1", "A"),
		rec("C", "1", "B"),
		rec("E", "1", "C"),
	})
	se := assertStructural(t, err, KindCycle)
	if se.IDs[0] != se.IDs[len(se.IDs)-1] {
		t.Errorf("expected closed cycle path, got %v", se.IDs)
	}
}

func TestBuild_SelfReference(t *testing.T) {
	_, err := Build("test", []plan.Record{
		rec("A", "1", "-"),
		rec("B", "1", "A,B"),
	})
	se := assertStructural(t, err, KindCycle)
	if !reflect.DeepEqual(se.IDs, []string{"B", "B"}) {
		t.Errorf("expected self cycle [B B], got %v", se.IDs)
	}
}

func TestBuild_DuplicateID(t *testing.T) {
	_, err := Build("test", []plan.Record{
		rec("A", "1", "-"),
		rec("A", "2", "-"),
	})
	se := assertStructural(t, err, KindDuplicateID)
	if !reflect.DeepEqual(se.IDs, []string{"A"}) {
		t.Errorf("expected duplicate [A], got %v", se.IDs)
	}
}

func TestBuild_UnknownPredecessor(t *testing.T) {
	_, err := Build("test", []plan.Record{
		{Line: 1, ID: "A", Duration: "1", Predecessors: "-"},
		{Line: 2, ID: "B", Duration: "1", Predecessors: "A,Z"},
	})
	if !errors.Is(err, ErrReference) {
		t.Fatalf("expected reference error, got %v", err)
	}
	var re *ReferenceError
	if !errors.As(err, &re) {
		t.Fatalf("expected *ReferenceError, got %T", err)
	}
	if re.Missing != "Z" || re.TaskID != "B" || re.Line != 2 {
		t.Errorf("unexpected reference error fields: %+v", re)
	}
	if !strings.Contains(err.Error(), `"Z"`) || !strings.Contains(err.Error(), "task B") {
		t.Errorf("expected message naming Z and B, got %q", err.Error())
	}
}

func TestBuild_FieldErrorsAccumulate(t *testing.T) {
	_, err := Build("test", []plan.Record{
		{Line: 1, ID: "A", Duration: "four", Predecessors: "-"},
		{Line: 2, ID: "B-1", Duration: "1", Predecessors: "A"},
		{Line: 3, ID: "C", Duration: "-2", Predecessors: "A,,B-1"},
		{Line: 4, ID: "D", Duration: "1", Predecessors: "Q"},
	})
	if !errors.Is(err, ErrFieldFormat) {
		t.Fatalf("expected field format error, got %v", err)
	}
	if !errors.Is(err, ErrReference) {
		t.Errorf("expected reference error to be reported alongside, got %v", err)
	}

	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		t.Fatalf("expected joined errors, got %T", err)
	}
	errs := joined.Unwrap()
	if len(errs) != 5 {
		t.Fatalf("expected 5 errors, got %d: %v", len(errs), err)
	}

	var fe *FieldError
	if !errors.As(errs[0], &fe) || fe.Field != "duration" || fe.Value != "four" || fe.Line != 1 {
		t.Errorf("unexpected first error: %v", errs[0])
	}
	if !errors.As(errs[1], &fe) || fe.Field != "id" || fe.Value != "B-1" {
		t.Errorf("unexpected second error: %v", errs[1])
	}
	if !errors.As(errs[2], &fe) || fe.Field != "duration" || fe.Value != "-2" {
		t.Errorf("unexpected third error: %v", errs[2])
	}
	if !errors.As(errs[3], &fe) || fe.Field != "predecessors" {
		t.Errorf("unexpected fourth error: %v", errs[3])
	}
	var re *ReferenceError
	if !errors.As(errs[4], &re) || re.Missing != "Q" {
		t.Errorf("unexpected fifth error: %v", errs[4])
	}
}

func TestBuild_MarkerMixedWithIDs(t *testing.T) {
	_, err := Build("test", []plan.Record{
		rec("A", "1", "-"),
		rec("B", "1", "-,A"),
	})
	if !errors.Is(err, ErrFieldFormat) {
		t.Fatalf("expected field format error, got %v", err)
	}
}

func TestBuild_UnicodeIDs(t *testing.T) {
	s := mustBuild(t, []plan.Record{
		rec("Ä1", "1", "-"),
		rec("Übergabe_2", "1", "Ä1"),
	})
	if s.Task("Übergabe_2") == nil {
		t.Error("expected unicode id to be accepted")
	}
}

func TestDetectCycle_NoCycle(t *testing.T) {
	s := &Schedule{Tasks: []Task{
		{ID: "a", Successors: []int{1}},
		{ID: "b", Predecessors: []int{0}},
	}}
	if cycle := s.DetectCycle(); cycle != nil {
		t.Errorf("expected no cycle, got %v", cycle)
	}
}

func TestDetectCycle_WithCycle(t *testing.T) {
	s := &Schedule{Tasks: []Task{
		{ID: "a", Successors: []int{1}},
		{ID: "b", Successors: []int{2}},
		{ID: "c", Successors: []int{0}},
	}}
	cycle := s.DetectCycle()
	if !reflect.DeepEqual(cycle, []string{"a", "b", "c", "a"}) {
		t.Errorf("expected cycle [a b c a], got %v", cycle)
	}
}

func assertStructural(t *testing.T, err error, kind string) *StructuralError {
	t.Helper()
	if !errors.Is(err, ErrStructural) {
		t.Fatalf("expected structural error, got %v", err)
	}
	var se *StructuralError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StructuralError, got %T", err)
	}
	if se.Kind != kind {
		t.Fatalf("expected kind %s, got %s (%v)", kind, se.Kind, err)
	}
	return se
}
