package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/joshharrison/critpath/internal/cpm"
	"github.com/joshharrison/critpath/internal/graph"
	"github.com/joshharrison/critpath/internal/ui"
)

const descWidth = 40

// Reporter renders a computed schedule for humans or machines.
type Reporter struct {
	Schedule *graph.Schedule
	Result   *cpm.CPMResult
}

// New creates a new Reporter.
func New(s *graph.Schedule, result *cpm.CPMResult) *Reporter {
	return &Reporter{Schedule: s, Result: result}
}

// column pads s to width display cells, truncating with an ellipsis when needed.
func column(s string, width int) string {
	if runewidth.StringWidth(s) > width {
		s = runewidth.Truncate(s, width, "...")
	}
	return runewidth.FillRight(s, width)
}

// PrintSchedule writes the timing table, critical path and waves.
func (r *Reporter) PrintSchedule(w io.Writer) error {
	s, res := r.Schedule, r.Result

	idWidth := runewidth.StringWidth("ID")
	for i := range s.Tasks {
		if n := runewidth.StringWidth(s.Tasks[i].ID); n > idWidth {
			idWidth = n
		}
	}

	fmt.Fprintf(w, "%s %s\n", ui.BoldCyan("📐 Schedule"), ui.Bold(s.Title))
	fmt.Fprintf(w, "%s\n\n", ui.Cyan(strings.Repeat("═", 24)))

	fmt.Fprintf(w, "  %s %s %s\n",
		ui.Dim(column("ID", idWidth)),
		ui.Dim(column("Description", descWidth)),
		ui.Dim(fmt.Sprintf("%5s %5s %5s %5s %5s %5s %5s", "Dur", "ES", "EF", "LS", "LF", "TF", "FF")))

	for i := range s.Tasks {
		t := &s.Tasks[i]
		ts, ok := res.Tasks[t.ID]
		if !ok {
			return fmt.Errorf("no schedule for task %s", t.ID)
		}
		fmt.Fprintf(w, "  %s %s %5d %5d %5d %5d %5d %s %s %s\n",
			ui.TaskID(column(t.ID, idWidth), ts.IsCritical),
			column(t.Description, descWidth),
			ts.Duration, ts.ES, ts.EF, ts.LS, ts.LF,
			ui.Float(ts.TotalFloat)+strings.Repeat(" ", pad(ts.TotalFloat)),
			ui.Float(ts.FreeFloat)+strings.Repeat(" ", pad(ts.FreeFloat)),
			ui.CriticalMarker(ts.IsCritical))
	}
	fmt.Fprintln(w)

	path, err := res.CriticalPath()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Duration:  %s\n", ui.Bold(res.ProjectDuration))
	fmt.Fprintf(w, "Critical:  %s\n", ui.BoldYellow("⚡ "+strings.Join(path, " → ")))
	fmt.Fprintf(w, "Tasks:     %d total, %d critical\n\n", s.TaskCount(), len(res.CriticalTasks))

	r.PrintWaves(w)
	return nil
}

// pad returns the spaces needed to right-align v in a five-cell column.
func pad(v int) int {
	n := 5 - len(fmt.Sprint(v))
	if n < 0 {
		return 0
	}
	return n
}

// PrintWaves writes the tasks grouped by earliest start.
func (r *Reporter) PrintWaves(w io.Writer) {
	for _, wave := range r.Result.Waves {
		label := ui.BoldWhite("WAVE")
		if wave.IsCritical {
			label = ui.BoldYellow("WAVE")
		}
		fmt.Fprintf(w, "  🌊 %s %d %s\n", label, wave.Index+1, ui.Dim(fmt.Sprintf("(t=%d, %d tasks)", wave.Start, len(wave.TaskIDs))))
		for _, id := range wave.TaskIDs {
			ts := r.Result.Tasks[id]
			desc := ""
			if t := r.Schedule.Task(id); t != nil {
				desc = column(t.Description, descWidth)
			}
			fmt.Fprintf(w, "    %s %s %s\n", ui.CriticalMarker(ts.IsCritical), ui.TaskID(id, ts.IsCritical), desc)
		}
	}
}

// JSON returns the schedule in machine-readable form.
func (r *Reporter) JSON() ([]byte, error) {
	type taskOut struct {
		ID           string   `json:"id"`
		Description  string   `json:"description"`
		Duration     int      `json:"duration"`
		Predecessors []string `json:"predecessors"`
		Successors   []string `json:"successors"`
		ES           int      `json:"es"`
		EF           int      `json:"ef"`
		LS           int      `json:"ls"`
		LF           int      `json:"lf"`
		TotalFloat   int      `json:"total_float"`
		FreeFloat    int      `json:"free_float"`
		IsCritical   bool     `json:"is_critical"`
		Wave         int      `json:"wave"`
	}
	type waveOut struct {
		Index      int      `json:"index"`
		Start      int      `json:"start"`
		TaskIDs    []string `json:"task_ids"`
		IsCritical bool     `json:"is_critical"`
	}
	type output struct {
		Title           string    `json:"title"`
		ProjectDuration int       `json:"project_duration"`
		CriticalPath    []string  `json:"critical_path"`
		CriticalTasks   []string  `json:"critical_tasks"`
		TopoOrder       []string  `json:"topo_order"`
		Tasks           []taskOut `json:"tasks"`
		Waves           []waveOut `json:"waves"`
	}

	s, res := r.Schedule, r.Result
	path, err := res.CriticalPath()
	if err != nil {
		return nil, err
	}

	o := output{
		Title:           s.Title,
		ProjectDuration: res.ProjectDuration,
		CriticalPath:    path,
		CriticalTasks:   res.CriticalTasks,
		TopoOrder:       res.TopoOrder,
	}
	for i := range s.Tasks {
		t := &s.Tasks[i]
		ts, ok := res.Tasks[t.ID]
		if !ok {
			return nil, fmt.Errorf("no schedule for task %s", t.ID)
		}
		o.Tasks = append(o.Tasks, taskOut{
			ID:           t.ID,
			Description:  t.Description,
			Duration:     ts.Duration,
			Predecessors: s.IDs(t.Predecessors),
			Successors:   s.IDs(t.Successors),
			ES:           ts.ES,
			EF:           ts.EF,
			LS:           ts.LS,
			LF:           ts.LF,
			TotalFloat:   ts.TotalFloat,
			FreeFloat:    ts.FreeFloat,
			IsCritical:   ts.IsCritical,
			Wave:         ts.Wave,
		})
	}
	for _, wave := range res.Waves {
		o.Waves = append(o.Waves, waveOut{
			Index:      wave.Index,
			Start:      wave.Start,
			TaskIDs:    wave.TaskIDs,
			IsCritical: wave.IsCritical,
		})
	}

	return json.MarshalIndent(o, "", "  ")
}
