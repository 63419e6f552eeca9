// Package dot serializes a scheduled task graph into the Graphviz DOT language.
package dot

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/joshharrison/critpath/internal/cpm"
	"github.com/joshharrison/critpath/internal/graph"
)

// Valid rank directions.
var rankDirs = map[string]bool{"LR": true, "RL": true, "TB": true, "BT": true}

// Options controls layout attributes of the emitted graph.
type Options struct {
	RankDir string // LR (default), RL, TB or BT
}

func (o Options) rankDir() (string, error) {
	rd := strings.ToUpper(strings.TrimSpace(o.RankDir))
	if rd == "" {
		return "LR", nil
	}
	if !rankDirs[rd] {
		return "", fmt.Errorf("invalid rankdir %q (want LR, RL, TB or BT)", o.RankDir)
	}
	return rd, nil
}

// Write emits the DOT description of s annotated with the timings in result.
// Nodes are declared in input order, edges in input order of their
// predecessor, so identical input always yields identical output.
func Write(w io.Writer, s *graph.Schedule, result *cpm.CPMResult, opts Options) error {
	rankDir, err := opts.rankDir()
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "digraph \"%s\" {\n", quote(s.Title))
	fmt.Fprintln(bw, "  node [shape=record];")
	fmt.Fprintf(bw, "  rankdir=%s;\n", rankDir)
	fmt.Fprintln(bw)

	for i := range s.Tasks {
		t := &s.Tasks[i]
		ts, ok := result.Tasks[t.ID]
		if !ok {
			return fmt.Errorf("no schedule for task %s", t.ID)
		}
		attrs := fmt.Sprintf(`label="%s"`, label(t, ts))
		if ts.IsCritical {
			attrs += ", color=red"
		}
		fmt.Fprintf(bw, "  \"%s\" [%s];\n", quote(t.ID), attrs)
	}

	fmt.Fprintln(bw)

	for i := range s.Tasks {
		from := s.Tasks[i].ID
		for _, succ := range s.Tasks[i].Successors {
			to := s.Tasks[succ].ID
			style := ""
			if result.IsCriticalEdge(from, to) {
				style = " [color=red, penwidth=2]"
			}
			fmt.Fprintf(bw, "  \"%s\" -> \"%s\"%s;\n", quote(from), quote(to), style)
		}
	}

	fmt.Fprintln(bw, "}")
	return bw.Flush()
}

// Marshal returns the DOT description as a string.
func Marshal(s *graph.Schedule, result *cpm.CPMResult, opts Options) (string, error) {
	var sb strings.Builder
	if err := Write(&sb, s, result, opts); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// label builds the four-column record label:
// {ES|EF} | {id|description} | {duration|TF|FF} | {LS|LF}
func label(t *graph.Task, ts *cpm.TaskSchedule) string {
	return fmt.Sprintf("{ES=%d|EF=%d}|{%s|%s}|{%d|TF=%d|FF=%d}|{LS=%d|LF=%d}",
		ts.ES, ts.EF,
		escapeRecord(t.ID), escapeRecord(t.Description),
		ts.Duration, ts.TotalFloat, ts.FreeFloat,
		ts.LS, ts.LF)
}

var recordEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	`{`, `\{`,
	`}`, `\}`,
	`|`, `\|`,
	`<`, `\<`,
	`>`, `\>`,
	"\n", " ",
)

// escapeRecord escapes characters that carry meaning inside a record label.
func escapeRecord(s string) string {
	return recordEscaper.Replace(s)
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", " ")

// quote escapes s for use inside a double-quoted DOT ID.
func quote(s string) string {
	return quoteEscaper.Replace(s)
}
