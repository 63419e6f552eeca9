package ui

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Sprint color functions for building styled strings.
var (
	Bold        = color.New(color.Bold).SprintFunc()
	Dim         = color.New(color.Faint).SprintFunc()
	Cyan        = color.New(color.FgCyan).SprintFunc()
	Green       = color.New(color.FgGreen).SprintFunc()
	Red         = color.New(color.FgRed).SprintFunc()
	BoldCyan    = color.New(color.Bold, color.FgCyan).SprintFunc()
	BoldRed     = color.New(color.Bold, color.FgRed).SprintFunc()
	BoldYellow  = color.New(color.Bold, color.FgYellow).SprintFunc()
	BoldMagenta = color.New(color.Bold, color.FgMagenta).SprintFunc()
	BoldWhite   = color.New(color.Bold, color.FgWhite).SprintFunc()
)

// SetNoColor turns colored output off (or back on) for every helper above.
func SetNoColor(off bool) {
	color.NoColor = off
}

// CriticalMarker returns the marker shown next to critical tasks.
func CriticalMarker(critical bool) string {
	if critical {
		return BoldYellow("⚡")
	}
	return " "
}

// TaskID styles a task id, highlighting critical ones.
func TaskID(id string, critical bool) string {
	if critical {
		return BoldRed(id)
	}
	return BoldMagenta(id)
}

// Float styles a float value: zero in red, positive in green.
func Float(v int) string {
	s := fmt.Sprint(v)
	if v == 0 {
		return Red(s)
	}
	return Green(s)
}

// PrintError writes a red error line.
func PrintError(w io.Writer, label string, err error) {
	fmt.Fprintf(w, "%s %s %v\n", BoldRed("✗"), BoldRed(label+":"), err)
}
