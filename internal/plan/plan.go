// Package plan reads task lists from CSV, JSON and YAML files and turns
// them into raw task records for the graph builder.
package plan

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrInput indicates an input file that cannot be read as a task list.
var ErrInput = errors.New("input error")

// InputError reports a failure reading a task list.
type InputError struct {
	Path string
	Line int
	Msg  string
	Err  error
}

func (e *InputError) Error() string {
	var b strings.Builder
	b.WriteString(ErrInput.Error())
	if e.Path != "" {
		b.WriteString(": ")
		b.WriteString(e.Path)
	}
	if e.Line > 0 {
		fmt.Fprintf(&b, ":%d", e.Line)
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *InputError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrInput, e.Err}
	}
	return []error{ErrInput}
}

// Record is one task as read from the input, before any validation.
// Predecessors is the raw comma-separated id list, or "-" for none.
type Record struct {
	Line         int    `json:"line,omitempty" yaml:"-"`
	ID           string `json:"id" yaml:"id"`
	Description  string `json:"description" yaml:"description"`
	Duration     string `json:"duration" yaml:"duration"`
	Predecessors string `json:"predecessors" yaml:"predecessors"`
}

// File is a task list read from disk.
type File struct {
	Title   string
	Records []Record
}

// Options controls how task lists are read.
type Options struct {
	Delimiter rune   // CSV field separator, ';' if zero
	Title     string // overrides the title taken from the file
}

// Format identifies a task-list encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// DetectFormat picks the encoding from the file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt", "":
		return FormatCSV, nil
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", &InputError{Path: path, Msg: fmt.Sprintf("unsupported file extension %q (use .csv, .json, .yaml)", filepath.Ext(path))}
}

// Load reads the task list at path. The title defaults to the file name
// without extension unless the file or opts provide one.
func Load(path string, opts Options) (*File, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &InputError{Path: path, Err: err}
	}
	defer f.Close()

	var out *File
	switch format {
	case FormatJSON:
		out, err = ReadJSON(f)
	case FormatYAML:
		out, err = ReadYAML(f)
	default:
		var recs []Record
		recs, err = ReadCSV(f, opts.Delimiter)
		out = &File{Records: recs}
	}
	if err != nil {
		var ie *InputError
		if errors.As(err, &ie) && ie.Path == "" {
			ie.Path = path
		}
		return nil, err
	}

	switch {
	case opts.Title != "":
		out.Title = opts.Title
	case out.Title == "":
		base := filepath.Base(path)
		out.Title = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return out, nil
}
