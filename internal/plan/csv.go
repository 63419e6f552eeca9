package plan

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// DefaultDelimiter separates CSV fields.
const DefaultDelimiter = ';'

// headerNames are duration column titles that mark a header line.
var headerNames = map[string]bool{
	"duration": true,
	"dauer":    true,
	"dur":      true,
}

// ReadCSV reads delimited records of the form id;description;duration;predecessors.
// Blank lines are skipped, as is a leading header line.
func ReadCSV(r io.Reader, delimiter rune) ([]Record, error) {
	if delimiter == 0 {
		delimiter = DefaultDelimiter
	}

	cr := csv.NewReader(r)
	cr.Comma = delimiter
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	var records []Record
	first := true
	for {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				return nil, &InputError{Line: pe.Line, Err: pe.Err}
			}
			return nil, &InputError{Err: err}
		}
		line, _ := cr.FieldPos(0)

		if isBlank(fields) {
			continue
		}
		if first {
			first = false
			if isHeader(fields) {
				continue
			}
		}
		if len(fields) != 4 {
			return nil, &InputError{Line: line, Msg: fmt.Sprintf("expected 4 fields separated by %q, got %d", delimiter, len(fields))}
		}

		records = append(records, Record{
			Line:         line,
			ID:           strings.TrimSpace(fields[0]),
			Description:  strings.TrimSpace(fields[1]),
			Duration:     strings.TrimSpace(fields[2]),
			Predecessors: strings.TrimSpace(fields[3]),
		})
	}

	if len(records) == 0 {
		return nil, &InputError{Msg: "no task records"}
	}
	return records, nil
}

func isBlank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

var wordField = regexp.MustCompile(`^[\p{L}\p{N}_]+$`)

// isHeader reports whether the first line is a column header: either its
// duration column carries a known title, or all four fields are single
// words and the duration column is not a number (e.g. "Nr;Bez;Zeit;Vorg").
func isHeader(fields []string) bool {
	if len(fields) < 3 {
		return false
	}
	dur := strings.ToLower(strings.TrimSpace(fields[2]))
	if headerNames[dur] {
		return true
	}
	if len(fields) != 4 {
		return false
	}
	if _, err := strconv.Atoi(dur); err == nil {
		return false
	}
	for _, f := range fields {
		if !wordField.MatchString(strings.TrimSpace(f)) {
			return false
		}
	}
	return true
}

// WriteCSV writes records in the format ReadCSV accepts, with a header line.
func WriteCSV(w io.Writer, records []Record, delimiter rune) error {
	if delimiter == 0 {
		delimiter = DefaultDelimiter
	}
	cw := csv.NewWriter(w)
	cw.Comma = delimiter
	if err := cw.Write([]string{"id", "description", "duration", "predecessors"}); err != nil {
		return err
	}
	for _, rec := range records {
		preds := rec.Predecessors
		if preds == "" {
			preds = "-"
		}
		if err := cw.Write([]string{rec.ID, rec.Description, rec.Duration, preds}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
