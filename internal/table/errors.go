package table

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyTable indicates the input has no header row.
	ErrEmptyTable = errors.New("input has no header row")
	// ErrSameFile indicates an export would overwrite its own input.
	ErrSameFile = errors.New("output path refers to the input file")
)

// MissingColumnsError lists required columns absent from the header.
type MissingColumnsError struct {
	File    string
	Missing []string
}

func (e *MissingColumnsError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s: missing required columns: %s", e.File, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Missing, ", "))
}

// ValueError reports a cell in a typed column that could not be parsed.
// Row is 1-based over data rows (the header is not counted).
type ValueError struct {
	Row    int
	Column string
	Value  string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("row %d: column %s: cannot parse %q as a number", e.Row, e.Column, e.Value)
}
