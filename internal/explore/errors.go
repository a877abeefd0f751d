package explore

import "fmt"

// TimestampError reports a non-missing timestamp that matches no layout.
// Row is 1-based over data rows.
type TimestampError struct {
	Row    int
	Column string
	Value  string
}

func (e *TimestampError) Error() string {
	return fmt.Sprintf("row %d: column %s: unparseable timestamp %q", e.Row, e.Column, e.Value)
}
