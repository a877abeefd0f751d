package explore

import (
	"strings"
	"time"

	"github.com/KaramelBytes/irradiance-cli/internal/table"
)

// DefaultLayouts are tried in order when no layouts are configured.
var DefaultLayouts = []string{
	"2006-01-02 15:04", "2006-01-02 15:04:05", "2006-01-02T15:04", time.RFC3339, "2006-01-02T15:04:05",
	"2006-01-02", "2006/01/02 15:04", "2006/01/02", "1/2/2006 15:04", "1/2/2006 15:04:05",
}

func parseTime(s string, layouts []string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Times parses every cell of c. Missing cells yield ok=false at their index;
// any other cell that matches no layout fails the whole column.
func Times(c *table.Column, layouts []string) ([]time.Time, []bool, error) {
	if len(layouts) == 0 {
		layouts = DefaultLayouts
	}
	out := make([]time.Time, len(c.Cells))
	ok := make([]bool, len(c.Cells))
	for i, cell := range c.Cells {
		if cell.Missing {
			continue
		}
		t, parsed := parseTime(cell.Raw, layouts)
		if !parsed {
			return nil, nil, &TimestampError{Row: i + 1, Column: c.Name, Value: cell.Raw}
		}
		out[i] = t
		ok[i] = true
	}
	return out, ok, nil
}
