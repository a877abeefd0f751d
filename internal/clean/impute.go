package clean

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/irradiance-cli/internal/analysis"
	"github.com/KaramelBytes/irradiance-cli/internal/table"
)

// ImputeReport records the median used and the number of cells filled per column.
type ImputeReport struct {
	Columns []string           `json:"columns" yaml:"columns"`
	Medians map[string]float64 `json:"medians" yaml:"medians"`
	Filled  map[string]int     `json:"filled" yaml:"filled"`
}

// Total returns the number of filled cells across all columns.
func (r *ImputeReport) Total() int {
	n := 0
	for _, v := range r.Filled {
		n += v
	}
	return n
}

// Impute fills missing designated cells with their own column's median.
// All medians are computed before any cell is written, so a column with no
// values fails the stage without touching the table. A table without rows has
// nothing to fill and passes through unchanged.
func Impute(t *table.Table, cfg Config) (*ImputeReport, error) {
	cols, err := cfg.designated(t)
	if err != nil {
		return nil, err
	}
	rep := &ImputeReport{
		Medians: make(map[string]float64, len(cols)),
		Filled:  make(map[string]int, len(cols)),
	}
	if t.Len() == 0 {
		for _, c := range cols {
			rep.Columns = append(rep.Columns, c.Name)
			rep.Filled[c.Name] = 0
		}
		return rep, nil
	}
	medians := make([]float64, len(cols))
	for i, c := range cols {
		m, ok := analysis.Median(c.Present())
		if !ok {
			return nil, &EmptyColumnError{Column: c.Name}
		}
		medians[i] = m
		rep.Columns = append(rep.Columns, c.Name)
		rep.Medians[c.Name] = m
	}
	for i, c := range cols {
		filled := 0
		for row := range c.Cells {
			if c.Cells[row].Missing {
				c.Set(row, medians[i])
				filled++
			}
		}
		rep.Filled[c.Name] = filled
	}
	return rep, nil
}

// Markdown renders the imputation summary.
func (r *ImputeReport) Markdown() string {
	var b strings.Builder
	b.WriteString("[IMPUTATION]\n")
	for _, name := range r.Columns {
		m, ok := r.Medians[name]
		if !ok {
			b.WriteString(fmt.Sprintf("- %s: no rows\n", name))
			continue
		}
		b.WriteString(fmt.Sprintf("- %s: filled %d with median %.4g\n", name, r.Filled[name], m))
	}
	return b.String()
}
