package clean

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/irradiance-cli/internal/analysis"
	"github.com/KaramelBytes/irradiance-cli/internal/table"
)

// OutlierReport lists the rows whose designated values exceed the z threshold.
// Flagged rows stay in the table.
type OutlierReport struct {
	Threshold float64            `json:"threshold" yaml:"threshold"`
	Columns   []string           `json:"columns" yaml:"columns"`
	Moments   map[string]Moments `json:"moments" yaml:"moments"`
	Counts    map[string]int     `json:"counts" yaml:"counts"`
	Rows      []OutlierRow       `json:"rows" yaml:"rows"`
	Warnings  []string           `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// OutlierRow is one flagged row. Values holds the row's designated values;
// missing cells are absent from the map.
type OutlierRow struct {
	Index     int                `json:"index" yaml:"index"`
	Values    map[string]float64 `json:"values" yaml:"values"`
	Triggered []string           `json:"triggered" yaml:"triggered"`
	MaxAbsZ   float64            `json:"max_abs_z" yaml:"max_abs_z"`
}

// Indices returns the flagged row indices in ascending order.
func (r *OutlierReport) Indices() []int {
	out := make([]int, len(r.Rows))
	for i, row := range r.Rows {
		out[i] = row.Index
	}
	return out
}

// DetectOutliers scores every non-missing designated value as
// (v - mean) / std, with mean and population std taken over the column's
// non-missing values (or cfg.Reference when given). A row is flagged when any
// |z| exceeds the threshold. The table is not modified.
func DetectOutliers(t *table.Table, cfg Config) (*OutlierReport, error) {
	cols, err := cfg.designated(t)
	if err != nil {
		return nil, err
	}
	thr := cfg.threshold()
	rep := &OutlierReport{
		Threshold: thr,
		Moments:   make(map[string]Moments, len(cols)),
		Counts:    make(map[string]int, len(cols)),
	}

	// Pass one: moments per column from non-missing values only.
	type scored struct {
		col *table.Column
		m   Moments
	}
	var usable []scored
	for _, c := range cols {
		rep.Columns = append(rep.Columns, c.Name)
		m, ok := cfg.reference(c.Name)
		if !ok {
			vals := c.Present()
			if len(vals) == 0 {
				rep.Warnings = append(rep.Warnings, fmt.Sprintf("column %s has no values; not scored", c.Name))
				continue
			}
			m.Mean, m.Std = analysis.Moments(vals)
		}
		rep.Moments[c.Name] = m
		if m.Std == 0 {
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("column %s has zero standard deviation; not scored", c.Name))
			continue
		}
		rep.Counts[c.Name] = 0
		usable = append(usable, scored{col: c, m: m})
	}

	// Pass two: score each present value against its column's moments.
	for i := 0; i < t.Len(); i++ {
		var row *OutlierRow
		for _, s := range usable {
			cell := s.col.Cells[i]
			if cell.Missing {
				continue
			}
			z := math.Abs((cell.Num - s.m.Mean) / s.m.Std)
			if z <= thr {
				continue
			}
			if row == nil {
				row = &OutlierRow{Index: i}
			}
			row.Triggered = append(row.Triggered, s.col.Name)
			if z > row.MaxAbsZ {
				row.MaxAbsZ = z
			}
			rep.Counts[s.col.Name]++
		}
		if row == nil {
			continue
		}
		row.Values = make(map[string]float64, len(cols))
		for _, c := range cols {
			if !c.Cells[i].Missing {
				row.Values[c.Name] = c.Cells[i].Num
			}
		}
		rep.Rows = append(rep.Rows, *row)
	}
	return rep, nil
}

// Markdown renders the outlier report.
func (r *OutlierReport) Markdown() string {
	var b strings.Builder
	b.WriteString("[OUTLIERS]\n")
	b.WriteString(fmt.Sprintf("Threshold: |z| > %.1f\n", r.Threshold))
	b.WriteString(fmt.Sprintf("Flagged rows: %d\n", len(r.Rows)))
	for _, name := range r.Columns {
		m, ok := r.Moments[name]
		if !ok {
			continue
		}
		b.WriteString(fmt.Sprintf("- %s: mean %.4g, std %.4g, flagged %d\n", name, m.Mean, m.Std, r.Counts[name]))
	}
	if len(r.Rows) > 0 {
		b.WriteString("\n| row | ")
		b.WriteString(strings.Join(r.Columns, " | "))
		b.WriteString(" | max |z| | triggered |\n|")
		for i := 0; i < len(r.Columns)+3; i++ {
			b.WriteString(" --- |")
		}
		b.WriteString("\n")
		limit := len(r.Rows)
		if limit > 50 {
			limit = 50
		}
		for _, row := range r.Rows[:limit] {
			b.WriteString(fmt.Sprintf("| %d |", row.Index))
			for _, name := range r.Columns {
				if v, ok := row.Values[name]; ok {
					b.WriteString(fmt.Sprintf(" %.4g |", v))
				} else {
					b.WriteString("  |")
				}
			}
			b.WriteString(fmt.Sprintf(" %.2f | %s |\n", row.MaxAbsZ, strings.Join(row.Triggered, ", ")))
		}
		if limit < len(r.Rows) {
			b.WriteString(fmt.Sprintf("(%d more rows not shown)\n", len(r.Rows)-limit))
		}
	}
	if len(r.Warnings) > 0 {
		ws := append([]string(nil), r.Warnings...)
		sort.Strings(ws)
		b.WriteString("\n[NOTES]\n")
		for _, w := range ws {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}
