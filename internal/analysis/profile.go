package analysis

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/irradiance-cli/internal/table"
)

// Options controls profiling behavior.
type Options struct {
	// SampleRows determines how many head rows to include in the report.
	SampleRows int
}

// DefaultOptions returns reasonable defaults for dataset profiling.
func DefaultOptions() Options {
	return Options{SampleRows: 5}
}

// Report is a markdown-friendly profile of a table.
type Report struct {
	Name     string          `json:"name" yaml:"name"`
	Rows     int             `json:"rows" yaml:"rows"`
	Cols     []ColumnSummary `json:"columns" yaml:"columns"`
	Samples  [][]string      `json:"samples,omitempty" yaml:"samples,omitempty"`
	Warnings []string        `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// ColumnSummary captures kind, missingness and, for numeric kinds, statistics.
type ColumnSummary struct {
	Name       string   `json:"name" yaml:"name"`
	Kind       string   `json:"kind" yaml:"kind"`
	Missing    int      `json:"missing" yaml:"missing"`
	MissingPct float64  `json:"missing_pct" yaml:"missing_pct"`
	Stats      *Summary `json:"stats,omitempty" yaml:"stats,omitempty"`
}

// Profile computes per-column statistics and missing counts. It never mutates t.
func Profile(t *table.Table, opt Options) *Report {
	rep := &Report{Name: t.Name, Rows: t.Len()}
	sampleRows := opt.SampleRows
	if sampleRows < 0 {
		sampleRows = 0
	}
	for _, c := range t.Columns {
		s := ColumnSummary{Name: c.Name, Kind: c.Kind.String(), Missing: c.MissingCount()}
		if rep.Rows > 0 {
			s.MissingPct = float64(s.Missing) * 100.0 / float64(rep.Rows)
		}
		if c.Numeric() {
			sum := Describe(c.Present())
			s.Stats = &sum
			if sum.Count == 0 && rep.Rows > 0 {
				rep.Warnings = append(rep.Warnings, fmt.Sprintf("column %s has no values", c.Name))
			}
		}
		rep.Cols = append(rep.Cols, s)
	}
	for i := 0; i < t.Len() && i < sampleRows; i++ {
		rep.Samples = append(rep.Samples, t.Row(i))
	}
	if rep.Rows == 0 {
		rep.Warnings = append(rep.Warnings, "table has no data rows; missing percentages reported as 0")
	}
	return rep
}

// Column returns the summary for name.
func (r *Report) Column(name string) (ColumnSummary, bool) {
	for _, c := range r.Cols {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return ColumnSummary{}, false
}

// Markdown renders a compact report suitable for a terminal or standalone doc.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", r.Name))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", r.Rows))
	b.WriteString(fmt.Sprintf("Columns: %d\n\n", len(r.Cols)))

	b.WriteString("[SCHEMA]\n")
	for _, c := range r.Cols {
		b.WriteString(fmt.Sprintf("- %s: %s\n", safeName(c.Name), c.Kind))
	}

	hasStats := false
	for _, c := range r.Cols {
		if c.Stats != nil {
			hasStats = true
			break
		}
	}
	if hasStats {
		b.WriteString("\n[DESCRIBE]\n")
		b.WriteString("| column | count | mean | std | min | 25% | 50% | 75% | max |\n")
		b.WriteString("| --- | --- | --- | --- | --- | --- | --- | --- | --- |\n")
		for _, c := range r.Cols {
			if c.Stats == nil {
				continue
			}
			s := c.Stats
			b.WriteString(fmt.Sprintf("| %s | %d | %.4g | %.4g | %.4g | %.4g | %.4g | %.4g | %.4g |\n",
				safeName(c.Name), s.Count, s.Mean, s.Std, s.Min, s.Q25, s.Q50, s.Q75, s.Max))
		}
	}

	b.WriteString("\n[MISSING VALUES]\n")
	for _, c := range r.Cols {
		b.WriteString(fmt.Sprintf("- %s: %d (%.2f%%)\n", safeName(c.Name), c.Missing, c.MissingPct))
	}

	if len(r.Samples) > 0 {
		b.WriteString("\n[HEAD AND SAMPLE ROWS]\n")
		b.WriteString("| ")
		for i, c := range r.Cols {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(safeName(c.Name))
		}
		b.WriteString(" |\n| ")
		for i := range r.Cols {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString("---")
		}
		b.WriteString(" |\n")
		for _, row := range r.Samples {
			b.WriteString("| ")
			for i := range r.Cols {
				if i > 0 {
					b.WriteString(" | ")
				}
				val := ""
				if i < len(row) {
					val = row[i]
				}
				if r := []rune(val); len(r) > 80 {
					val = string(r[:77]) + "..."
				}
				b.WriteString(safeVal(val))
			}
			b.WriteString(" |\n")
		}
	}
	if len(r.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range r.Warnings {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}
func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
