package clean

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/irradiance-cli/internal/table"
)

// NormalizeReport records the annotation drop and per-column clip counts.
type NormalizeReport struct {
	Annotation string         `json:"annotation,omitempty" yaml:"annotation,omitempty"`
	Dropped    bool           `json:"dropped" yaml:"dropped"`
	Columns    []string       `json:"columns" yaml:"columns"`
	Clipped    map[string]int `json:"clipped" yaml:"clipped"`
}

// Total returns the number of clipped cells across all columns.
func (r *NormalizeReport) Total() int {
	n := 0
	for _, v := range r.Clipped {
		n += v
	}
	return n
}

// Normalize drops the annotation column when present and sets every
// designated value below zero to zero. Missing cells are left alone.
// Running it again on its own output changes nothing.
func Normalize(t *table.Table, cfg Config) (*NormalizeReport, error) {
	cols, err := cfg.designated(t)
	if err != nil {
		return nil, err
	}
	rep := &NormalizeReport{Annotation: cfg.AnnotationColumn, Clipped: make(map[string]int, len(cols))}
	if cfg.AnnotationColumn != "" {
		rep.Dropped = t.Drop(cfg.AnnotationColumn)
	}
	for _, c := range cols {
		n := 0
		for i, cell := range c.Cells {
			if cell.Missing || !(cell.Num < 0) {
				continue
			}
			c.Set(i, 0)
			n++
		}
		rep.Columns = append(rep.Columns, c.Name)
		rep.Clipped[c.Name] = n
	}
	return rep, nil
}

// Markdown renders the normalization summary.
func (r *NormalizeReport) Markdown() string {
	var b strings.Builder
	b.WriteString("[NORMALIZATION]\n")
	switch {
	case r.Annotation == "":
	case r.Dropped:
		b.WriteString(fmt.Sprintf("- dropped column %s\n", r.Annotation))
	default:
		b.WriteString(fmt.Sprintf("- column %s not present\n", r.Annotation))
	}
	for _, name := range r.Columns {
		b.WriteString(fmt.Sprintf("- %s: clipped %d negative values to 0\n", name, r.Clipped[name]))
	}
	return b.String()
}
