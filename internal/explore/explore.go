// Package explore computes the numeric aggregates behind the usual solar
// station charts: correlations, time-bucketed means, cleaning impact and a
// wind rose. Rendering is left to the caller; reports come out as Markdown
// or CSV.
package explore

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/KaramelBytes/irradiance-cli/internal/table"
)

// Options selects which aggregates to compute and over which columns.
type Options struct {
	Columns         []string
	TimestampColumn string
	FlagColumn      string
	DirColumn       string
	SpeedColumn     string
	Bucket          string
	Layouts         []string
	Sectors         int
	SpeedBands      []float64
}

// DefaultOptions mirrors the column names of the default cleaning config.
func DefaultOptions() Options {
	return Options{
		Columns:         []string{"GHI", "DNI", "DHI", "ModA", "ModB", "Tamb", "RH", "WS"},
		TimestampColumn: "Timestamp",
		FlagColumn:      "Cleaning",
		DirColumn:       "WD",
		SpeedColumn:     "WS",
		Bucket:          BucketMonth,
		Sectors:         16,
	}
}

// Report bundles the aggregates that could be computed for a table.
type Report struct {
	Name         string       `json:"name" yaml:"name"`
	Rows         int          `json:"rows" yaml:"rows"`
	Correlations *CorrMatrix  `json:"correlations,omitempty" yaml:"correlations,omitempty"`
	Buckets      *BucketTable `json:"buckets,omitempty" yaml:"buckets,omitempty"`
	Impact       *ImpactTable `json:"impact,omitempty" yaml:"impact,omitempty"`
	WindRose     *WindRose    `json:"wind_rose,omitempty" yaml:"wind_rose,omitempty"`
	Warnings     []string     `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Explore computes every aggregate whose columns exist in t. Absent optional
// columns produce a warning; a malformed timestamp is returned as an error.
func Explore(t *table.Table, opt Options) (*Report, error) {
	rep := &Report{Name: t.Name, Rows: t.Len()}

	var cols []*table.Column
	for _, name := range opt.Columns {
		c, ok := t.Column(name)
		switch {
		case !ok:
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("column %s not found; skipped", name))
		case !c.Numeric():
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("column %s is %s, not numeric; skipped", name, c.Kind))
		default:
			cols = append(cols, c)
		}
	}
	if len(cols) >= 2 {
		rep.Correlations = Correlations(cols)
	}

	if opt.TimestampColumn != "" && opt.Bucket != "" {
		if ts, ok := t.Column(opt.TimestampColumn); ok {
			b, err := Buckets(ts, cols, opt.Bucket, opt.Layouts)
			if err != nil {
				return nil, err
			}
			rep.Buckets = b
		} else {
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("timestamp column %s not found; no time buckets", opt.TimestampColumn))
		}
	}

	if opt.FlagColumn != "" {
		if f, ok := t.Column(opt.FlagColumn); ok && f.Numeric() {
			rep.Impact = CleaningImpact(f, cols)
		} else {
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("flag column %s not found; no cleaning impact", opt.FlagColumn))
		}
	}

	if opt.DirColumn != "" && opt.SpeedColumn != "" {
		d, dok := t.Column(opt.DirColumn)
		s, sok := t.Column(opt.SpeedColumn)
		if dok && sok && d.Numeric() && s.Numeric() {
			sectors := opt.Sectors
			if sectors == 0 {
				sectors = 16
			}
			rose, err := NewWindRose(d, s, sectors, opt.SpeedBands)
			if err != nil {
				return nil, err
			}
			rep.WindRose = rose
		} else {
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("wind columns %s/%s not found; no wind rose", opt.DirColumn, opt.SpeedColumn))
		}
	}
	return rep, nil
}

func f4(v float64) string { return strconv.FormatFloat(v, 'f', 4, 64) }

// Markdown renders every computed section.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[EXPLORE]\n")
	b.WriteString(fmt.Sprintf("Dataset: %s\nRows: %d\n", r.Name, r.Rows))

	if m := r.Correlations; m != nil {
		b.WriteString("\n[CORRELATIONS]\n| |")
		for _, c := range m.Columns {
			b.WriteString(" " + c + " |")
		}
		b.WriteString("\n|---|")
		for range m.Columns {
			b.WriteString("---|")
		}
		b.WriteString("\n")
		for i, c := range m.Columns {
			b.WriteString("| " + c + " |")
			for j := range m.Columns {
				b.WriteString(" " + strconv.FormatFloat(m.Values[i][j], 'f', 3, 64) + " |")
			}
			b.WriteString("\n")
		}
	}

	if bt := r.Buckets; bt != nil {
		b.WriteString(fmt.Sprintf("\n[TIME BUCKETS: %s]\n| %s | rows |", strings.ToUpper(bt.Unit), bt.Unit))
		for _, c := range bt.Columns {
			b.WriteString(" " + c + " |")
		}
		b.WriteString("\n|---|---|")
		for range bt.Columns {
			b.WriteString("---|")
		}
		b.WriteString("\n")
		for _, row := range bt.Buckets {
			b.WriteString(fmt.Sprintf("| %s | %d |", row.Key, row.Rows))
			for _, c := range bt.Columns {
				if v, ok := row.Means[c]; ok {
					b.WriteString(" " + f4(v) + " |")
				} else {
					b.WriteString("  |")
				}
			}
			b.WriteString("\n")
		}
		if bt.Skipped > 0 {
			b.WriteString(fmt.Sprintf("(%d rows without timestamp skipped)\n", bt.Skipped))
		}
	}

	if it := r.Impact; it != nil {
		b.WriteString(fmt.Sprintf("\n[CLEANING IMPACT: %s]\n| %s | rows |", it.Flag, it.Flag))
		for _, c := range it.Columns {
			b.WriteString(" " + c + " |")
		}
		b.WriteString("\n|---|---|")
		for range it.Columns {
			b.WriteString("---|")
		}
		b.WriteString("\n")
		for _, g := range it.Groups {
			b.WriteString(fmt.Sprintf("| %s | %d |", g.Flag, g.Rows))
			for _, c := range it.Columns {
				if v, ok := g.Means[c]; ok {
					b.WriteString(" " + f4(v) + " |")
				} else {
					b.WriteString("  |")
				}
			}
			b.WriteString("\n")
		}
	}

	if w := r.WindRose; w != nil {
		b.WriteString(fmt.Sprintf("\n[WIND ROSE]\nObservations: %d (calm %d)\n| sector |", w.Total, w.Calm))
		for _, band := range w.Bands {
			b.WriteString(" " + band + " |")
		}
		b.WriteString("\n|---|")
		for range w.Bands {
			b.WriteString("---|")
		}
		b.WriteString("\n")
		for i, s := range w.Sectors {
			b.WriteString("| " + s + " |")
			for _, n := range w.Counts[i] {
				b.WriteString(fmt.Sprintf(" %d |", n))
			}
			b.WriteString("\n")
		}
	}

	if len(r.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range r.Warnings {
			b.WriteString("- " + w + "\n")
		}
	}
	return b.String()
}

// WriteCSV writes one section as a flat CSV table. Section is one of
// corr, buckets, impact or windrose.
func (r *Report) WriteCSV(w io.Writer, section string) error {
	records, err := r.sectionRecords(section)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	for _, rec := range records {
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write %s csv: %w", section, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush %s csv: %w", section, err)
	}
	return nil
}

func (r *Report) sectionRecords(section string) ([][]string, error) {
	var out [][]string
	switch section {
	case "corr":
		m := r.Correlations
		if m == nil {
			return nil, fmt.Errorf("no correlations computed (need at least two numeric columns)")
		}
		out = append(out, append([]string{""}, m.Columns...))
		for i, c := range m.Columns {
			rec := []string{c}
			for j := range m.Columns {
				rec = append(rec, strconv.FormatFloat(m.Values[i][j], 'f', -1, 64))
			}
			out = append(out, rec)
		}
	case "buckets":
		bt := r.Buckets
		if bt == nil {
			return nil, fmt.Errorf("no time buckets computed")
		}
		out = append(out, append([]string{bt.Unit, "rows"}, bt.Columns...))
		for _, row := range bt.Buckets {
			rec := []string{row.Key, strconv.Itoa(row.Rows)}
			for _, c := range bt.Columns {
				rec = append(rec, meanCell(row.Means, c))
			}
			out = append(out, rec)
		}
	case "impact":
		it := r.Impact
		if it == nil {
			return nil, fmt.Errorf("no cleaning impact computed")
		}
		out = append(out, append([]string{it.Flag, "rows"}, it.Columns...))
		for _, g := range it.Groups {
			rec := []string{g.Flag, strconv.Itoa(g.Rows)}
			for _, c := range it.Columns {
				rec = append(rec, meanCell(g.Means, c))
			}
			out = append(out, rec)
		}
	case "windrose":
		wr := r.WindRose
		if wr == nil {
			return nil, fmt.Errorf("no wind rose computed")
		}
		out = append(out, append([]string{"sector"}, wr.Bands...))
		for i, s := range wr.Sectors {
			rec := []string{s}
			for _, n := range wr.Counts[i] {
				rec = append(rec, strconv.Itoa(n))
			}
			out = append(out, rec)
		}
	default:
		return nil, fmt.Errorf("unsupported section %q (use corr|buckets|impact|windrose)", section)
	}
	return out, nil
}

func meanCell(m map[string]float64, name string) string {
	if v, ok := m[name]; ok {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}
