package analysis

import (
	"math"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/KaramelBytes/irradiance-cli/internal/table"
)

var profileHeader = []string{"Timestamp", "GHI", "ModA", "Cleaning", "Comments"}

var profileRecords = [][]string{
	{"2021-08-09 00:01", "1", "10", "0", ""},
	{"2021-08-09 00:02", "", "12", "0", ""},
	{"2021-08-09 00:03", "3", "14", "1", "wiped"},
	{"2021-08-09 00:04", "5", "NA", "0", ""},
	{"2021-08-09 00:05", "7", "18", "0", ""},
}

func loadProfileTable(t *testing.T) *table.Table {
	t.Helper()
	tbl, err := table.FromRecords("sensors.csv", profileHeader, profileRecords, table.Schema{
		Timestamp: "Timestamp",
		Flag:      "Cleaning",
		Numeric:   []string{"GHI", "ModA"},
	}, table.DefaultOptions())
	if err != nil {
		t.Fatalf("FromRecords: %v", err)
	}
	return tbl
}

func TestProfileStatsSkipMissing(t *testing.T) {
	tbl := loadProfileTable(t)
	rep := Profile(tbl, Options{SampleRows: 2})

	if rep.Rows != 5 {
		t.Fatalf("rows = %d, want 5", rep.Rows)
	}
	if len(rep.Cols) != 5 {
		t.Fatalf("cols = %d, want 5", len(rep.Cols))
	}
	if len(rep.Samples) != 2 {
		t.Fatalf("samples = %d, want 2", len(rep.Samples))
	}

	ghi, ok := rep.Column("GHI")
	if !ok || ghi.Stats == nil {
		t.Fatalf("GHI summary missing: %#v", ghi)
	}
	vals := []float64{1, 3, 5, 7}
	checkSummary(t, *ghi.Stats, vals)
	if ghi.Missing != 1 || !almostEqual(ghi.MissingPct, 20, 1e-9) {
		t.Fatalf("GHI missing = %d (%.2f%%), want 1 (20%%)", ghi.Missing, ghi.MissingPct)
	}
	if !almostEqual(ghi.Stats.Q25, 2.5, 1e-9) || !almostEqual(ghi.Stats.Q75, 5.5, 1e-9) {
		t.Fatalf("GHI quartiles = %f/%f, want 2.5/5.5", ghi.Stats.Q25, ghi.Stats.Q75)
	}

	moda, _ := rep.Column("ModA")
	checkSummary(t, *moda.Stats, []float64{10, 12, 14, 18})

	comments, _ := rep.Column("Comments")
	if comments.Stats != nil {
		t.Fatalf("text column should have no stats")
	}
	if comments.Missing != 4 || !almostEqual(comments.MissingPct, 80, 1e-9) {
		t.Fatalf("comments missing = %d (%.2f%%)", comments.Missing, comments.MissingPct)
	}

	flag, _ := rep.Column("Cleaning")
	if flag.Kind != "flag" || flag.Stats == nil || !almostEqual(flag.Stats.Mean, 0.2, 1e-9) {
		t.Fatalf("flag summary = %#v", flag)
	}
}

func TestProfileDoesNotMutate(t *testing.T) {
	tbl := loadProfileTable(t)
	before := tbl.Clone()
	_ = Profile(tbl, DefaultOptions())
	for i := 0; i < tbl.Len(); i++ {
		if strings.Join(tbl.Row(i), ",") != strings.Join(before.Row(i), ",") {
			t.Fatalf("row %d changed", i)
		}
	}
}

func TestProfileEmptyTable(t *testing.T) {
	tbl, err := table.FromRecords("empty.csv", []string{"GHI", "Comments"}, nil, table.Schema{Numeric: []string{"GHI"}}, table.DefaultOptions())
	if err != nil {
		t.Fatalf("FromRecords: %v", err)
	}
	rep := Profile(tbl, DefaultOptions())
	for _, c := range rep.Cols {
		if c.MissingPct != 0 {
			t.Fatalf("%s missing pct = %f, want 0", c.Name, c.MissingPct)
		}
	}
	if len(rep.Warnings) == 0 {
		t.Fatalf("expected a warning for the empty table")
	}
}

func TestMarkdownSections(t *testing.T) {
	rep := Profile(loadProfileTable(t), Options{SampleRows: 1})
	md := rep.Markdown()
	for _, want := range []string{
		"[DATASET SUMMARY]",
		"File: sensors.csv",
		"Rows: 5",
		"- GHI: numeric",
		"- Timestamp: timestamp",
		"[DESCRIBE]",
		"| GHI | 4 | 4 |",
		"[MISSING VALUES]",
		"- GHI: 1 (20.00%)",
		"[HEAD AND SAMPLE ROWS]",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestMedianAndMoments(t *testing.T) {
	if _, ok := Median(nil); ok {
		t.Fatalf("median of empty set must be undefined")
	}
	m, ok := Median([]float64{9, 1, 5, 3})
	if !ok || m != 4 {
		t.Fatalf("median = %f, want 4", m)
	}
	mean, std := Moments([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if !almostEqual(mean, 5, 1e-9) || !almostEqual(std, 2, 1e-9) {
		t.Fatalf("moments = %f/%f, want 5/2", mean, std)
	}
}

func checkSummary(t *testing.T, s Summary, vals []float64) {
	t.Helper()
	if s.Count != len(vals) {
		t.Fatalf("count = %d, want %d", s.Count, len(vals))
	}
	if !almostEqual(s.Min, minFloat(vals), 1e-9) {
		t.Fatalf("min = %f, want %f", s.Min, minFloat(vals))
	}
	if !almostEqual(s.Max, maxFloat(vals), 1e-9) {
		t.Fatalf("max = %f, want %f", s.Max, maxFloat(vals))
	}
	if !almostEqual(s.Mean, mean(vals), 1e-9) {
		t.Fatalf("mean = %f, want %f", s.Mean, mean(vals))
	}
	if !almostEqual(s.Std, sampleStd(vals), 1e-9) {
		t.Fatalf("std = %f, want %f", s.Std, sampleStd(vals))
	}
}

func mean(vals []float64) float64 {
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func sampleStd(vals []float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	m := mean(vals)
	var sum float64
	for _, v := range vals {
		diff := v - m
		sum += diff * diff
	}
	return math.Sqrt(sum / float64(len(vals)-1))
}

func minFloat(vals []float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxFloat(vals []float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func almostEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func TestMarkdownTruncatesSampleByRune(t *testing.T) {
	note := strings.Repeat("é", 90)
	tbl, err := table.FromRecords("notes.csv", []string{"GHI", "Comments"}, [][]string{{"1", note}}, table.Schema{Numeric: []string{"GHI"}}, table.DefaultOptions())
	if err != nil {
		t.Fatalf("FromRecords: %v", err)
	}
	md := Profile(tbl, Options{SampleRows: 1}).Markdown()
	if !utf8.ValidString(md) {
		t.Fatalf("markdown is not valid UTF-8")
	}
	if !strings.Contains(md, strings.Repeat("é", 77)+"...") {
		t.Fatalf("sample cell not truncated to 77 runes:\n%s", md)
	}
}
