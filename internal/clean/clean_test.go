package clean

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/irradiance-cli/internal/analysis"
	"github.com/KaramelBytes/irradiance-cli/internal/table"
)

// scenarioRows is a 10-row station export: row 3 has a missing GHI and a
// negative WS, row 5 has ModA = 500.
var scenarioRows = []string{
	"Timestamp,GHI,DNI,DHI,ModA,ModB,WS,WSgust,Comments",
	"2021-08-09 06:00,10,1,2,48,47,1.0,1.5,",
	"2021-08-09 06:01,20,2,3,52,51,1.2,1.7,",
	"2021-08-09 06:02,30,3,4,50,49,1.1,1.6,",
	"2021-08-09 06:03,,4,5,49,48,-2.5,1.9,sensor glitch",
	"2021-08-09 06:04,50,5,6,51,50,1.3,1.8,",
	"2021-08-09 06:05,60,6,7,500,52,1.4,2.0,",
	"2021-08-09 06:06,70,7,8,50,49,1.0,1.4,",
	"2021-08-09 06:07,80,8,9,47,46,0.9,1.2,",
	"2021-08-09 06:08,90,9,10,53,52,1.5,2.2,",
	"2021-08-09 06:09,100,10,11,50,49,1.6,2.3,",
}

func scenarioConfig() Config {
	cfg := DefaultConfig()
	cfg.FlagColumn = ""
	cfg.Reference = map[string]Moments{"ModA": {Mean: 50, Std: 10}}
	return cfg
}

func writeRows(t *testing.T, name string, rows []string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(strings.Join(rows, "\n")+"\n"), 0o644))
	return p
}

func loadRows(t *testing.T, rows []string, cfg Config) *table.Table {
	t.Helper()
	p := writeRows(t, "sensors.csv", rows)
	tbl, err := table.Load(p, cfg.Schema(), table.DefaultOptions())
	require.NoError(t, err)
	return tbl
}

func TestRunScenario(t *testing.T) {
	cfg := scenarioConfig()
	in := writeRows(t, "station.csv", scenarioRows)
	out := filepath.Join(t.TempDir(), "station_clean.csv")

	res, err := Run(cfg, in, out, RunOptions{Load: table.DefaultOptions(), Profile: analysis.DefaultOptions()})
	require.NoError(t, err)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 10, res.Rows)
	assert.Equal(t, []string{"profile", "outliers", "impute", "normalize"}, stageNames(res))

	require.NotNil(t, res.Outliers)
	assert.Equal(t, []int{5}, res.Outliers.Indices())
	assert.Equal(t, []string{"ModA"}, res.Outliers.Rows[0].Triggered)
	assert.InDelta(t, 45, res.Outliers.Rows[0].MaxAbsZ, 1e-9)
	assert.Equal(t, 500.0, res.Outliers.Rows[0].Values["ModA"])

	assert.Equal(t, 60.0, res.Imputation.Medians["GHI"])
	assert.Equal(t, 1, res.Imputation.Filled["GHI"])
	assert.Equal(t, 1, res.Normalization.Clipped["WS"])
	assert.True(t, res.Normalization.Dropped)

	cleaned, err := table.Load(out, cfg.Schema(), table.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 10, cleaned.Len())
	assert.False(t, cleaned.Has("Comments"))
	ghi, _ := cleaned.Column("GHI")
	assert.Equal(t, "60", ghi.Cells[3].Raw)
	ws, _ := cleaned.Column("WS")
	assert.Equal(t, "0", ws.Cells[3].Raw)
	moda, _ := cleaned.Column("ModA")
	assert.Equal(t, 500.0, moda.Cells[5].Num, "outlier rows are reported, not removed")

	original, err := os.ReadFile(in)
	require.NoError(t, err)
	assert.Equal(t, strings.Join(scenarioRows, "\n")+"\n", string(original), "input file untouched")

	md := res.Markdown()
	for _, want := range []string{"[RUN]", "[DATASET SUMMARY]", "[OUTLIERS]", "[IMPUTATION]", "[NORMALIZATION]", "- dropped column Comments"} {
		assert.Contains(t, md, want)
	}
}

func stageNames(res *Result) []string {
	out := make([]string, len(res.Timings))
	for i, s := range res.Timings {
		out[i] = s.Stage
	}
	return out
}

func TestRunRejectsSameFile(t *testing.T) {
	in := writeRows(t, "station.csv", scenarioRows)
	_, err := Run(scenarioConfig(), in, in, RunOptions{Load: table.DefaultOptions()})
	assert.ErrorIs(t, err, table.ErrSameFile)
}

func TestRunMissingColumnsAbortsBeforeWrite(t *testing.T) {
	in := writeRows(t, "station.csv", []string{"Timestamp,GHI", "2021-08-09 06:00,1"})
	out := filepath.Join(t.TempDir(), "out.csv")
	_, err := Run(scenarioConfig(), in, out, RunOptions{Load: table.DefaultOptions()})
	var mc *table.MissingColumnsError
	require.True(t, errors.As(err, &mc))
	assert.Contains(t, mc.Missing, "ModA")
	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}

func TestImputeEmptyColumnIsFatalAndLeavesTableUntouched(t *testing.T) {
	rows := []string{
		"Timestamp,GHI,DNI,DHI,ModA,ModB,WS,WSgust",
		"2021-08-09 06:00,,1,2,48,47,1,1",
		"2021-08-09 06:01,,2,,52,51,1,1",
	}
	cfg := scenarioConfig()
	tbl := loadRows(t, rows, cfg)
	_, err := Impute(tbl, cfg)
	var ec *EmptyColumnError
	require.True(t, errors.As(err, &ec))
	assert.Equal(t, "GHI", ec.Column)

	dhi, _ := tbl.Column("DHI")
	assert.True(t, dhi.Cells[1].Missing, "no column is filled when any median is undefined")

	_, err = DefaultPipeline(analysis.DefaultOptions()).Run(tbl, cfg)
	var se *StageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "impute", se.Stage)
	assert.True(t, errors.As(err, &ec))
}

func TestRunHeaderOnlyTableExportsHeader(t *testing.T) {
	in := writeRows(t, "empty.csv", scenarioRows[:1])
	out := filepath.Join(t.TempDir(), "empty_clean.csv")
	res, err := Run(scenarioConfig(), in, out, RunOptions{Load: table.DefaultOptions()})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Rows)
	assert.Equal(t, 0, res.Imputation.Total())
	assert.Contains(t, res.Imputation.Markdown(), "- GHI: no rows")

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "Timestamp,GHI,DNI,DHI,ModA,ModB,WS,WSgust\n", string(b))
}

func TestImputeUsesColumnLocalMedian(t *testing.T) {
	rows := []string{
		"Timestamp,GHI,DNI,DHI,ModA,ModB,WS,WSgust",
		"t1,1,100,5,1,1,1,1",
		"t2,,200,,1,1,1,1",
		"t3,3,,7,1,1,1,1",
		"t4,4,400,8,1,1,1,1",
	}
	cfg := scenarioConfig()
	tbl := loadRows(t, rows, cfg)
	rep, err := Impute(tbl, cfg)
	require.NoError(t, err)
	assert.Equal(t, 3.0, rep.Medians["GHI"])
	assert.Equal(t, 200.0, rep.Medians["DNI"])
	assert.Equal(t, 7.0, rep.Medians["DHI"])
	assert.Equal(t, 3, rep.Total())

	dni, _ := tbl.Column("DNI")
	assert.Equal(t, 200.0, dni.Cells[2].Num)
	assert.False(t, dni.Cells[2].Missing)
}

func TestNormalizeIsIdempotent(t *testing.T) {
	cfg := scenarioConfig()
	tbl := loadRows(t, scenarioRows, cfg)
	_, err := Impute(tbl, cfg)
	require.NoError(t, err)

	first, err := Normalize(tbl, cfg)
	require.NoError(t, err)
	assert.True(t, first.Dropped)
	assert.Equal(t, 1, first.Total())
	snapshot := tbl.Clone()

	second, err := Normalize(tbl, cfg)
	require.NoError(t, err)
	assert.False(t, second.Dropped, "annotation already gone is not an error")
	assert.Equal(t, 0, second.Total())
	for i := 0; i < tbl.Len(); i++ {
		assert.Equal(t, snapshot.Row(i), tbl.Row(i))
	}
}

func TestNormalizeLeavesMissingCells(t *testing.T) {
	cfg := scenarioConfig()
	cfg.AnnotationColumn = "Notes"
	tbl := loadRows(t, scenarioRows, cfg)
	rep, err := Normalize(tbl, cfg)
	require.NoError(t, err)
	assert.False(t, rep.Dropped)
	assert.True(t, tbl.Has("Comments"))
	ghi, _ := tbl.Column("GHI")
	assert.True(t, ghi.Cells[3].Missing)
}

func TestDetectOutliersIsSideEffectFree(t *testing.T) {
	rows := []string{"Timestamp,GHI,DNI,DHI,ModA,ModB,WS,WSgust"}
	for i := 0; i < 30; i++ {
		ghi := fmt.Sprintf("%d", 10+i%5)
		if i == 7 {
			ghi = "1000"
		}
		ws := "1"
		if i == 12 {
			ws = ""
		}
		rows = append(rows, fmt.Sprintf("t%d,%s,1,1,%d,1,%s,1", i, ghi, 40+i%3, ws))
	}
	cfg := DefaultConfig()
	cfg.FlagColumn = ""
	tbl := loadRows(t, rows, cfg)
	before := tbl.Clone()

	first, err := DetectOutliers(tbl, cfg)
	require.NoError(t, err)
	second, err := DetectOutliers(tbl, cfg)
	require.NoError(t, err)

	assert.Equal(t, []int{7}, first.Indices())
	assert.Equal(t, first.Indices(), second.Indices())
	assert.Equal(t, first.Moments, second.Moments)
	_, hasWS := first.Rows[0].Values["WS"]
	assert.True(t, hasWS)
	assert.Contains(t, strings.Join(first.Warnings, "\n"), "DNI has zero standard deviation")

	ws, _ := tbl.Column("WS")
	assert.True(t, ws.Cells[12].Missing, "missing values receive no score and stay missing")
	for i := 0; i < tbl.Len(); i++ {
		assert.Equal(t, before.Row(i), tbl.Row(i))
	}

	ghi, _ := tbl.Column("GHI")
	mean, std := analysis.Moments(ghi.Present())
	assert.InDelta(t, mean, first.Moments["GHI"].Mean, 1e-9)
	assert.InDelta(t, std, first.Moments["GHI"].Std, 1e-9)
	assert.Contains(t, first.Markdown(), "Flagged rows: 1")
}

func TestPipelineInvariantsOnRandomTables(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	cfg := DefaultConfig()
	header := append([]string{"Timestamp"}, cfg.Columns...)
	header = append(header, "Cleaning", "Comments")
	for iter := 0; iter < 25; iter++ {
		n := 1 + rng.Intn(40)
		records := make([][]string, n)
		for i := range records {
			rec := []string{fmt.Sprintf("2021-08-09 %02d:%02d", i/60, i%60)}
			for range cfg.Columns {
				switch {
				case i == 0:
					rec = append(rec, fmt.Sprintf("%.2f", rng.Float64()*10))
				case rng.Intn(5) == 0:
					rec = append(rec, "")
				default:
					rec = append(rec, fmt.Sprintf("%.2f", rng.NormFloat64()*50))
				}
			}
			rec = append(rec, fmt.Sprintf("%d", rng.Intn(2)), "")
			records[i] = rec
		}
		tbl, err := table.FromRecords("rand.csv", header, records, cfg.Schema(), table.DefaultOptions())
		require.NoError(t, err)

		res, err := DefaultPipeline(analysis.Options{}).Run(tbl, cfg)
		require.NoError(t, err)
		assert.Equal(t, n, tbl.Len())
		assert.Equal(t, n, res.Rows)
		assert.False(t, tbl.Has("Comments"))
		for _, name := range cfg.Columns {
			c, ok := tbl.Column(name)
			require.True(t, ok)
			for i, cell := range c.Cells {
				require.False(t, cell.Missing, "%s row %d missing", name, i)
				require.GreaterOrEqual(t, cell.Num, 0.0, "%s row %d negative", name, i)
			}
		}
	}
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.Columns = nil
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Columns = []string{"GHI", "ghi"}
	assert.ErrorContains(t, cfg.Validate(), "listed twice")

	cfg = DefaultConfig()
	cfg.ZThreshold = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Reference = map[string]Moments{"GHI": {Mean: 1}}
	assert.ErrorContains(t, cfg.Validate(), "reference std")

	cfg = DefaultConfig()
	cfg.AnnotationColumn = "GHI"
	assert.ErrorContains(t, cfg.Validate(), "annotation")
}
