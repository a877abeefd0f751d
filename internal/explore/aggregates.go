package explore

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/KaramelBytes/irradiance-cli/internal/table"
)

// CorrMatrix holds a symmetric Pearson correlation matrix across numeric columns.
type CorrMatrix struct {
	Columns []string    `json:"columns" yaml:"columns"`
	Values  [][]float64 `json:"values" yaml:"values"` // row-major, Values[i][j]
}

type pairAcc struct {
	n     float64
	sumX  float64
	sumY  float64
	sumXX float64
	sumYY float64
	sumXY float64
}

func (pa *pairAcc) add(x, y float64) {
	pa.n++
	pa.sumX += x
	pa.sumY += y
	pa.sumXX += x * x
	pa.sumYY += y * y
	pa.sumXY += x * y
}

func (pa *pairAcc) r() float64 {
	if pa.n < 2 {
		return 0
	}
	denom := math.Sqrt((pa.n*pa.sumXX - pa.sumX*pa.sumX) * (pa.n*pa.sumYY - pa.sumY*pa.sumY))
	if denom == 0 {
		return 0
	}
	r := (pa.n*pa.sumXY - pa.sumX*pa.sumY) / denom
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}

// Correlations computes pairwise-complete Pearson r: each pair uses only the
// rows where both values are present.
func Correlations(cols []*table.Column) *CorrMatrix {
	n := len(cols)
	m := &CorrMatrix{Columns: make([]string, n), Values: make([][]float64, n)}
	for i, c := range cols {
		m.Columns[i] = c.Name
		m.Values[i] = make([]float64, n)
		m.Values[i][i] = 1
	}
	for a := 0; a < n; a++ {
		for b := a + 1; b < n; b++ {
			var pa pairAcc
			ca, cb := cols[a].Cells, cols[b].Cells
			for i := range ca {
				if ca[i].Missing || cb[i].Missing {
					continue
				}
				pa.add(ca[i].Num, cb[i].Num)
			}
			r := pa.r()
			m.Values[a][b] = r
			m.Values[b][a] = r
		}
	}
	return m
}

// Bucket units.
const (
	BucketHour      = "hour"
	BucketDay       = "day"
	BucketMonth     = "month"
	BucketHourOfDay = "hourofday"
)

func bucketKey(t time.Time, unit string) (string, error) {
	switch unit {
	case BucketHour:
		return t.Format("2006-01-02 15:00"), nil
	case BucketDay:
		return t.Format("2006-01-02"), nil
	case BucketMonth:
		return t.Format("2006-01"), nil
	case BucketHourOfDay:
		return fmt.Sprintf("%02d", t.Hour()), nil
	default:
		return "", fmt.Errorf("unsupported bucket %q (use hour|day|month|hourofday)", unit)
	}
}

// BucketRow is the per-bucket mean of each column.
type BucketRow struct {
	Key    string             `json:"key" yaml:"key"`
	Rows   int                `json:"rows" yaml:"rows"`
	Means  map[string]float64 `json:"means" yaml:"means"`
	Counts map[string]int     `json:"counts" yaml:"counts"`
}

// BucketTable aggregates columns over time buckets in ascending key order.
type BucketTable struct {
	Unit    string      `json:"unit" yaml:"unit"`
	Columns []string    `json:"columns" yaml:"columns"`
	Buckets []BucketRow `json:"buckets" yaml:"buckets"`
	Skipped int         `json:"skipped" yaml:"skipped"`
}

// Buckets averages cols per time bucket of ts. Rows with a missing timestamp
// are skipped and counted; a malformed timestamp fails the aggregation.
func Buckets(ts *table.Column, cols []*table.Column, unit string, layouts []string) (*BucketTable, error) {
	if _, err := bucketKey(time.Time{}, unit); err != nil {
		return nil, err
	}
	times, ok, err := Times(ts, layouts)
	if err != nil {
		return nil, err
	}
	out := &BucketTable{Unit: unit}
	for _, c := range cols {
		out.Columns = append(out.Columns, c.Name)
	}
	type acc struct {
		rows int
		sum  map[string]float64
		cnt  map[string]int
	}
	groups := map[string]*acc{}
	for i := range times {
		if !ok[i] {
			out.Skipped++
			continue
		}
		key, _ := bucketKey(times[i], unit)
		g := groups[key]
		if g == nil {
			g = &acc{sum: map[string]float64{}, cnt: map[string]int{}}
			groups[key] = g
		}
		g.rows++
		for _, c := range cols {
			cell := c.Cells[i]
			if cell.Missing {
				continue
			}
			g.sum[c.Name] += cell.Num
			g.cnt[c.Name]++
		}
	}
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		g := groups[k]
		row := BucketRow{Key: k, Rows: g.rows, Means: map[string]float64{}, Counts: g.cnt}
		for name, s := range g.sum {
			row.Means[name] = s / float64(g.cnt[name])
		}
		out.Buckets = append(out.Buckets, row)
	}
	return out, nil
}

// ImpactGroup is the mean of each column for one cleaning-flag value.
type ImpactGroup struct {
	Flag  string             `json:"flag" yaml:"flag"`
	Rows  int                `json:"rows" yaml:"rows"`
	Means map[string]float64 `json:"means" yaml:"means"`
}

// ImpactTable compares column means across cleaning-flag values.
type ImpactTable struct {
	Flag    string        `json:"flag" yaml:"flag"`
	Columns []string      `json:"columns" yaml:"columns"`
	Groups  []ImpactGroup `json:"groups" yaml:"groups"`
}

// CleaningImpact groups rows by the flag column and averages cols per group.
// Rows with a missing flag are ignored.
func CleaningImpact(flag *table.Column, cols []*table.Column) *ImpactTable {
	out := &ImpactTable{Flag: flag.Name}
	for _, c := range cols {
		out.Columns = append(out.Columns, c.Name)
	}
	type acc struct {
		rows int
		sum  map[string]float64
		cnt  map[string]int
	}
	groups := map[float64]*acc{}
	for i, fc := range flag.Cells {
		if fc.Missing {
			continue
		}
		g := groups[fc.Num]
		if g == nil {
			g = &acc{sum: map[string]float64{}, cnt: map[string]int{}}
			groups[fc.Num] = g
		}
		g.rows++
		for _, c := range cols {
			if c.Cells[i].Missing {
				continue
			}
			g.sum[c.Name] += c.Cells[i].Num
			g.cnt[c.Name]++
		}
	}
	keys := make([]float64, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Float64s(keys)
	for _, k := range keys {
		g := groups[k]
		ig := ImpactGroup{Flag: strconv.FormatFloat(k, 'f', -1, 64), Rows: g.rows, Means: map[string]float64{}}
		for name, s := range g.sum {
			ig.Means[name] = s / float64(g.cnt[name])
		}
		out.Groups = append(out.Groups, ig)
	}
	return out
}

var compass16 = []string{"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE", "S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW"}

// WindRose counts observations per direction sector and speed band.
type WindRose struct {
	Sectors []string `json:"sectors" yaml:"sectors"`
	Bands   []string `json:"bands" yaml:"bands"`
	Counts  [][]int  `json:"counts" yaml:"counts"` // Counts[sector][band]
	Total   int      `json:"total" yaml:"total"`
	Calm    int      `json:"calm" yaml:"calm"`
}

// DefaultSpeedBands are the upper edges (m/s) of the wind rose speed bands.
var DefaultSpeedBands = []float64{2, 4, 6, 8}

// NewWindRose bins dir (degrees from north) into sectors centered on north and
// speed into bands split at edges. Rows missing either value are skipped;
// zero speed counts as calm and is kept out of the sector table.
func NewWindRose(dir, speed *table.Column, sectors int, edges []float64) (*WindRose, error) {
	if sectors < 4 || sectors > 72 {
		return nil, fmt.Errorf("sectors must be between 4 and 72, got %d", sectors)
	}
	if len(edges) == 0 {
		edges = DefaultSpeedBands
	}
	if !sort.Float64sAreSorted(edges) {
		return nil, fmt.Errorf("speed bands must be ascending: %v", edges)
	}
	rose := &WindRose{Counts: make([][]int, sectors)}
	width := 360.0 / float64(sectors)
	for s := 0; s < sectors; s++ {
		rose.Counts[s] = make([]int, len(edges)+1)
		if sectors == 16 {
			rose.Sectors = append(rose.Sectors, compass16[s])
		} else {
			rose.Sectors = append(rose.Sectors, fmt.Sprintf("%.0f°", float64(s)*width))
		}
	}
	lo := 0.0
	for _, e := range edges {
		rose.Bands = append(rose.Bands, fmt.Sprintf("%g-%g", lo, e))
		lo = e
	}
	rose.Bands = append(rose.Bands, fmt.Sprintf(">%g", lo))

	for i := range dir.Cells {
		d, v := dir.Cells[i], speed.Cells[i]
		if d.Missing || v.Missing {
			continue
		}
		rose.Total++
		if v.Num <= 0 {
			rose.Calm++
			continue
		}
		deg := math.Mod(d.Num, 360)
		if deg < 0 {
			deg += 360
		}
		sector := int(math.Floor(math.Mod(deg+width/2, 360) / width))
		if sector >= sectors {
			sector = sectors - 1
		}
		band := sort.SearchFloat64s(edges, v.Num)
		rose.Counts[sector][band]++
	}
	return rose, nil
}
