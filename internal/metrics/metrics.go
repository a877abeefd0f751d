// Package metrics exports cleaning-run counters in the Prometheus text
// exposition format, for pickup by the node exporter textfile collector.
package metrics

import (
	"fmt"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/KaramelBytes/irradiance-cli/internal/clean"
	"github.com/KaramelBytes/irradiance-cli/internal/utils"
)

const namespace = "irradiance"

// Recorder holds the gauges for one or more cleaning runs.
type Recorder struct {
	reg      *prometheus.Registry
	rows     *prometheus.GaugeVec
	imputed  *prometheus.GaugeVec
	clipped  *prometheus.GaugeVec
	outliers *prometheus.GaugeVec
	duration *prometheus.GaugeVec
	lastRun  *prometheus.GaugeVec
}

// NewRecorder registers the run gauges on a private registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		rows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "rows",
			Help: "Rows in the cleaned table.",
		}, []string{"input"}),
		imputed: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "imputed_cells",
			Help: "Missing cells filled with the column median.",
		}, []string{"input", "column"}),
		clipped: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "clipped_cells",
			Help: "Negative cells clipped to zero.",
		}, []string{"input", "column"}),
		outliers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "outlier_rows",
			Help: "Rows with at least one value beyond the z threshold.",
		}, []string{"input"}),
		duration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "run_duration_seconds",
			Help: "Wall time of the cleaning pipeline.",
		}, []string{"input"}),
		lastRun: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "last_run_timestamp_seconds",
			Help: "Unix time the cleaning run started.",
		}, []string{"input"}),
	}
	r.reg.MustRegister(r.rows, r.imputed, r.clipped, r.outliers, r.duration, r.lastRun)
	return r
}

// Observe records the counters of one run, labelled by its input file name.
func (r *Recorder) Observe(res *clean.Result) {
	if res == nil {
		return
	}
	in := filepath.Base(res.Input)
	r.rows.WithLabelValues(in).Set(float64(res.Rows))
	r.duration.WithLabelValues(in).Set(res.Duration.Seconds())
	if !res.Started.IsZero() {
		r.lastRun.WithLabelValues(in).Set(float64(res.Started.Unix()))
	}
	if res.Outliers != nil {
		r.outliers.WithLabelValues(in).Set(float64(len(res.Outliers.Rows)))
	}
	if res.Imputation != nil {
		for _, col := range res.Imputation.Columns {
			r.imputed.WithLabelValues(in, col).Set(float64(res.Imputation.Filled[col]))
		}
	}
	if res.Normalization != nil {
		for _, col := range res.Normalization.Columns {
			r.clipped.WithLabelValues(in, col).Set(float64(res.Normalization.Clipped[col]))
		}
	}
}

// Gatherer exposes the underlying registry.
func (r *Recorder) Gatherer() prometheus.Gatherer { return r.reg }

// WriteTextfile writes the recorded gauges to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("write metrics %s: %w", path, err)
	}
	return nil
}

// WriteTextfile records every result and writes them to path.
func WriteTextfile(path string, results ...*clean.Result) error {
	r := NewRecorder()
	for _, res := range results {
		r.Observe(res)
	}
	return r.WriteTextfile(path)
}
