package clean

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/KaramelBytes/irradiance-cli/internal/analysis"
	"github.com/KaramelBytes/irradiance-cli/internal/table"
)

// RunOptions controls a file-to-file cleaning run.
type RunOptions struct {
	Load     table.Options
	Save     table.SaveOptions
	Profile  analysis.Options
	Logger   *slog.Logger
	Pipeline *Pipeline
}

// Run loads in, applies the pipeline and writes the cleaned table to out.
// The input file is never modified; out must name a different file.
func Run(cfg Config, in, out string, opt RunOptions) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if table.SameFile(in, out) {
		return nil, fmt.Errorf("%s: %w", out, table.ErrSameFile)
	}
	logger := opt.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "clean"))

	t, err := table.Load(in, cfg.Schema(), opt.Load)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", filepath.Base(in), err)
	}
	logger.Info("loaded table",
		slog.String("input", in),
		slog.Int("rows", t.Len()),
		slog.Int("columns", len(t.Columns)))

	p := opt.Pipeline
	if p == nil {
		p = DefaultPipeline(opt.Profile)
	}
	if p.logger == nil {
		p = &Pipeline{steps: p.steps, logger: logger}
	}
	res, err := p.Run(t, cfg)
	if err != nil {
		return nil, err
	}

	if err := table.Save(t, out, opt.Save); err != nil {
		return nil, fmt.Errorf("export %s: %w", filepath.Base(out), err)
	}
	res.Input = in
	res.Output = out
	attrs := []any{
		slog.String("run_id", res.RunID),
		slog.String("output", out),
		slog.Int("rows", t.Len()),
		slog.Duration("duration", res.Duration),
	}
	if res.Outliers != nil {
		attrs = append(attrs, slog.Int("outlier_rows", len(res.Outliers.Rows)))
	}
	if res.Imputation != nil {
		attrs = append(attrs, slog.Int("imputed", res.Imputation.Total()))
	}
	if res.Normalization != nil {
		attrs = append(attrs, slog.Int("clipped", res.Normalization.Total()))
	}
	logger.Info("wrote cleaned table", attrs...)
	return res, nil
}
