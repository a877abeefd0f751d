package clean

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/irradiance-cli/internal/analysis"
	"github.com/KaramelBytes/irradiance-cli/internal/table"
)

// Stage is one step of the cleaning pipeline. Stages run in order over a
// table owned exclusively by the pipeline and record their output in res.
type Stage interface {
	Name() string
	Apply(t *table.Table, cfg Config, res *Result) error
}

// ProfileStage records column statistics and missing counts.
type ProfileStage struct{ Options analysis.Options }

func (ProfileStage) Name() string { return "profile" }

func (s ProfileStage) Apply(t *table.Table, _ Config, res *Result) error {
	res.Profile = analysis.Profile(t, s.Options)
	return nil
}

// OutlierStage records standardized-score outliers.
type OutlierStage struct{}

func (OutlierStage) Name() string { return "outliers" }

func (OutlierStage) Apply(t *table.Table, cfg Config, res *Result) error {
	rep, err := DetectOutliers(t, cfg)
	if err != nil {
		return err
	}
	res.Outliers = rep
	return nil
}

// ImputeStage fills missing designated values with column medians.
type ImputeStage struct{}

func (ImputeStage) Name() string { return "impute" }

func (ImputeStage) Apply(t *table.Table, cfg Config, res *Result) error {
	rep, err := Impute(t, cfg)
	if err != nil {
		return err
	}
	res.Imputation = rep
	return nil
}

// NormalizeStage drops the annotation column and clips negatives.
type NormalizeStage struct{}

func (NormalizeStage) Name() string { return "normalize" }

func (NormalizeStage) Apply(t *table.Table, cfg Config, res *Result) error {
	rep, err := Normalize(t, cfg)
	if err != nil {
		return err
	}
	res.Normalization = rep
	return nil
}

// StageTiming is the wall time spent in one stage.
type StageTiming struct {
	Stage    string        `json:"stage" yaml:"stage"`
	Duration time.Duration `json:"duration_ns" yaml:"duration_ns"`
}

// Result collects every report produced by one pipeline run.
type Result struct {
	RunID         string           `json:"run_id" yaml:"run_id"`
	Input         string           `json:"input,omitempty" yaml:"input,omitempty"`
	Output        string           `json:"output,omitempty" yaml:"output,omitempty"`
	Rows          int              `json:"rows" yaml:"rows"`
	Started       time.Time        `json:"started" yaml:"started"`
	Duration      time.Duration    `json:"duration_ns" yaml:"duration_ns"`
	Timings       []StageTiming    `json:"timings" yaml:"timings"`
	Profile       *analysis.Report `json:"profile,omitempty" yaml:"profile,omitempty"`
	Outliers      *OutlierReport   `json:"outliers,omitempty" yaml:"outliers,omitempty"`
	Imputation    *ImputeReport    `json:"imputation,omitempty" yaml:"imputation,omitempty"`
	Normalization *NormalizeReport `json:"normalization,omitempty" yaml:"normalization,omitempty"`
}

// Markdown renders every section the run produced.
func (r *Result) Markdown() string {
	var b strings.Builder
	b.WriteString("[RUN]\n")
	b.WriteString(fmt.Sprintf("ID: %s\n", r.RunID))
	if r.Input != "" {
		b.WriteString(fmt.Sprintf("Input: %s\n", r.Input))
	}
	if r.Output != "" {
		b.WriteString(fmt.Sprintf("Output: %s\n", r.Output))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", r.Rows))
	if r.Profile != nil {
		b.WriteString("\n")
		b.WriteString(r.Profile.Markdown())
	}
	if r.Outliers != nil {
		b.WriteString("\n")
		b.WriteString(r.Outliers.Markdown())
	}
	if r.Imputation != nil {
		b.WriteString("\n")
		b.WriteString(r.Imputation.Markdown())
	}
	if r.Normalization != nil {
		b.WriteString("\n")
		b.WriteString(r.Normalization.Markdown())
	}
	return b.String()
}

// Pipeline composes a sequence of Stages.
type Pipeline struct {
	steps  []Stage
	logger *slog.Logger
}

// NewPipeline returns an empty pipeline.
func NewPipeline() *Pipeline { return &Pipeline{} }

// DefaultPipeline returns profile, outliers, impute and normalize in that order.
func DefaultPipeline(opt analysis.Options) *Pipeline {
	return NewPipeline().
		Add(ProfileStage{Options: opt}).
		Add(OutlierStage{}).
		Add(ImputeStage{}).
		Add(NormalizeStage{})
}

// Add appends a stage.
func (p *Pipeline) Add(s Stage) *Pipeline {
	p.steps = append(p.steps, s)
	return p
}

// WithLogger sets the logger used for stage progress.
func (p *Pipeline) WithLogger(l *slog.Logger) *Pipeline {
	p.logger = l
	return p
}

// Stages returns the stage names in order.
func (p *Pipeline) Stages() []string {
	out := make([]string, len(p.steps))
	for i, s := range p.steps {
		out[i] = s.Name()
	}
	return out
}

// Run applies every stage to t in order and stops at the first failure.
func (p *Pipeline) Run(t *table.Table, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	logger := p.logger
	if logger == nil {
		logger = slog.Default()
	}
	res := &Result{RunID: uuid.NewString(), Input: t.Name, Rows: t.Len(), Started: time.Now()}
	logger = logger.With(slog.String("run_id", res.RunID), slog.String("table", t.Name))
	for _, s := range p.steps {
		start := time.Now()
		if err := s.Apply(t, cfg, res); err != nil {
			logger.Error("stage failed", slog.String("stage", s.Name()), slog.String("error", err.Error()))
			return nil, &StageError{Stage: s.Name(), Err: err}
		}
		d := time.Since(start)
		res.Timings = append(res.Timings, StageTiming{Stage: s.Name(), Duration: d})
		logger.Debug("stage complete", slog.String("stage", s.Name()), slog.Duration("duration", d))
	}
	res.Duration = time.Since(res.Started)
	return res, nil
}
