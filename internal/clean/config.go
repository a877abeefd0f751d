package clean

import (
	"errors"
	"fmt"
	"strings"

	"github.com/KaramelBytes/irradiance-cli/internal/table"
)

// DefaultColumns are the measurement columns cleaned when none are configured.
var DefaultColumns = []string{"GHI", "DNI", "DHI", "ModA", "ModB", "WS", "WSgust"}

// DefaultZThreshold is the |z| above which an observation is an outlier.
const DefaultZThreshold = 3.0

// Moments are the mean and standard deviation used to standardize a column.
type Moments struct {
	Mean float64 `json:"mean" yaml:"mean"`
	Std  float64 `json:"std" yaml:"std"`
}

// Config names the designated columns and the knobs of every stage. It is
// passed to each stage explicitly.
type Config struct {
	// Columns are the designated numeric measurement columns.
	Columns []string
	// TimestampColumn and FlagColumn are required on load but never modified.
	TimestampColumn string
	FlagColumn      string
	// AnnotationColumn is dropped by the normalizer when present.
	AnnotationColumn string
	// ZThreshold flags |z| strictly greater than this value.
	ZThreshold float64
	// Reference replaces a column's own moments when scoring outliers.
	Reference map[string]Moments
}

// DefaultConfig returns the configuration for the standard station export.
func DefaultConfig() Config {
	return Config{
		Columns:          append([]string(nil), DefaultColumns...),
		TimestampColumn:  "Timestamp",
		FlagColumn:       "Cleaning",
		AnnotationColumn: "Comments",
		ZThreshold:       DefaultZThreshold,
	}
}

// Schema returns the load-time schema implied by cfg.
func (c Config) Schema() table.Schema {
	return table.Schema{Timestamp: c.TimestampColumn, Flag: c.FlagColumn, Numeric: c.Columns}
}

// Validate checks that cfg is usable.
func (c Config) Validate() error {
	if len(c.Columns) == 0 {
		return errors.New("no designated columns configured")
	}
	seen := map[string]struct{}{}
	for _, name := range c.Columns {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			return errors.New("designated column name is empty")
		}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("designated column %s listed twice", name)
		}
		seen[key] = struct{}{}
		if strings.EqualFold(name, c.AnnotationColumn) {
			return fmt.Errorf("designated column %s is also the annotation column", name)
		}
	}
	if c.ZThreshold <= 0 {
		return fmt.Errorf("z threshold must be positive, got %g", c.ZThreshold)
	}
	for name, m := range c.Reference {
		if m.Std <= 0 {
			return fmt.Errorf("reference std for %s must be positive, got %g", name, m.Std)
		}
	}
	return nil
}

func (c Config) threshold() float64 {
	if c.ZThreshold <= 0 {
		return DefaultZThreshold
	}
	return c.ZThreshold
}

func (c Config) reference(name string) (Moments, bool) {
	for k, m := range c.Reference {
		if strings.EqualFold(k, name) {
			return m, true
		}
	}
	return Moments{}, false
}

// designated resolves the configured columns against t. Load has already
// guaranteed their presence; a missing one here means the table was built
// with a different schema.
func (c Config) designated(t *table.Table) ([]*table.Column, error) {
	cols := make([]*table.Column, 0, len(c.Columns))
	var missing []string
	for _, name := range c.Columns {
		col, ok := t.Column(name)
		if !ok {
			missing = append(missing, name)
			continue
		}
		if !col.Numeric() {
			return nil, fmt.Errorf("designated column %s is %s, not numeric", col.Name, col.Kind)
		}
		cols = append(cols, col)
	}
	if len(missing) > 0 {
		return nil, &table.MissingColumnsError{File: t.Name, Missing: missing}
	}
	return cols, nil
}
