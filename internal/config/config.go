package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Moments fixes the mean and standard deviation used to score one column.
type Moments struct {
	Mean float64 `mapstructure:"mean" yaml:"mean"`
	Std  float64 `mapstructure:"std" yaml:"std" validate:"gt=0"`
}

// Global configuration structure.
type Global struct {
	// Column layout of the station export
	Columns          []string `mapstructure:"columns" yaml:"columns" validate:"required,min=1,dive,required"`
	TimestampColumn  string   `mapstructure:"timestamp_column" yaml:"timestamp_column"`
	CleaningColumn   string   `mapstructure:"cleaning_column" yaml:"cleaning_column"`
	AnnotationColumn string   `mapstructure:"annotation_column" yaml:"annotation_column"`

	// Outlier scoring
	ZThreshold float64            `mapstructure:"z_threshold" yaml:"z_threshold" validate:"gt=0"`
	Reference  map[string]Moments `mapstructure:"reference" yaml:"reference,omitempty" validate:"dive"`

	// Input/output
	Delimiter        string   `mapstructure:"delimiter" yaml:"delimiter"`
	DecimalSeparator string   `mapstructure:"decimal_separator" yaml:"decimal_separator"`
	OutputDir        string   `mapstructure:"output_dir" yaml:"output_dir"`
	OutputSuffix     string   `mapstructure:"output_suffix" yaml:"output_suffix" validate:"required"`
	SampleRows       int      `mapstructure:"sample_rows" yaml:"sample_rows" validate:"gte=0,lte=1000"`
	TimestampLayouts []string `mapstructure:"timestamp_layouts" yaml:"timestamp_layouts,omitempty"`

	// Explore defaults
	ExploreColumns  []string `mapstructure:"explore_columns" yaml:"explore_columns"`
	Bucket          string   `mapstructure:"bucket" yaml:"bucket" validate:"omitempty,oneof=hour day month hourofday"`
	WindDirColumn   string   `mapstructure:"wind_dir_column" yaml:"wind_dir_column"`
	WindSpeedColumn string   `mapstructure:"wind_speed_column" yaml:"wind_speed_column"`
	WindSectors     int      `mapstructure:"wind_sectors" yaml:"wind_sectors" validate:"omitempty,min=4,max=72"`

	// Runtime
	BatchWorkers int    `mapstructure:"batch_workers" yaml:"batch_workers" validate:"gte=0,lte=64"`
	LogLevel     string `mapstructure:"log_level" yaml:"log_level" validate:"omitempty,oneof=debug info warn warning error"`
	LogFormat    string `mapstructure:"log_format" yaml:"log_format" validate:"omitempty,oneof=text json"`
}

// Dir returns ~/.irradiance.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".irradiance"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.irradiance/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	var path string
	if cfgFile != "" {
		path = cfgFile
	} else {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("IRRADIANCE")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("columns", []string{"GHI", "DNI", "DHI", "ModA", "ModB", "WS", "WSgust"})
	v.SetDefault("timestamp_column", "Timestamp")
	v.SetDefault("cleaning_column", "Cleaning")
	v.SetDefault("annotation_column", "Comments")
	v.SetDefault("z_threshold", 3.0)
	v.SetDefault("delimiter", "")
	v.SetDefault("decimal_separator", ".")
	v.SetDefault("output_dir", "")
	v.SetDefault("output_suffix", "_clean")
	v.SetDefault("sample_rows", 5)
	v.SetDefault("explore_columns", []string{"GHI", "DNI", "DHI", "ModA", "ModB", "Tamb", "RH", "WS"})
	v.SetDefault("bucket", "month")
	v.SetDefault("wind_dir_column", "WD")
	v.SetDefault("wind_speed_column", "WS")
	v.SetDefault("wind_sectors", 16)
	v.SetDefault("batch_workers", 4)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// optional read
		if err := v.ReadInConfig(); err != nil {
			var nf viper.ConfigFileNotFoundError
			if !errors.As(err, &nf) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	c.Columns = splitList(c.Columns)
	c.ExploreColumns = splitList(c.ExploreColumns)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// splitList accepts both YAML lists and a single comma-separated env value.
func splitList(in []string) []string {
	var out []string
	for _, s := range in {
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their YAML key.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks field constraints and the delimiter.
func (c *Global) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := ParseDelimiter(c.Delimiter); err != nil {
		return fmt.Errorf("invalid config: delimiter: %w", err)
	}
	if _, err := ParseDecimal(c.DecimalSeparator); err != nil {
		return fmt.Errorf("invalid config: decimal_separator: %w", err)
	}
	return nil
}

// ParseDelimiter maps a configured delimiter to a rune. Empty means choose by
// file extension and is returned as 0.
func ParseDelimiter(s string) (rune, error) {
	switch strings.ToLower(s) {
	case "":
		return 0, nil
	case "tab", `\t`, "\t":
		return '\t', nil
	case "comma":
		return ',', nil
	case "semicolon":
		return ';', nil
	case "pipe":
		return '|', nil
	}
	r := []rune(s)
	if len(r) != 1 || r[0] == '"' || r[0] == '\n' || r[0] == '\r' {
		return 0, fmt.Errorf("unsupported delimiter %q", s)
	}
	return r[0], nil
}

// ParseDecimal maps the decimal separator setting to a rune; "auto" (or
// empty) yields 0 so numbers are sniffed per value.
func ParseDecimal(s string) (rune, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return 0, nil
	case ".", "dot":
		return '.', nil
	case ",", "comma":
		return ',', nil
	}
	return 0, fmt.Errorf("unsupported decimal separator %q (use . , or auto)", s)
}
