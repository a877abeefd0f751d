package cmd

import (
	"fmt"
	"strconv"
	"strings"

	cfgpkg "github.com/KaramelBytes/irradiance-cli/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set Irradiance configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := ensureConfig()
		if err != nil {
			return err
		}
		fmt.Printf("columns: %s\n", strings.Join(c.Columns, ","))
		fmt.Printf("timestamp_column: %s\n", c.TimestampColumn)
		fmt.Printf("cleaning_column: %s\n", c.CleaningColumn)
		fmt.Printf("annotation_column: %s\n", c.AnnotationColumn)
		fmt.Printf("z_threshold: %.3f\n", c.ZThreshold)
		for name, m := range c.Reference {
			fmt.Printf("reference.%s: mean=%g std=%g\n", name, m.Mean, m.Std)
		}
		if c.Delimiter != "" {
			fmt.Printf("delimiter: %q\n", c.Delimiter)
		}
		fmt.Printf("decimal_separator: %s\n", c.DecimalSeparator)
		if c.OutputDir != "" {
			fmt.Printf("output_dir: %s\n", c.OutputDir)
		}
		fmt.Printf("output_suffix: %s\n", c.OutputSuffix)
		fmt.Printf("sample_rows: %d\n", c.SampleRows)
		if len(c.TimestampLayouts) > 0 {
			fmt.Printf("timestamp_layouts: %s\n", strings.Join(c.TimestampLayouts, " | "))
		}
		fmt.Printf("explore_columns: %s\n", strings.Join(c.ExploreColumns, ","))
		fmt.Printf("bucket: %s\n", c.Bucket)
		fmt.Printf("wind: %s/%s (%d sectors)\n", c.WindDirColumn, c.WindSpeedColumn, c.WindSectors)
		fmt.Printf("batch_workers: %d\n", c.BatchWorkers)
		fmt.Printf("log_level: %s\n", c.LogLevel)
		fmt.Printf("log_format: %s\n", c.LogFormat)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		c, err := ensureConfig()
		if err != nil {
			return err
		}
		next := *c
		switch key {
		case "columns":
			next.Columns = splitCSV(val)
		case "explore_columns":
			next.ExploreColumns = splitCSV(val)
		case "timestamp_layouts":
			next.TimestampLayouts = strings.Split(val, "|")
		case "timestamp_column":
			next.TimestampColumn = val
		case "cleaning_column":
			next.CleaningColumn = val
		case "annotation_column":
			next.AnnotationColumn = val
		case "z_threshold":
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return fmt.Errorf("invalid float for z_threshold: %w", err)
			}
			next.ZThreshold = f
		case "delimiter":
			next.Delimiter = val
		case "decimal_separator":
			next.DecimalSeparator = val
		case "output_dir":
			next.OutputDir = val
		case "output_suffix":
			next.OutputSuffix = val
		case "bucket":
			next.Bucket = strings.ToLower(val)
		case "wind_dir_column":
			next.WindDirColumn = val
		case "wind_speed_column":
			next.WindSpeedColumn = val
		case "log_level":
			next.LogLevel = strings.ToLower(val)
		case "log_format":
			next.LogFormat = strings.ToLower(val)
		case "sample_rows", "batch_workers", "wind_sectors":
			i, err := strconv.Atoi(val)
			if err != nil {
				return fmt.Errorf("invalid int for %s: %w", key, err)
			}
			switch key {
			case "sample_rows":
				next.SampleRows = i
			case "batch_workers":
				next.BatchWorkers = i
			default:
				next.WindSectors = i
			}
		default:
			if name, ok := strings.CutPrefix(key, "reference."); ok && name != "" {
				m, err := parseMoments(val)
				if err != nil {
					return err
				}
				ref := make(map[string]cfgpkg.Moments, len(next.Reference)+1)
				for k, v := range next.Reference {
					ref[k] = v
				}
				ref[name] = m
				next.Reference = ref
				break
			}
			return fmt.Errorf("unknown key: %s", key)
		}
		if err := next.Validate(); err != nil {
			return err
		}
		if err := cfgpkg.Save(&next, cfgFile); err != nil {
			return err
		}
		cfg = &next
		fmt.Println("Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseMoments reads "mean,std", e.g. "50,10".
func parseMoments(s string) (cfgpkg.Moments, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return cfgpkg.Moments{}, fmt.Errorf("reference value must be mean,std: %q", s)
	}
	mean, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return cfgpkg.Moments{}, fmt.Errorf("invalid reference mean: %w", err)
	}
	std, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return cfgpkg.Moments{}, fmt.Errorf("invalid reference std: %w", err)
	}
	return cfgpkg.Moments{Mean: mean, Std: std}, nil
}
