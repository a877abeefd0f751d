package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/irradiance-cli/internal/analysis"
	"github.com/KaramelBytes/irradiance-cli/internal/clean"
	cfgpkg "github.com/KaramelBytes/irradiance-cli/internal/config"
	"github.com/KaramelBytes/irradiance-cli/internal/logging"
	"github.com/KaramelBytes/irradiance-cli/internal/metrics"
	"github.com/KaramelBytes/irradiance-cli/internal/table"
)

var (
	clInput       inputFlags
	clReport      reportFlags
	clOutput      string
	clOutDelim    string
	clOutSheet    string
	clZThreshold  float64
	clSampleRows  int
	clMetricsFile string
	clQuiet       bool
)

var cleanCmd = &cobra.Command{
	Use:   "clean <file>",
	Short: "Profile, flag outliers, impute, normalize and export a cleaned copy",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := ensureConfig()
		if err != nil {
			return err
		}
		in := args[0]
		out := clOutput
		if out == "" {
			out = defaultOutputPath(in, c.OutputDir, c.OutputSuffix)
		}
		ccfg, ropt, err := cleanSetup(cmd, c, &clInput, clZThreshold, clSampleRows, clOutDelim, clOutSheet)
		if err != nil {
			return err
		}

		res, err := clean.Run(ccfg, in, out, ropt)
		if err != nil {
			return err
		}
		if !clQuiet {
			printSummary(res)
		}
		if clReport.path != "" || !clQuiet {
			if err := writeReport(res, clReport.path, clReport.format); err != nil {
				return err
			}
		}
		if clMetricsFile != "" {
			if err := metrics.WriteTextfile(clMetricsFile, res); err != nil {
				return err
			}
			fmt.Printf("✓ Wrote metrics to %s\n", clMetricsFile)
		}
		return nil
	},
}

// cleanSetup builds the pipeline config and run options from config and flags.
func cleanSetup(cmd *cobra.Command, c *cfgpkg.Global, in *inputFlags, z float64, sampleRows int, outDelim, outSheet string) (clean.Config, clean.RunOptions, error) {
	ccfg := in.cleanConfig(c)
	if cmd.Flags().Changed("z-threshold") {
		ccfg.ZThreshold = z
	}
	if err := ccfg.Validate(); err != nil {
		return ccfg, clean.RunOptions{}, fmt.Errorf("invalid config: %w", err)
	}
	lopt, err := in.loadOptions(c)
	if err != nil {
		return ccfg, clean.RunOptions{}, err
	}
	sopt := table.SaveOptions{Sheet: outSheet}
	if outDelim != "" {
		d, err := cfgpkg.ParseDelimiter(outDelim)
		if err != nil {
			return ccfg, clean.RunOptions{}, fmt.Errorf("unsupported --out-delimiter: %w", err)
		}
		sopt.Delimiter = d
	} else {
		sopt.Delimiter = lopt.Delimiter
	}
	popt := analysis.DefaultOptions()
	popt.SampleRows = c.SampleRows
	if cmd.Flags().Changed("sample-rows") {
		popt.SampleRows = sampleRows
	}
	return ccfg, clean.RunOptions{
		Load:    lopt,
		Save:    sopt,
		Profile: popt,
		Logger:  logging.Component(logger, "clean"),
	}, nil
}

func printSummary(res *clean.Result) {
	fmt.Printf("✓ Cleaned %s → %s (%d rows)\n", filepath.Base(res.Input), res.Output, res.Rows)
	if res.Outliers != nil && len(res.Outliers.Rows) > 0 {
		fmt.Printf("⚠ %d rows exceed |z| > %.1f (kept in output)\n", len(res.Outliers.Rows), res.Outliers.Threshold)
	}
	if res.Imputation != nil {
		fmt.Printf("  imputed cells: %d\n", res.Imputation.Total())
	}
	if res.Normalization != nil {
		fmt.Printf("  clipped cells: %d\n", res.Normalization.Total())
		if res.Normalization.Dropped {
			fmt.Printf("  dropped column: %s\n", res.Normalization.Annotation)
		}
	}
}

func init() {
	rootCmd.AddCommand(cleanCmd)
	clInput.bind(cleanCmd)
	clReport.bind(cleanCmd, "report")
	cleanCmd.Flags().StringVarP(&clOutput, "output", "o", "", "cleaned output path (default <input><output_suffix><ext>)")
	cleanCmd.Flags().StringVar(&clOutDelim, "out-delimiter", "", "output delimiter for CSV (default: same as input)")
	cleanCmd.Flags().StringVar(&clOutSheet, "out-sheet", "", "XLSX output: sheet name")
	cleanCmd.Flags().Float64Var(&clZThreshold, "z-threshold", clean.DefaultZThreshold, "|z| above which a row is reported as an outlier")
	cleanCmd.Flags().IntVar(&clSampleRows, "sample-rows", 5, "number of sample rows in the profile")
	cleanCmd.Flags().StringVar(&clMetricsFile, "metrics-file", "", "write Prometheus text-format run metrics to this file")
	cleanCmd.Flags().BoolVarP(&clQuiet, "quiet", "q", false, "suppress the summary and stdout report")
}
