package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/irradiance-cli/internal/clean"
	"github.com/KaramelBytes/irradiance-cli/internal/metrics"
	"github.com/KaramelBytes/irradiance-cli/internal/table"
)

var (
	cbInput       inputFlags
	cbOutputDir   string
	cbReportDir   string
	cbReportFmt   string
	cbOutDelim    string
	cbZThreshold  float64
	cbSampleRows  int
	cbWorkers     int
	cbMetricsFile string
	cbQuiet       bool
)

var cleanBatchCmd = &cobra.Command{
	Use:   "clean-batch <files...>",
	Short: "Clean several CSV/TSV/XLSX files concurrently",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := ensureConfig()
		if err != nil {
			return err
		}
		files, err := expandInputs(args)
		if err != nil {
			return err
		}
		ccfg, ropt, err := cleanSetup(cmd, c, &cbInput, cbZThreshold, cbSampleRows, cbOutDelim, "")
		if err != nil {
			return err
		}
		outDir := c.OutputDir
		if cbOutputDir != "" {
			outDir = cbOutputDir
		}
		workers := c.BatchWorkers
		if cmd.Flags().Changed("workers") {
			workers = cbWorkers
		}
		if workers <= 0 {
			workers = 1
		}

		// Outputs must not collide when inputs share a base name.
		outputs := make([]string, len(files))
		taken := map[string]string{}
		for i, in := range files {
			out := defaultOutputPath(in, outDir, c.OutputSuffix)
			key := strings.ToLower(filepath.Clean(out))
			if prev, dup := taken[key]; dup {
				return fmt.Errorf("%s and %s would both write %s; set distinct directories or drop --output-dir", prev, in, out)
			}
			taken[key] = in
			outputs[i] = out
		}
		// No output may land on any input of the batch.
		for i, out := range outputs {
			for _, in := range files {
				if table.SameFile(in, out) {
					return fmt.Errorf("%s would overwrite input %s: %w", files[i], in, table.ErrSameFile)
				}
			}
		}

		results := make([]*clean.Result, len(files))
		var mu sync.Mutex
		done := 0
		g, ctx := errgroup.WithContext(context.Background())
		g.SetLimit(workers)
		for i := range files {
			i := i
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				res, err := clean.Run(ccfg, files[i], outputs[i], ropt)
				if err != nil {
					return fmt.Errorf("%s: %w", filepath.Base(files[i]), err)
				}
				results[i] = res
				if !cbQuiet {
					mu.Lock()
					done++
					fmt.Printf("[%d/%d] ✓ %s → %s (%d rows, %d imputed, %d clipped)\n",
						done, len(files), filepath.Base(files[i]), outputs[i], res.Rows,
						res.Imputation.Total(), res.Normalization.Total())
					mu.Unlock()
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		if cbReportDir != "" {
			ext := map[string]string{"json": ".json", "yaml": ".yaml", "yml": ".yaml"}[strings.ToLower(cbReportFmt)]
			if ext == "" {
				ext = ".md"
			}
			for i, res := range results {
				base := strings.TrimSuffix(filepath.Base(files[i]), filepath.Ext(files[i]))
				path := filepath.Join(cbReportDir, base+".report"+ext)
				if err := writeReport(res, path, cbReportFmt); err != nil {
					return err
				}
			}
		}
		if cbMetricsFile != "" {
			if err := metrics.WriteTextfile(cbMetricsFile, results...); err != nil {
				return err
			}
			fmt.Printf("✓ Wrote metrics to %s\n", cbMetricsFile)
		}
		if !cbQuiet {
			fmt.Printf("✓ Cleaned %d files\n", len(files))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cleanBatchCmd)
	cbInput.bind(cleanBatchCmd)
	cleanBatchCmd.Flags().StringVar(&cbOutputDir, "output-dir", "", "directory for cleaned files (default: next to each input)")
	cleanBatchCmd.Flags().StringVar(&cbReportDir, "report-dir", "", "write one report per input into this directory")
	cleanBatchCmd.Flags().StringVar(&cbReportFmt, "report-format", "md", "report format: md|json|yaml")
	cleanBatchCmd.Flags().StringVar(&cbOutDelim, "out-delimiter", "", "output delimiter for CSV (default: same as input)")
	cleanBatchCmd.Flags().Float64Var(&cbZThreshold, "z-threshold", clean.DefaultZThreshold, "|z| above which a row is reported as an outlier")
	cleanBatchCmd.Flags().IntVar(&cbSampleRows, "sample-rows", 5, "number of sample rows in each profile")
	cleanBatchCmd.Flags().IntVar(&cbWorkers, "workers", 4, "maximum files cleaned concurrently (overrides config)")
	cleanBatchCmd.Flags().StringVar(&cbMetricsFile, "metrics-file", "", "write Prometheus text-format run metrics to this file")
	cleanBatchCmd.Flags().BoolVarP(&cbQuiet, "quiet", "q", false, "suppress progress lines")
}
