package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/irradiance-cli/internal/clean"
	"github.com/KaramelBytes/irradiance-cli/internal/explore"
	"github.com/KaramelBytes/irradiance-cli/internal/logging"
	"github.com/KaramelBytes/irradiance-cli/internal/utils"
)

var (
	exInput   inputFlags
	exReport  reportFlags
	exColumns []string
	exBucket  string
	exSectors int
	exBands   []float64
	exCSV     string
	exRaw     bool
)

var exploreCmd = &cobra.Command{
	Use:   "explore <file>",
	Short: "Compute correlations, time-bucket means, cleaning impact and a wind rose",
	Long: `Explore computes the numbers behind the usual station charts. The table is cleaned
in memory first (nothing is written) unless --raw is given.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := ensureConfig()
		if err != nil {
			return err
		}
		t, ccfg, err := loadTable(c, &exInput, args[0])
		if err != nil {
			return err
		}
		if !exRaw {
			if err := ccfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			p := clean.NewPipeline().
				Add(clean.ImputeStage{}).
				Add(clean.NormalizeStage{}).
				WithLogger(logging.Component(logger, "explore"))
			if _, err := p.Run(t, ccfg); err != nil {
				return err
			}
		}

		opt := explore.Options{
			Columns:         c.ExploreColumns,
			TimestampColumn: c.TimestampColumn,
			FlagColumn:      c.CleaningColumn,
			DirColumn:       c.WindDirColumn,
			SpeedColumn:     c.WindSpeedColumn,
			Bucket:          c.Bucket,
			Layouts:         c.TimestampLayouts,
			Sectors:         c.WindSectors,
			SpeedBands:      exBands,
		}
		if len(exColumns) > 0 {
			opt.Columns = exColumns
		}
		if exBucket != "" {
			opt.Bucket = strings.ToLower(exBucket)
		}
		if cmd.Flags().Changed("sectors") {
			opt.Sectors = exSectors
		}
		rep, err := explore.Explore(t, opt)
		if err != nil {
			return err
		}

		if exCSV != "" {
			var buf bytes.Buffer
			if err := rep.WriteCSV(&buf, exCSV); err != nil {
				return err
			}
			if exReport.path == "" {
				_, err := os.Stdout.Write(buf.Bytes())
				return err
			}
			if err := utils.EnsureDir(filepath.Dir(exReport.path)); err != nil {
				return err
			}
			if err := utils.SafeWriteFile(exReport.path, buf.Bytes()); err != nil {
				return err
			}
			fmt.Printf("✓ Wrote %s table to %s\n", exCSV, exReport.path)
			return nil
		}
		return writeReport(rep, exReport.path, exReport.format)
	},
}

func init() {
	rootCmd.AddCommand(exploreCmd)
	exInput.bind(exploreCmd)
	exReport.bind(exploreCmd, "output")
	exploreCmd.Flags().StringSliceVar(&exColumns, "explore-columns", nil, "numeric columns to aggregate (overrides config)")
	exploreCmd.Flags().StringVar(&exBucket, "bucket", "", "time bucket: hour|day|month|hourofday (overrides config)")
	exploreCmd.Flags().IntVar(&exSectors, "sectors", 16, "wind rose direction sectors")
	exploreCmd.Flags().Float64SliceVar(&exBands, "speed-bands", nil, "wind speed band upper edges in m/s (default 2,4,6,8)")
	exploreCmd.Flags().StringVar(&exCSV, "csv", "", "emit one section as CSV: corr|buckets|impact|windrose")
	exploreCmd.Flags().BoolVar(&exRaw, "raw", false, "aggregate the table as loaded, without imputation and clipping")
}
