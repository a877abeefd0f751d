package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/irradiance-cli/internal/clean"
)

var (
	olInput      inputFlags
	olReport     reportFlags
	olZThreshold float64
)

var outliersCmd = &cobra.Command{
	Use:   "outliers <file>",
	Short: "List rows whose measurements exceed the |z| threshold",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := ensureConfig()
		if err != nil {
			return err
		}
		t, ccfg, err := loadTable(c, &olInput, args[0])
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("z-threshold") {
			ccfg.ZThreshold = olZThreshold
		}
		if err := ccfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		rep, err := clean.DetectOutliers(t, ccfg)
		if err != nil {
			return err
		}
		return writeReport(rep, olReport.path, olReport.format)
	},
}

func init() {
	rootCmd.AddCommand(outliersCmd)
	olInput.bind(outliersCmd)
	olReport.bind(outliersCmd, "output")
	outliersCmd.Flags().Float64Var(&olZThreshold, "z-threshold", clean.DefaultZThreshold, "|z| above which a row is reported")
}
