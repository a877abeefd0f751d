package cmd

import (
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/irradiance-cli/internal/analysis"
	"github.com/KaramelBytes/irradiance-cli/internal/clean"
	cfgpkg "github.com/KaramelBytes/irradiance-cli/internal/config"
	"github.com/KaramelBytes/irradiance-cli/internal/table"
)

var (
	prInput      inputFlags
	prReport     reportFlags
	prSampleRows int
)

var profileCmd = &cobra.Command{
	Use:   "profile <file>",
	Short: "Report column statistics and missing values without modifying anything",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := ensureConfig()
		if err != nil {
			return err
		}
		t, _, err := loadTable(c, &prInput, args[0])
		if err != nil {
			return err
		}
		opt := analysis.DefaultOptions()
		opt.SampleRows = c.SampleRows
		if cmd.Flags().Changed("sample-rows") {
			opt.SampleRows = prSampleRows
		}
		return writeReport(analysis.Profile(t, opt), prReport.path, prReport.format)
	},
}

// loadTable reads path with the schema implied by config and flags.
func loadTable(c *cfgpkg.Global, in *inputFlags, path string) (*table.Table, clean.Config, error) {
	ccfg := in.cleanConfig(c)
	opt, err := in.loadOptions(c)
	if err != nil {
		return nil, ccfg, err
	}
	t, err := table.Load(path, ccfg.Schema(), opt)
	if err != nil {
		return nil, ccfg, err
	}
	return t, ccfg, nil
}

func init() {
	rootCmd.AddCommand(profileCmd)
	prInput.bind(profileCmd)
	prReport.bind(profileCmd, "output")
	profileCmd.Flags().IntVar(&prSampleRows, "sample-rows", 5, "number of sample rows to include")
}
