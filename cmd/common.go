package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/irradiance-cli/internal/clean"
	cfgpkg "github.com/KaramelBytes/irradiance-cli/internal/config"
	"github.com/KaramelBytes/irradiance-cli/internal/table"
	"github.com/KaramelBytes/irradiance-cli/internal/utils"
)

// inputFlags are the read options shared by every command that loads a table.
type inputFlags struct {
	delimiter  string
	decimal    string
	thousands  string
	sheetName  string
	sheetIndex int
	columns    []string
}

func (f *inputFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.delimiter, "delimiter", "", "input delimiter: ',' | ';' | 'tab' | 'pipe' (default by extension)")
	cmd.Flags().StringVar(&f.decimal, "decimal", "", "decimal separator for numbers: '.'|'comma'|'auto' (overrides config)")
	cmd.Flags().StringVar(&f.thousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space'")
	cmd.Flags().StringVar(&f.sheetName, "sheet-name", "", "XLSX: sheet name to read")
	cmd.Flags().IntVar(&f.sheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
	cmd.Flags().StringSliceVar(&f.columns, "columns", nil, "designated measurement columns (overrides config)")
}

// reportFlags select where and how a command's report is written.
type reportFlags struct {
	path   string
	format string
}

func (f *reportFlags) bind(cmd *cobra.Command, name string) {
	cmd.Flags().StringVar(&f.path, name, "", "write the report to this file instead of stdout")
	cmd.Flags().StringVar(&f.format, "report-format", "md", "report format: md|json|yaml")
}

// ensureConfig loads the configuration if the root hook has not.
func ensureConfig() (*cfgpkg.Global, error) {
	if cfg != nil {
		return cfg, nil
	}
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	cfg = c
	return cfg, nil
}

// loadOptions merges config and flags into table read options.
func (f *inputFlags) loadOptions(c *cfgpkg.Global) (table.Options, error) {
	opt := table.DefaultOptions()
	delim := c.Delimiter
	if f.delimiter != "" {
		delim = f.delimiter
	}
	d, err := cfgpkg.ParseDelimiter(delim)
	if err != nil {
		return opt, fmt.Errorf("unsupported --delimiter: %w", err)
	}
	opt.Delimiter = d

	dec := c.DecimalSeparator
	if f.decimal != "" {
		dec = f.decimal
	}
	r, err := cfgpkg.ParseDecimal(dec)
	if err != nil {
		return opt, fmt.Errorf("unsupported --decimal: %w", err)
	}
	opt.DecimalSeparator = r

	switch strings.ToLower(strings.TrimSpace(f.thousands)) {
	case ",":
		opt.ThousandsSeparator = ','
	case ".":
		opt.ThousandsSeparator = '.'
	case "space", " ":
		opt.ThousandsSeparator = ' '
	case "":
	default:
		return opt, fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", f.thousands)
	}
	opt.Sheet = f.sheetName
	opt.SheetIndex = f.sheetIndex
	return opt, nil
}

// cleanConfig converts the global configuration into the pipeline's config.
func (f *inputFlags) cleanConfig(c *cfgpkg.Global) clean.Config {
	out := clean.Config{
		Columns:          append([]string(nil), c.Columns...),
		TimestampColumn:  c.TimestampColumn,
		FlagColumn:       c.CleaningColumn,
		AnnotationColumn: c.AnnotationColumn,
		ZThreshold:       c.ZThreshold,
	}
	if len(f.columns) > 0 {
		out.Columns = append([]string(nil), f.columns...)
	}
	if len(c.Reference) > 0 {
		out.Reference = make(map[string]clean.Moments, len(c.Reference))
		for name, m := range c.Reference {
			out.Reference[name] = clean.Moments{Mean: m.Mean, Std: m.Std}
		}
	}
	return out
}

// defaultOutputPath places <base><suffix><ext> next to the input, or under
// dir when set.
func defaultOutputPath(in, dir, suffix string) string {
	ext := filepath.Ext(in)
	base := strings.TrimSuffix(filepath.Base(in), ext)
	if dir == "" {
		dir = filepath.Dir(in)
	}
	return filepath.Join(dir, base+suffix+ext)
}

type markdowner interface{ Markdown() string }

// renderReport encodes v in the requested format.
func renderReport(v markdowner, format string) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "md", "markdown":
		return []byte(v.Markdown()), nil
	case "json":
		return utils.PrettyJSON(v)
	case "yaml", "yml":
		return utils.YAML(v)
	default:
		return nil, fmt.Errorf("unsupported report format: %s (use md|json|yaml)", format)
	}
}

// writeReport prints the report to stdout, or writes it to path.
func writeReport(v markdowner, path, format string) error {
	b, err := renderReport(v, format)
	if err != nil {
		return err
	}
	if path == "" {
		fmt.Print(string(b))
		if len(b) > 0 && b[len(b)-1] != '\n' {
			fmt.Println()
		}
		return nil
	}
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	if err := utils.SafeWriteFile(path, b); err != nil {
		return err
	}
	fmt.Printf("✓ Wrote report to %s\n", path)
	return nil
}

// expandInputs resolves globs, falling back to literal paths that exist.
func expandInputs(args []string) ([]string, error) {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			// treat as literal path if exists
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no input files matched")
	}
	sort.Strings(files)
	return files, nil
}
