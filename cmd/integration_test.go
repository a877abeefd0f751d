package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var stationCSV = strings.Join([]string{
	"Timestamp,GHI,DNI,DHI,ModA,ModB,WS,WSgust,WD,Cleaning,Comments",
	"2021-08-09 06:00,10,1,2,48,47,1.0,1.5,10,0,",
	"2021-08-09 06:01,20,2,3,52,51,1.2,1.7,20,0,",
	"2021-08-09 06:02,30,3,4,50,49,1.1,1.6,30,0,",
	"2021-08-09 06:03,,4,5,49,48,-2.5,1.9,40,1,sensor glitch",
	"2021-08-09 06:04,50,5,6,51,50,1.3,1.8,50,0,",
	"2021-08-09 07:05,60,6,7,55,52,1.4,2.0,60,0,",
	"2021-08-09 07:06,70,7,8,50,49,1.0,1.4,70,1,",
	"2021-08-09 07:07,80,8,9,47,46,0.9,1.2,80,0,",
	"2021-08-09 07:08,90,9,10,53,52,1.5,2.2,90,0,",
	"2021-08-09 07:09,100,10,11,50,49,1.6,2.3,100,0,",
}, "\n") + "\n"

// resetFlags restores every flag of c to its default so package-level flag
// variables do not leak between invocations.
func resetFlags(c *cobra.Command) {
	reset := func(fl *pflag.Flag) {
		if sv, ok := fl.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = fl.Value.Set(fl.DefValue)
		}
		fl.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// isolate points HOME at a temp dir and drops any loaded config.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	cfg = nil
	cfgFile = ""
	return home
}

// runCmd is a helper to execute the root command with args.
func runCmd(t *testing.T, args ...string) {
	t.Helper()
	if err := execCmd(args...); err != nil {
		t.Fatalf("command %v failed: %v", args, err)
	}
}

func execCmd(args ...string) error {
	resetFlags(rootCmd)
	cfg = nil
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func writeStation(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(stationCSV), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestCLI_CleanWritesOutputReportAndMetrics(t *testing.T) {
	home := isolate(t)
	in := writeStation(t, home, "benin.csv")
	out := filepath.Join(home, "out", "benin_clean.csv")
	report := filepath.Join(home, "out", "benin.report.json")
	prom := filepath.Join(home, "out", "benin.prom")

	runCmd(t, "clean", in, "-o", out, "--report", report, "--report-format", "json", "--metrics-file", prom, "-q")

	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	if len(lines) != 11 {
		t.Fatalf("expected header + 10 rows, got %d lines", len(lines))
	}
	if strings.Contains(lines[0], "Comments") {
		t.Fatalf("annotation column should be dropped: %s", lines[0])
	}
	// Row 4: GHI imputed with the median of the other nine, WS clipped.
	if !strings.HasPrefix(lines[4], "2021-08-09 06:03,60,4,5,49,48,0,1.9,40,1") {
		t.Fatalf("unexpected cleaned row: %s", lines[4])
	}
	// Untouched rows are byte-for-byte.
	if lines[1] != "2021-08-09 06:00,10,1,2,48,47,1.0,1.5,10,0" {
		t.Fatalf("untouched row changed: %s", lines[1])
	}

	rb, err := os.ReadFile(report)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var rep map[string]any
	if err := json.Unmarshal(rb, &rep); err != nil {
		t.Fatalf("report is not json: %v", err)
	}
	if rep["run_id"] == "" || rep["imputation"] == nil {
		t.Fatalf("report missing fields: %v", rep)
	}

	mb, err := os.ReadFile(prom)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	if !strings.Contains(string(mb), `irradiance_imputed_cells{column="GHI",input="benin.csv"} 1`) {
		t.Fatalf("metrics missing imputed count:\n%s", mb)
	}
}

func TestCLI_CleanRejectsOutputOntoInput(t *testing.T) {
	home := isolate(t)
	in := writeStation(t, home, "benin.csv")
	if err := execCmd("clean", in, "-o", in, "-q"); err == nil {
		t.Fatal("expected error when output equals input")
	}
	b, _ := os.ReadFile(in)
	if string(b) != stationCSV {
		t.Fatal("input file was modified")
	}
}

func TestCLI_CleanMissingColumnFails(t *testing.T) {
	home := isolate(t)
	in := filepath.Join(home, "partial.csv")
	if err := os.WriteFile(in, []byte("Timestamp,GHI\n2021-08-09 06:00,1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	err := execCmd("clean", in, "-q")
	if err == nil || !strings.Contains(err.Error(), "missing required columns") {
		t.Fatalf("expected missing columns error, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(home, "partial_clean.csv")); !os.IsNotExist(statErr) {
		t.Fatal("no output should be written when load fails")
	}
}

func TestCLI_CleanBatch(t *testing.T) {
	home := isolate(t)
	d := filepath.Join(home, "raw")
	if err := os.MkdirAll(d, 0o755); err != nil {
		t.Fatal(err)
	}
	writeStation(t, d, "benin.csv")
	writeStation(t, d, "togo.csv")
	writeStation(t, d, "sierraleone.csv")
	outDir := filepath.Join(home, "clean")
	reports := filepath.Join(home, "reports")

	runCmd(t, "clean-batch", filepath.Join(d, "*.csv"), "--output-dir", outDir, "--report-dir", reports, "--workers", "2", "-q")

	for _, name := range []string{"benin", "togo", "sierraleone"} {
		if _, err := os.Stat(filepath.Join(outDir, name+"_clean.csv")); err != nil {
			t.Fatalf("missing cleaned %s: %v", name, err)
		}
		body, err := os.ReadFile(filepath.Join(reports, name+".report.md"))
		if err != nil {
			t.Fatalf("missing report for %s: %v", name, err)
		}
		if !strings.Contains(string(body), "[IMPUTATION]") {
			t.Fatalf("report for %s lacks imputation section", name)
		}
	}
}

func TestCLI_CleanBatchRejectsOutputOntoAnotherInput(t *testing.T) {
	home := isolate(t)
	a := writeStation(t, home, "benin.csv")
	aClean := writeStation(t, home, "benin_clean.csv")

	err := execCmd("clean-batch", a, aClean, "--workers", "1", "-q")
	if err == nil || !strings.Contains(err.Error(), "would overwrite input") {
		t.Fatalf("expected overwrite rejection, got %v", err)
	}
	b, err := os.ReadFile(aClean)
	if err != nil {
		t.Fatalf("read %s: %v", aClean, err)
	}
	if string(b) != stationCSV {
		t.Fatal("input benin_clean.csv was modified")
	}
	if _, statErr := os.Stat(filepath.Join(home, "benin_clean_clean.csv")); !os.IsNotExist(statErr) {
		t.Fatal("no file of the batch should be cleaned after the rejection")
	}
}

func TestCLI_ProfileOutliersExplore(t *testing.T) {
	home := isolate(t)
	in := writeStation(t, home, "benin.csv")

	prof := filepath.Join(home, "profile.md")
	runCmd(t, "profile", in, "--output", prof)
	body, err := os.ReadFile(prof)
	if err != nil {
		t.Fatalf("read profile: %v", err)
	}
	for _, want := range []string{"[DATASET SUMMARY]", "[MISSING VALUES]"} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("profile lacks %s", want)
		}
	}

	ol := filepath.Join(home, "outliers.yaml")
	runCmd(t, "outliers", in, "--output", ol, "--report-format", "yaml", "--z-threshold", "2.5")
	if _, err := os.Stat(ol); err != nil {
		t.Fatalf("outliers report missing: %v", err)
	}

	buckets := filepath.Join(home, "hourly.csv")
	runCmd(t, "explore", in, "--bucket", "hour", "--csv", "buckets", "--output", buckets)
	bb, err := os.ReadFile(buckets)
	if err != nil {
		t.Fatalf("read buckets: %v", err)
	}
	rows := strings.Split(strings.TrimSpace(string(bb)), "\n")
	if len(rows) != 3 || !strings.HasPrefix(rows[1], "2021-08-09 06:00,5,") {
		t.Fatalf("unexpected hourly buckets:\n%s", bb)
	}
}

func TestCLI_ConfigSetAndShow(t *testing.T) {
	home := isolate(t)
	runCmd(t, "config", "set", "z_threshold", "2.5")
	runCmd(t, "config", "set", "reference.ModA", "50,10")
	b, err := os.ReadFile(filepath.Join(home, ".irradiance", "config.yaml"))
	if err != nil {
		t.Fatalf("config not saved: %v", err)
	}
	if !strings.Contains(string(b), "z_threshold: 2.5") {
		t.Fatalf("z_threshold not persisted:\n%s", b)
	}
	runCmd(t, "config", "show")
	if err := execCmd("config", "set", "bucket", "fortnight"); err == nil {
		t.Fatal("invalid bucket should be rejected")
	}
	if err := execCmd("config", "set", "nope", "1"); err == nil {
		t.Fatal("unknown key should be rejected")
	}
}
