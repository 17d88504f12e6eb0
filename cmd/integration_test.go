package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/KaramelBytes/incidentlens/internal/config"
	"github.com/KaramelBytes/incidentlens/internal/export"
	"github.com/KaramelBytes/incidentlens/internal/views"
)

const crimesCSV = `Date Rptd,DATE OCC,TIME OCC,AREA NAME,Crm Cd Desc,Weapon Desc,Vict Age,Vict Sex,Vict Descent,Status Desc,LAT,LON
01/08/2020,01/08/2020,930,Central,THEFT,KNIFE,-5,M,H,IC,34.05,-118.25
01/09/2020,01/09/2020,1400,Central,BATTERY,,0,F,W,AO,34.10,-118.30
02/01/2020,02/01/2020,45,Hollywood,THEFT,,45,F,H,IC,34.00,-118.20
02/02/2020,not a date,2400,Hollywood,THEFT,,100,M,B,AA,34.20,-118.40
03/05/2021,03/05/2021,1200,Pacific,ASSAULT,GUN,99,M,H,IC,33.95,-118.45
03/06/2021,03/06/2021,800,Pacific,ASSAULT,,150,X,O,IC,,-118.45
`

// resetFlags restores every flag to its default so state does not leak
// between invocations of the shared root command.
func resetFlags(c *cobra.Command) {
	reset := func(fl *pflag.Flag) {
		_ = fl.Value.Set(fl.DefValue)
		fl.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// execCmd runs the root command with args and returns stdout and the error.
func execCmd(args ...string) (string, error) {
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// runCmd is a helper to execute the root command with args.
func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execCmd(args...)
	if err != nil {
		t.Fatalf("command %v failed: %v", args, err)
	}
	return out
}

func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	return home
}

func writeCrimes(t *testing.T, dir string) string {
	t.Helper()
	p := filepath.Join(dir, "crimes.csv")
	if err := os.WriteFile(p, []byte(crimesCSV), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return p
}

func TestCLI_RunWritesOutputs(t *testing.T) {
	home := isolateHome(t)
	in := writeCrimes(t, home)
	outDir := filepath.Join(home, "out")
	cleaned := filepath.Join(outDir, "cleaned.csv")
	viewsDir := filepath.Join(outDir, "views")
	summary := filepath.Join(outDir, "summary.md")

	out := runCmd(t, "run", in, "-o", cleaned, "--views-dir", viewsDir, "--summary", summary)
	if !strings.Contains(out, "✓ Wrote cleaned table (5 rows)") {
		t.Fatalf("unexpected output: %q", out)
	}

	b, err := os.ReadFile(cleaned)
	if err != nil {
		t.Fatalf("read cleaned: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	if len(lines) != 6 {
		t.Fatalf("expected header + 5 rows, got %d lines", len(lines))
	}
	if !strings.Contains(lines[0], "AREA_NAME") || !strings.Contains(lines[0], "HOUR") {
		t.Fatalf("header not canonical: %s", lines[0])
	}
	if !strings.HasPrefix(lines[1], "2020-01-08,") {
		t.Fatalf("dates not written as yyyy-mm-dd: %s", lines[1])
	}

	mb, err := os.ReadFile(filepath.Join(viewsDir, export.ManifestFile))
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	var m export.Manifest
	if err := json.Unmarshal(mb, &m); err != nil {
		t.Fatalf("decode manifest: %v", err)
	}
	if len(m.Views) != len(views.All()) {
		t.Fatalf("expected %d views, got %d", len(views.All()), len(m.Views))
	}
	if m.Diagnostics.AfterDemographic != 2 {
		t.Fatalf("expected 2 rows after age filter, got %d", m.Diagnostics.AfterDemographic)
	}

	sb, err := os.ReadFile(summary)
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}
	if !strings.Contains(string(sb), "File: crimes.csv") || !strings.Contains(string(sb), "[TOP AREAS]") {
		t.Fatalf("summary missing sections:\n%s", sb)
	}

	// views show reads the written document
	show := runCmd(t, "views", "show", "top-areas", "--dir", viewsDir)
	if !strings.Contains(show, `"id": "top-areas"`) || !strings.Contains(show, "Central") {
		t.Fatalf("unexpected view document: %s", show)
	}
}

func TestCLI_RunSummaryToStdoutAndXLSX(t *testing.T) {
	home := isolateHome(t)
	in := writeCrimes(t, home)
	cleaned := filepath.Join(home, "cleaned.xlsx")

	out := runCmd(t, "run", in, "-o", cleaned, "--no-views", "--summary=-", "--top-n", "1")
	if !strings.Contains(out, "[INCIDENT SUMMARY]") {
		t.Fatalf("summary not printed: %q", out)
	}
	if !strings.Contains(out, "[TOP AREAS]\nCentral") {
		t.Fatalf("expected a single top area: %q", out)
	}
	if _, err := os.Stat(cleaned); err != nil {
		t.Fatalf("missing xlsx output: %v", err)
	}
	if _, err := os.Stat(filepath.Join(home, "views")); !os.IsNotExist(err) {
		t.Fatalf("views written despite --no-views: %v", err)
	}
}

func TestCLI_RunStrictFailsOnMissingColumn(t *testing.T) {
	home := isolateHome(t)
	// no Weapon Desc column
	var b strings.Builder
	for _, line := range strings.Split(strings.TrimSpace(crimesCSV), "\n") {
		f := strings.Split(line, ",")
		b.WriteString(strings.Join(append(f[:5:5], f[6:]...), ","))
		b.WriteString("\n")
	}
	in := filepath.Join(home, "noweapon.csv")
	if err := os.WriteFile(in, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	args := []string{"run", in, "-o", filepath.Join(home, "c.csv"), "--views-dir", filepath.Join(home, "v"), "--summary="}

	// lenient by default
	runCmd(t, args...)

	_, err := execCmd(append(args, "--strict")...)
	if err == nil {
		t.Fatalf("expected --strict to fail")
	}
	if !strings.Contains(err.Error(), "top-weapons") {
		t.Fatalf("error should name the failed view: %v", err)
	}
}

func TestCLI_RunRejectsBadInput(t *testing.T) {
	home := isolateHome(t)
	if _, err := execCmd("run", filepath.Join(home, "missing.csv")); err == nil {
		t.Fatalf("expected error for missing input")
	}
	if _, err := execCmd("run"); err == nil {
		t.Fatalf("expected error without input")
	}
	in := writeCrimes(t, home)
	_, err := execCmd("run", in, "--top-n", "0")
	if !errors.Is(err, config.ErrInvalid) {
		t.Fatalf("expected invalid config error, got %v", err)
	}
}

func TestCLI_ViewsList(t *testing.T) {
	isolateHome(t)
	out := runCmd(t, "views", "list")
	for _, d := range views.All() {
		if !strings.Contains(out, string(d.ID)) {
			t.Fatalf("views list missing %s:\n%s", d.ID, out)
		}
	}

	js := runCmd(t, "views", "list", "--json")
	var ds []views.Descriptor
	if err := json.Unmarshal([]byte(js), &ds); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(ds) != len(views.All()) || ds[0].ID != views.IncidentsByPeriod {
		t.Fatalf("unexpected descriptors: %+v", ds)
	}

	_, err := execCmd("views", "show", "nope")
	if !errors.Is(err, views.ErrUnknownView) {
		t.Fatalf("expected unknown view error, got %v", err)
	}
	_, err = execCmd("views", "show", "heat-matrix", "--dir", t.TempDir())
	if !errors.Is(err, views.ErrNotComputed) {
		t.Fatalf("expected not computed error, got %v", err)
	}
}

func TestCLI_ConfigSetShow(t *testing.T) {
	home := isolateHome(t)
	runCmd(t, "config", "set", "top_n", "3")
	runCmd(t, "config", "set", "style.palette", "viridis")
	if _, err := os.Stat(filepath.Join(home, ".incidentlens", "config.yaml")); err != nil {
		t.Fatalf("config not saved: %v", err)
	}

	out := runCmd(t, "config", "show")
	if !strings.Contains(out, "top_n: 3\n") || !strings.Contains(out, "style.palette: viridis\n") {
		t.Fatalf("unexpected config:\n%s", out)
	}

	if _, err := execCmd("config", "set", "workers", "0"); !errors.Is(err, config.ErrInvalid) {
		t.Fatalf("expected invalid config error, got %v", err)
	}
}
