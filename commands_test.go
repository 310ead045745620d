package main

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCLI executes the root command with args and returns its standard output
func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := root.Execute()
	return out.String(), err
}

func writeScenario(t *testing.T, name string, cfg ScenarioConfig, inflation float64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, SaveScenarioFile(&ScenarioFile{Scenario: cfg, Inflation: inflation}, path))
	return path
}

func TestCLI_Run(t *testing.T) {
	path := writeScenario(t, "scenario.yaml", annualScenario("end"), 0.02)

	out, err := runCLI(t, "", "run", "--config", path, "--details")
	require.NoError(t, err)
	assert.Contains(t, out, "COMPOUND INTEREST FORECAST")
	assert.Contains(t, out, "Future Value          :    12,559.93")
	assert.Contains(t, out, "Future value in today's money (2.00% inflation): 11,375.92")
	assert.Contains(t, out, "Contrib@End")
}

func TestCLI_RootRunsForecast(t *testing.T) {
	path := writeScenario(t, "scenario.toml", annualScenario("start"), 0)

	out, err := runCLI(t, "", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Future Value          :    12,580.14")
	assert.NotContains(t, out, "today's money")
}

func TestCLI_FlagOverrides(t *testing.T) {
	path := writeScenario(t, "scenario.yaml", annualScenario("end"), 0)

	out, err := runCLI(t, "", "run", "--config", path, "--timing", "start", "--inflation", "2%")
	require.NoError(t, err)
	assert.Contains(t, out, "12,580.14")
	assert.Contains(t, out, "11,394.22")

	_, err = runCLI(t, "", "run", "--config", path, "--tax", "150%")
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = runCLI(t, "", "run", "--config", path, "--compounding", "fortnightly")
	assert.ErrorIs(t, err, ErrInvalidFrequency)

	_, err = runCLI(t, "", "run", "--config", path, "--rate", "lots")
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestCLI_MissingConfigUsesDefault(t *testing.T) {
	out, err := runCLI(t, "", "run", "--config", filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "Future Value          :    47,526.55")
}

func TestCLI_Interactive(t *testing.T) {
	out, err := runCLI(t, strings.Repeat("\n", 10), "run", "-i", "--config", filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "Compound Interest Scenario")
	assert.Contains(t, out, "47,526.55")
}

func TestCLI_Export(t *testing.T) {
	path := writeScenario(t, "scenario.yaml", annualScenario("end"), 0)
	dest := filepath.Join(t.TempDir(), "forecast.csv")

	out, err := runCLI(t, "", "export", "--config", path, "--out", dest)
	require.NoError(t, err)
	assert.Contains(t, out, "CSV saved to "+dest)

	f, err := os.Open(dest)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 6)
	assert.Equal(t, "12559.93", rows[5][7])
}

func TestCLI_ExportToExportDir(t *testing.T) {
	path := writeScenario(t, "scenario.yaml", annualScenario("end"), 0)
	dir := filepath.Join(t.TempDir(), "out")

	_, err := runCLI(t, "", "export", "--config", path, "--format", "pdf", "--export-dir", dir)
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasSuffix(entries[0].Name(), ".pdf"))
}

func TestCLI_ExportToStdout(t *testing.T) {
	path := writeScenario(t, "scenario.yaml", annualScenario("end"), 0)

	out, err := runCLI(t, "", "export", "--config", path, "--format", "json", "--out", "-")
	require.NoError(t, err)
	assert.Contains(t, out, `"future_value": 12559.93`)
}

func TestCLI_Sensitivity(t *testing.T) {
	path := writeScenario(t, "scenario.yaml", annualScenario("end"), 0.02)
	dir := filepath.Join(t.TempDir(), "reports")

	out, err := runCLI(t, "", "sensitivity", "--config", path, "--rate-min", "0.04", "--rate-max", "0.05", "--html", "--export-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "FUTURE VALUE by interest rate")
	assert.Contains(t, out, "TODAY'S MONEY")
	assert.Contains(t, out, "HTML report saved to "+dir)
}

func TestCLI_Rate(t *testing.T) {
	out, err := runCLI(t, "", "rate", "1%", "--basis", "p.m.")
	require.NoError(t, err)
	assert.Equal(t, "1.00% p.m. = 12.68% p.a.\n", out)

	_, err = runCLI(t, "", "rate", "1%", "--basis", "monthly")
	assert.ErrorIs(t, err, ErrInvalidFrequency)
}

func TestCLI_Frequencies(t *testing.T) {
	out, err := runCLI(t, "", "frequencies")
	require.NoError(t, err)
	for _, name := range FrequencyNames() {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, "Biweek")
}

func TestCLI_Init(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.toml")

	out, err := runCLI(t, "", "init", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Scenario saved to "+path)

	file, err := LoadScenarioFile(path)
	require.NoError(t, err)
	assert.Equal(t, "monthly", file.Scenario.CompoundingFrequency)

	_, err = runCLI(t, "", "init", "--config", path)
	assert.ErrorContains(t, err, "already exists")

	_, err = runCLI(t, "", "init", "--config", path, "--force")
	assert.NoError(t, err)
}

func TestCLI_Version(t *testing.T) {
	out, err := runCLI(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "goCompoundForecast dev\n", out)
}
