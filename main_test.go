package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"networth-analyzer/config"
	"networth-analyzer/models"
	"networth-analyzer/storage"
	"networth-analyzer/utils"
)

func writeCSV(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func testConfig() *config.Config {
	return &config.Config{MaxConcurrency: 2, MaxRetries: 1, FetchTimeoutSec: 5}
}

func TestRunPrintsSummary(t *testing.T) {
	path := writeCSV(t, t.TempDir(), "richest_people.csv",
		"Column1,Column2,Column3,Column4\n"+
			"Name,Email,Phone Number,Net Worth\n"+
			"Alice,a@x.com,555-1111,$50 billion\n"+
			"Bob,,,$120 billion\n"+
			"Cara,,555-2222,invalid\n")

	var out bytes.Buffer
	err := run(context.Background(), &out, testConfig(), utils.Discard(), []string{path})
	require.NoError(t, err)

	want := fmt.Sprintf("--- Net worth analysis: %s ---\n", path) +
		"1. The richest person in this list is: Bob with $120 billion\n" +
		"2. Number of people without an email: 2\n" +
		"3. Number of people without phone numbers: 1\n"
	assert.Equal(t, want, out.String())
}

func TestRunMissingColumnProducesNoPartialOutput(t *testing.T) {
	path := writeCSV(t, t.TempDir(), "p.csv",
		"c1,c2,c3\nName,Email,Net Worth\nAlice,a@x.com,$50 billion\n")

	var out bytes.Buffer
	err := run(context.Background(), &out, testConfig(), utils.Discard(), []string{path})

	assert.ErrorIs(t, err, errSourcesFailed)
	assert.Equal(t, "Error: Missing expected column in CSV header: Phone Number\n", out.String())
}

func TestRunSourceNotFound(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "richest_people.csv")

	var out bytes.Buffer
	err := run(context.Background(), &out, testConfig(), utils.Discard(), []string{missing})

	assert.ErrorIs(t, err, errSourcesFailed)
	assert.Contains(t, out.String(), "Error: The file '"+missing+"' was not found.")
}

func TestRunUsesConfiguredSourceAndReport(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig()
	cfg.Source = writeCSV(t, dir, "default.csv", "x\nName,Email,Phone Number,Net Worth\nDee,d@x.com,555,$3 billion\n")
	cfg.ReportCSVPath = filepath.Join(dir, "reports", "runs.csv")

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), &out, cfg, utils.Discard(), nil))

	assert.Contains(t, out.String(), "Dee with $3 billion")
	report, err := os.ReadFile(cfg.ReportCSVPath)
	require.NoError(t, err)
	assert.Contains(t, string(report), "Dee,3,0,0,1,0,0,")
}

func TestDescribeError(t *testing.T) {
	assert.Equal(t,
		"Error: The file 'p.csv' was not found. Please ensure it's in the correct directory.",
		describeError("p.csv", fmt.Errorf("csv: open: %w", storage.ErrSourceNotFound)))
	assert.Equal(t,
		"Error: Missing expected column in CSV header: Email, Net Worth",
		describeError("p.csv", &storage.SchemaMismatchError{Missing: []string{"Email", "Net Worth"}}))
	assert.Equal(t,
		"An unexpected error occurred: boom",
		describeError("p.csv", errors.New("boom")))
}

const bobCSV = "Column1,Column2,Column3,Column4\n" +
	"Name,Email,Phone Number,Net Worth\n" +
	"Alice,a@x.com,555-1111,$50 billion\n" +
	"Bob,,,$120 billion\n"

// executeRoot runs the root command as main would, with a clean environment.
func executeRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	for _, key := range []string{"NETWORTH_SOURCE", "REPORT_CSV_PATH", "PERSIST_RUNS", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCmdReportFlag(t *testing.T) {
	dir := t.TempDir()
	path := writeCSV(t, dir, "people.csv", bobCSV)
	reportPath := filepath.Join(dir, "report.csv")

	out, err := executeRoot(t, path, "--report", reportPath)

	require.NoError(t, err)
	assert.Equal(t, 0, exitCode(err))
	assert.Contains(t, out, "Bob with $120 billion")
	report, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	assert.Contains(t, string(report), "Bob,120,")
}

func TestRootCmdFailedSourceExitsNonZero(t *testing.T) {
	dir := t.TempDir()
	good := writeCSV(t, dir, "people.csv", bobCSV)
	missing := filepath.Join(dir, "missing.csv")

	out, err := executeRoot(t, good, missing)

	assert.ErrorIs(t, err, errSourcesFailed)
	assert.Equal(t, 1, exitCode(err))
	assert.Contains(t, out, "Bob with $120 billion")
	assert.Contains(t, out, "Error: The file '"+missing+"' was not found.")
}

func TestRootCmdPersistWithoutDatabaseStillReports(t *testing.T) {
	t.Setenv("POSTGRES_HOST", "127.0.0.1")
	t.Setenv("POSTGRES_PORT", "1")
	t.Setenv("MAX_RETRIES", "1")
	path := writeCSV(t, t.TempDir(), "people.csv", bobCSV)

	out, err := executeRoot(t, path, "--persist")

	require.NoError(t, err)
	assert.Contains(t, out, "Bob with $120 billion")
}

func TestRootCmdHistoryWithoutDatabase(t *testing.T) {
	t.Setenv("POSTGRES_HOST", "127.0.0.1")
	t.Setenv("POSTGRES_PORT", "1")
	t.Setenv("MAX_RETRIES", "1")

	out, err := executeRoot(t, "--history", "5")

	require.Error(t, err)
	assert.Equal(t, 1, exitCode(err))
	assert.Contains(t, out, "An unexpected error occurred")
}

type failingSink struct{ closed bool }

func (f *failingSink) Write(*models.Summary) error { return nil }
func (f *failingSink) Close() error {
	f.closed = true
	return errors.New("disk full")
}

func TestCloseSinksLogsErrors(t *testing.T) {
	var logs bytes.Buffer
	logger := utils.NewLoggerTo(&logs, &logs, "info")
	a, b := &failingSink{}, &failingSink{}

	closeSinks([]storage.SummaryWriter{a, b}, logger)

	assert.True(t, a.closed)
	assert.True(t, b.closed)
	assert.Contains(t, logs.String(), "Report close failed: disk full")
}
