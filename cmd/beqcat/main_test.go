package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"beqcat/internal/engine"
	"beqcat/internal/history"
	"beqcat/internal/testsupport"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
	outputDir  string
	repoDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	testsupport.MkdirAll(t, homeDir)
	t.Setenv("HOME", homeDir)

	env := &cliTestEnv{
		baseDir:    base,
		configPath: filepath.Join(homeDir, ".config", "beqcat", "config.toml"),
		outputDir:  filepath.Join(base, "site"),
		repoDir:    filepath.Join(base, "repos", "author1"),
	}
	testsupport.WriteBEQ(t, env.repoDir, "Alpha (2020).xml", testsupport.BEQ{
		Title:   "Alpha",
		Year:    "2020",
		Gain:    "-2",
		Filters: [][4]string{{"PK", "20", "1", "-2.5"}},
	})
	mtime := time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC)
	testsupport.Touch(t, filepath.Join(env.repoDir, "Alpha (2020).xml"), mtime)
	testsupport.WriteFile(t, filepath.Join(env.repoDir, "broken.xml"), "<setting><beq_metadata>")

	writeTestConfig(t, env)
	return env
}

func writeTestConfig(t *testing.T, env *cliTestEnv) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
output_dir = %q
log_dir = %q

[catalogue]
base_url = "https://catalogue.test"

[[sources]]
id = "author1"
kind = "xml"
path = %q
track_mtime = true

[workflow]
concurrency = 1
`, env.outputDir, filepath.Join(env.baseDir, "logs"), env.repoDir)
	testsupport.WriteFile(t, env.configPath, content)
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--log-level", "error"}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func runOnce(t *testing.T, env *cliTestEnv) engine.Report {
	t.Helper()
	out, _, err := runCLI(t, []string{"run", "--now", "2024-06-15T12:00:00Z", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	var report engine.Report
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report: %v\n%s", err, out)
	}
	return report
}

func TestRunCommandPublishesCatalogue(t *testing.T) {
	env := setupCLITestEnv(t)

	report := runOnce(t, env)
	if report.Status != history.StatusSucceeded || report.Entries != 1 || report.FeedItems != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	if len(report.Sources) != 1 || report.Sources[0].RecordErrors != 1 {
		t.Fatalf("expected one record error, got %+v", report.Sources)
	}
	if _, err := os.Stat(filepath.Join(env.outputDir, "docs", "catalogue.csv")); err != nil {
		t.Fatalf("catalogue not published: %v", err)
	}

	out, _, err := runCLI(t, []string{"run", "--now", "2024-06-15T12:00:00Z"}, env.configPath)
	if err != nil {
		t.Fatalf("run summary: %v", err)
	}
	requireContains(t, out, "author1")
	requireContains(t, out, "succeeded")
	requireContains(t, out, "in feed 1")
}

func TestRunCommandRejectsBadNow(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"run", "--now", "yesterday"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "--now") {
		t.Fatalf("expected --now parse error, got %v", err)
	}
}

func TestErrorsCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	runOnce(t, env)

	out, _, err := runCLI(t, []string{"errors"}, env.configPath)
	if err != nil {
		t.Fatalf("errors: %v", err)
	}
	requireContains(t, out, "broken.xml")

	out, _, err = runCLI(t, []string{"errors", "author1", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("errors --json: %v", err)
	}
	var parsed []map[string]string
	if err := json.Unmarshal([]byte(out), &parsed); err != nil {
		t.Fatalf("decode errors: %v", err)
	}
	if len(parsed) != 1 || parsed[0]["path"] != "broken.xml" {
		t.Fatalf("unexpected errors %v", parsed)
	}

	if _, _, err := runCLI(t, []string{"errors", "nobody"}, env.configPath); err == nil {
		t.Fatal("expected unknown source error")
	}
}

func TestOrphansCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"orphans"}, env.configPath); err == nil {
		t.Fatal("expected error before the first run")
	}

	runOnce(t, env)
	stale := filepath.Join(env.outputDir, "docs", "author1", "gone.md")
	testsupport.WriteFile(t, stale, "# Gone\n")
	runOnce(t, env)

	out, _, err := runCLI(t, []string{"orphans"}, env.configPath)
	if err != nil {
		t.Fatalf("orphans: %v", err)
	}
	requireContains(t, out, "gone.md")
	if _, err := os.Stat(stale); err != nil {
		t.Fatalf("orphan removed: %v", err)
	}
}

func TestSearchCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	runOnce(t, env)

	out, _, err := runCLI(t, []string{"search", "alp"}, env.configPath)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	requireContains(t, out, "Alpha")
	requireContains(t, out, "https://catalogue.test/author1/alpha-2020/")

	out, _, err = runCLI(t, []string{"search", "zeta"}, env.configPath)
	if err != nil {
		t.Fatalf("search miss: %v", err)
	}
	requireContains(t, out, "No matches")
	requireContains(t, out, "Did you mean: Alpha")
}

func TestHistoryCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	runOnce(t, env)
	runOnce(t, env)

	out, _, err := runCLI(t, []string{"history", "--json", "--limit", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var runs []history.Run
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		t.Fatalf("decode runs: %v", err)
	}
	if len(runs) != 1 || runs[0].Status != history.StatusSucceeded || runs[0].RecordErrors != 1 {
		t.Fatalf("unexpected runs %+v", runs)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected refusal to overwrite")
	}
}

func TestConfigValidateReportsMissingSource(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.RemoveAll(env.repoDir); err != nil {
		t.Fatal(err)
	}
	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err == nil {
		t.Fatal("expected validation failure")
	}
	requireContains(t, out, "author1")
}

func TestDotEnvOverridesBaseURL(t *testing.T) {
	env := setupCLITestEnv(t)
	t.Setenv("BEQCAT_BASE_URL", "")
	os.Unsetenv("BEQCAT_BASE_URL")
	dir := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(dir, envFile), "BEQCAT_BASE_URL=https://dotenv.test\n")
	t.Chdir(dir)
	t.Cleanup(func() { os.Unsetenv("BEQCAT_BASE_URL") })

	runOnce(t, env)
	out, _, err := runCLI(t, []string{"search", "alpha"}, env.configPath)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	requireContains(t, out, "https://dotenv.test/author1/alpha-2020/")
}
