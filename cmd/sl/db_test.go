package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zulandar/sightline/internal/models"
)

// writeSQLiteConfig writes a sightline.yaml backed by a temp sqlite file and
// a single provider at baseURL.
func writeSQLiteConfig(t *testing.T, baseURL string) string {
	t.Helper()
	dir := t.TempDir()
	yaml := fmt.Sprintf(`
database:
  driver: sqlite
  path: %s
log:
  level: error
replay:
  timeout: 5s
providers:
  - id: openai
    base_url: %s
models:
  - id: gpt-4o
    provider: openai
    input_price_per_million: 6
    output_price_per_million: 30
  - id: gpt-4o-mini
    provider: openai
    input_price_per_million: 0.15
    output_price_per_million: 0.6
`, filepath.Join(dir, "sightline.db"), baseURL)
	path := filepath.Join(dir, "sightline.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestDBCmd_Help(t *testing.T) {
	out, err := runCmd(t, "db", "--help")
	if err != nil {
		t.Fatalf("db --help failed: %v", err)
	}
	if !strings.Contains(out, "Database management") {
		t.Errorf("expected help to mention 'Database management', got: %s", out)
	}
	for _, sub := range []string{"init", "reset"} {
		if !strings.Contains(out, sub) {
			t.Errorf("expected help to list %q subcommand, got: %s", sub, out)
		}
	}
}

func TestDBInitCmd_Help(t *testing.T) {
	out, err := runCmd(t, "db", "init", "--help")
	if err != nil {
		t.Fatalf("db init --help failed: %v", err)
	}
	if !strings.Contains(out, "--config") {
		t.Errorf("expected help to mention '--config' flag, got: %s", out)
	}
	if !strings.Contains(out, "sightline.yaml") {
		t.Errorf("expected default config path 'sightline.yaml', got: %s", out)
	}
}

func TestDBInitCmd_MissingConfig(t *testing.T) {
	_, err := runCmd(t, "db", "init", "--config", "/nonexistent/sightline.yaml")
	if err == nil {
		t.Fatal("expected error for missing config")
	}
	if !strings.Contains(err.Error(), "load config") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "load config")
	}
}

func TestDBInitCmd_SQLite(t *testing.T) {
	path := writeSQLiteConfig(t, "http://127.0.0.1:1")

	out, err := runCmd(t, "db", "init", "-c", path)
	if err != nil {
		t.Fatalf("db init failed: %v\n%s", err, out)
	}
	for _, want := range []string{"Migrated 3 tables", "Seeded 1 providers and 2 models", "initialized successfully"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got: %s", want, out)
		}
	}

	_, gormDB, err := connectFromConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	var n int64
	gormDB.Model(&models.Model{}).Where("active = ?", true).Count(&n)
	if n != 2 {
		t.Errorf("active models = %d, want 2", n)
	}

	// Running init again is idempotent.
	if out, err := runCmd(t, "db", "init", "-c", path); err != nil {
		t.Fatalf("second db init failed: %v\n%s", err, out)
	}
}

func TestDBResetCmd_Aborted(t *testing.T) {
	path := writeSQLiteConfig(t, "http://127.0.0.1:1")
	if _, err := runCmd(t, "db", "init", "-c", path); err != nil {
		t.Fatal(err)
	}

	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetIn(strings.NewReader("no\n"))
	cmd.SetArgs([]string{"db", "reset", "-c", path})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("db reset failed: %v", err)
	}
	if !strings.Contains(buf.String(), "Aborted.") {
		t.Errorf("expected 'Aborted.', got: %s", buf.String())
	}
}

func TestDBResetCmd_SQLite(t *testing.T) {
	path := writeSQLiteConfig(t, "http://127.0.0.1:1")
	if _, err := runCmd(t, "db", "init", "-c", path); err != nil {
		t.Fatal(err)
	}
	seedOriginal(t, path)

	out, err := runCmd(t, "db", "reset", "-c", path, "--yes")
	if err != nil {
		t.Fatalf("db reset failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "reset and re-initialized") {
		t.Errorf("expected reset confirmation, got: %s", out)
	}

	_, gormDB, err := connectFromConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	var n int64
	gormDB.Model(&models.RequestRecord{}).Count(&n)
	if n != 0 {
		t.Errorf("request rows after reset = %d, want 0", n)
	}
}
