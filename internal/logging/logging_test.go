package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/zulandar/sightline/internal/config"
)

func TestSetup_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Setup(config.LogConfig{Level: "debug", Format: "json"}, &buf); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	defer Setup(config.LogConfig{Level: "info", Format: "text"}, os.Stderr)

	log.WithFields(log.Fields{"event": "startup_check"}).Debug("hello")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %q", buf.String())
	}
	if entry["event"] != "startup_check" {
		t.Errorf("event = %v, want startup_check", entry["event"])
	}
	if entry["level"] != "debug" {
		t.Errorf("level = %v, want debug", entry["level"])
	}
}

func TestSetup_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	if err := Setup(config.LogConfig{Level: "warn", Format: "text"}, &buf); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	defer Setup(config.LogConfig{Level: "info", Format: "text"}, os.Stderr)

	log.Info("quiet")
	log.Warn("loud")

	out := buf.String()
	if strings.Contains(out, "quiet") {
		t.Errorf("info line should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, "loud") {
		t.Errorf("warn line missing: %s", out)
	}
}

func TestSetup_BadLevel(t *testing.T) {
	err := Setup(config.LogConfig{Level: "chatty", Format: "text"}, nil)
	if err == nil {
		t.Fatal("expected error for unknown level")
	}
	if !strings.Contains(err.Error(), "logging:") {
		t.Errorf("error = %q, want logging: prefix", err.Error())
	}
}

func TestSetup_BadFormat(t *testing.T) {
	err := Setup(config.LogConfig{Level: "info", Format: "xml"}, nil)
	if err == nil {
		t.Fatal("expected error for unknown format")
	}
}
