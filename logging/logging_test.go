package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestLogPairProcessed(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, zerolog.InfoLevel)

	LogPairProcessed("a.tif", "b.tif", true, "")
	if buf.Len() != 0 {
		t.Fatalf("successful pair logged at info level: %s", buf.String())
	}

	LogPairProcessed("a.tif", "c.tif", false, "normalize: degenerate input")
	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
	}
	if entry["level"] != "error" || entry["right"] != "c.tif" || entry["error"] != "normalize: degenerate input" {
		t.Fatalf("unexpected entry %v", entry)
	}
}

func TestComponentTag(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, zerolog.DebugLevel)

	log := Component("scorer")
	log.Debug().Msg("stage done")
	if !strings.Contains(buf.String(), `"component":"scorer"`) {
		t.Fatalf("component missing: %s", buf.String())
	}
}

func TestSetupLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rastersim.log")
	if err := SetupLogger(path, true); err != nil {
		t.Fatalf("SetupLogger: %v", err)
	}
	LogWarning("pair %d skipped", 3)
	CloseLogger()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"message":"pair 3 skipped"`) {
		t.Fatalf("log file missing warning: %s", data)
	}
}
