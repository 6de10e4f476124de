package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestSetupEmitsStructuredJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("marketd", "test", WithWriter(&buf))
	logger.Warn("listing rejected", "reason", "DuplicateListing")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	for key, want := range map[string]string{
		"severity": "WARN",
		"message":  "listing rejected",
		"service":  "marketd",
		"env":      "test",
		"reason":   "DuplicateListing",
	} {
		if line[key] != want {
			t.Fatalf("%s = %v, want %q", key, line[key], want)
		}
	}
	if _, ok := line["timestamp"]; !ok {
		t.Fatalf("missing timestamp")
	}
}

func TestSetupWritesLogFile(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "marketd.log")
	logger := Setup("marketd", "", WithWriter(&buf), WithFile(path, 1, 1))
	logger.Info("started")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !bytes.Equal(bytes.TrimSpace(data), bytes.TrimSpace(buf.Bytes())) {
		t.Fatalf("file and stdout diverge:\n%s\n%s", data, buf.Bytes())
	}
}
