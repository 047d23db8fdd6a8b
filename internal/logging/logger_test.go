package logging_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"jukebox/internal/logging"
)

func TestNewWritesConsoleLines(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "jukebox.log")

	logger, err := logging.New(logging.Options{
		Level:       "debug",
		Format:      "console",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger = logging.NewComponentLogger(logger, "controller")
	logger.Info("track started", logging.Int(logging.FieldTrack, 42))

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(data)
	if !strings.Contains(line, "INFO controller: track started") {
		t.Fatalf("unexpected log line: %q", line)
	}
	if !strings.Contains(line, "track=42") {
		t.Fatalf("expected track attribute in line: %q", line)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewJSONFormat(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "jukebox.log")

	logger, err := logging.New(logging.Options{Format: "json", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	logger.Info("import finished", logging.String(logging.FieldJobID, "abc"))

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	for _, want := range []string{`"msg":"import finished"`, `"job_id":"abc"`, `"level":"info"`} {
		if !strings.Contains(string(data), want) {
			t.Fatalf("expected %s in output, got %q", want, string(data))
		}
	}
}
