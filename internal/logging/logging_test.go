package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name string
		want Level
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"nonsense", LevelInfo},
		{"", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.name); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	if ParseFormat("json") != FormatJSON {
		t.Error("ParseFormat(json) should be FormatJSON")
	}
	if ParseFormat("JSON") != FormatJSON {
		t.Error("ParseFormat(JSON) should be FormatJSON")
	}
	if ParseFormat("text") != FormatText {
		t.Error("ParseFormat(text) should be FormatText")
	}
	if ParseFormat("") != FormatText {
		t.Error("ParseFormat of unknown should fall back to text")
	}
}

func TestNewFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "keywitness.log")
	logger, err := New(&Config{
		Level:     LevelInfo,
		Format:    FormatJSON,
		Output:    "file",
		FilePath:  path,
		Component: "test",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("session opened", "session_id", "s-1")
	logger.Debug("suppressed below configured level")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}

	var record map[string]any
	if err := json.Unmarshal(data, &record); err != nil {
		t.Fatalf("log line is not one JSON record: %v", err)
	}
	if record["msg"] != "session opened" {
		t.Errorf("msg = %v", record["msg"])
	}
	if record["component"] != "test" {
		t.Errorf("component = %v", record["component"])
	}
	if record["session_id"] != "s-1" {
		t.Errorf("session_id = %v", record["session_id"])
	}
}

func TestNewFileOutputWithoutPath(t *testing.T) {
	if _, err := New(&Config{Output: "file"}); err == nil {
		t.Error("file output without a path should fail")
	}
}

func TestNewUnknownOutput(t *testing.T) {
	if _, err := New(&Config{Output: "syslog"}); err == nil {
		t.Error("unknown output should fail")
	}
}
