package console

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestConsoleLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewConsoleLogger(ConsoleLoggerParams{JSON: true, Output: &buf})

	l.Info("[Worker] snapshot rendered", "id", "abc")

	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if line["msg"] != "[Worker] snapshot rendered" || line["id"] != "abc" {
		t.Fatalf("unexpected line: %v", line)
	}
}

func TestConsoleLogger_DebugLevel(t *testing.T) {
	tests := []struct {
		name  string
		debug bool
		want  bool
	}{
		{name: "info level hides debug", debug: false, want: false},
		{name: "debug level shows debug", debug: true, want: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := NewConsoleLogger(ConsoleLoggerParams{Debug: tc.debug, Output: &buf})
			l.Debug("details")
			if got := strings.Contains(buf.String(), "details"); got != tc.want {
				t.Fatalf("debug line present = %v, want %v (output %q)", got, tc.want, buf.String())
			}
		})
	}
}
