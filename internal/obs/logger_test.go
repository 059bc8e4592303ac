package obs

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "warn", Output: &buf})

	l.Info().Msg("should be dropped")
	if buf.Len() != 0 {
		t.Fatalf("info line leaked through at warn level: %q", buf.String())
	}

	l.Error().Msg("should appear")
	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if decoded["service"] != "kellerdb" {
		t.Fatalf("missing service field: %v", decoded)
	}
	if decoded["message"] != "should appear" {
		t.Fatalf("unexpected message: %v", decoded)
	}
}

func TestNewDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Output: &buf})

	l.Debug().Msg("dropped at default level")
	if buf.Len() != 0 {
		t.Fatalf("debug line leaked through at default info level")
	}
	l.Info().Msg("kept")
	if buf.Len() == 0 {
		t.Fatalf("info line was dropped at default level")
	}
}
