package logger

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNewWithWriterLevels(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("production", &buf)

	log.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug should be filtered in production, got %q", buf.String())
	}

	log.Info("order_placed", "order_id", "o-1")
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON line: %v", err)
	}
	if entry["msg"] != "order_placed" || entry["order_id"] != "o-1" || entry["service"] != serviceName {
		t.Fatalf("unexpected entry %v", entry)
	}
}
