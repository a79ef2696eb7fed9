package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestHandlePrefixesHartAttr(t *testing.T) {
	var buf bytes.Buffer
	debug := false
	h := NewHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}, &debug)

	slog.New(h).Info("trap delivered", "hart", 0, "exception", "IllegalInstruction")

	out := buf.String()
	if !strings.Contains(out, "[hart0]") {
		t.Errorf("output = %q, want a [hart0] prefix", out)
	}
	if !strings.Contains(out, "trap delivered") {
		t.Errorf("output = %q, want the log message", out)
	}
	if strings.Contains(out, "hart=") {
		t.Errorf("output = %q, hart attr should not also appear as a trailing key=value", out)
	}
}

func TestHandleWithoutHartAttrOmitsPrefix(t *testing.T) {
	var buf bytes.Buffer
	debug := false
	h := NewHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}, &debug)

	slog.New(h).Info("memory region registered", "start", "0x0", "size", 4096)

	out := buf.String()
	if strings.Contains(out, "[hart") {
		t.Errorf("output = %q, want no hart prefix when no hart attr is present", out)
	}
}

func TestNewHandlerThreadsDebugFlag(t *testing.T) {
	var buf bytes.Buffer
	debug := true
	h := NewHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}, &debug)
	if !h.debug {
		t.Fatalf("NewHandler: debug flag not threaded through")
	}
}
