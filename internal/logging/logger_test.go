package logging

import (
	"bytes"
	"strings"
	"testing"
)

type closeRecorder struct {
	bytes.Buffer
	closed bool
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

func TestNewLoggerWithWriterDefaults(t *testing.T) {
	t.Setenv("BARETK_LOG_LEVEL", "")
	t.Setenv("BARETK_LOG_PREFIX", "")

	var buf bytes.Buffer
	lg := NewLoggerWithWriter(&buf)
	lg.Info("loaded image")

	out := buf.String()
	if !strings.Contains(out, "baretk") || !strings.Contains(out, "loaded image") {
		t.Errorf("output = %q, want default prefix and message", out)
	}
}

func TestLogLevelFromEnv(t *testing.T) {
	t.Setenv("BARETK_LOG_LEVEL", "error")

	var buf bytes.Buffer
	lg := NewLoggerWithWriter(&buf)
	lg.Info("filtered")
	if buf.Len() != 0 {
		t.Errorf("info message leaked past error level: %q", buf.String())
	}
	lg.Error("kept")
	if !strings.Contains(buf.String(), "kept") {
		t.Errorf("error message missing: %q", buf.String())
	}
}

func TestLogPrefixFromEnv(t *testing.T) {
	t.Setenv("BARETK_LOG_PREFIX", "analyzer ")

	var buf bytes.Buffer
	lg := NewLoggerWithWriter(&buf)
	lg.Warn("odd section")
	if !strings.Contains(buf.String(), "analyzer") {
		t.Errorf("output = %q, want configured prefix", buf.String())
	}
}

func TestCloseForwardsToWriter(t *testing.T) {
	rec := &closeRecorder{}
	lg := NewLoggerWithWriter(rec)
	if err := lg.Close(); err != nil {
		t.Fatal(err)
	}
	if !rec.closed {
		t.Error("Close did not reach the underlying writer")
	}

	// A plain writer has nothing to close.
	if err := NewLoggerWithWriter(&bytes.Buffer{}).Close(); err != nil {
		t.Errorf("Close without closer = %v, want nil", err)
	}
}

func TestIsDebug(t *testing.T) {
	t.Setenv("BARETK_LOG_LEVEL", "debug")
	if !IsDebug() {
		t.Error("IsDebug() = false with BARETK_LOG_LEVEL=debug")
	}
	t.Setenv("BARETK_LOG_LEVEL", "info")
	if IsDebug() {
		t.Error("IsDebug() = true with BARETK_LOG_LEVEL=info")
	}
}
