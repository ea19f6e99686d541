package util

import (
	"bytes"
	"strings"
	"testing"
)

func TestLoggerLevelGating(t *testing.T) {
	emitAll := func(l *Logger) {
		l.Error("endpoint failed")
		l.Warn("dropping client")
		l.Info("iteration limit reached")
		l.Verbose("udp0: bound 127.0.0.1:5150")
		l.Debug("discarding 4 written bytes")
	}

	tests := []struct {
		verbosity int
		wantTags  []string
	}{
		{0, []string{"[ERR]"}},
		{1, []string{"[ERR]", "[WRN]", "[INF]"}},
		{2, []string{"[ERR]", "[WRN]", "[INF]", "[VRB]"}},
		{3, []string{"[ERR]", "[WRN]", "[INF]", "[VRB]", "[DBG]"}},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		l := NewLogger(tt.verbosity)
		l.SetOutput(&buf)
		l.SetTimestamps(false)

		emitAll(l)

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		if len(lines) != len(tt.wantTags) {
			t.Fatalf("verbosity %d: got %d lines, want %d:\n%s",
				tt.verbosity, len(lines), len(tt.wantTags), buf.String())
		}
		for i, tag := range tt.wantTags {
			if !strings.HasPrefix(lines[i], tag) {
				t.Errorf("verbosity %d line %d = %q, want prefix %q",
					tt.verbosity, i, lines[i], tag)
			}
		}
	}
}

func TestLoggerTimestamps(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(1)
	l.SetOutput(&buf)
	l.SetTimestamps(true)

	l.Info("pump running")

	// "HH:MM:SS.mmm [INF] ..."
	out := buf.String()
	if len(out) < 13 || out[2] != ':' || out[5] != ':' || out[8] != '.' {
		t.Errorf("expected timestamp prefix, got %q", out)
	}
	if !strings.Contains(out, "[INF] pump running") {
		t.Errorf("message lost: %q", out)
	}
}

func TestLoggerDebugVerbosityEnablesTimestamps(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(3)
	l.SetOutput(&buf)

	l.Error("boom")

	if strings.HasPrefix(buf.String(), "[ERR]") {
		t.Errorf("debug verbosity should prepend timestamps, got %q", buf.String())
	}
}

func TestBufPool_RoundTrip(t *testing.T) {
	buf := GetBuf()
	if buf == nil {
		t.Fatal("GetBuf returned nil")
	}
	if len(*buf) != DefaultBufSize {
		t.Errorf("buffer size = %d, want %d", len(*buf), DefaultBufSize)
	}

	(*buf)[0] = 0xFF
	PutBuf(buf)

	buf2 := GetBuf()
	if buf2 == nil {
		t.Fatal("second GetBuf returned nil")
	}
	PutBuf(buf2)
}

func TestPutBuf_Nil(t *testing.T) {
	// Should not panic.
	PutBuf(nil)
}
