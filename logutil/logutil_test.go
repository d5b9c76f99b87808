package logutil

import (
	"bytes"
	"strings"
	"testing"

	"github.com/go-kit/log/level"
)

func TestNewFiltersByVerbosity(t *testing.T) {
	tests := []struct {
		verbose   int
		wantInfo  bool
		wantDebug bool
	}{
		{0, false, false},
		{1, true, false},
		{2, true, true},
		{5, true, true},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		l := New(&buf, tt.verbose)
		level.Info(l).Log("msg", "info-line")
		level.Debug(l).Log("msg", "debug-line")
		level.Warn(l).Log("msg", "warn-line")

		out := buf.String()
		if !strings.Contains(out, "warn-line") {
			t.Errorf("verbose=%d: warnings must always be logged, got %q", tt.verbose, out)
		}
		if got := strings.Contains(out, "info-line"); got != tt.wantInfo {
			t.Errorf("verbose=%d: info logged = %v, want %v", tt.verbose, got, tt.wantInfo)
		}
		if got := strings.Contains(out, "debug-line"); got != tt.wantDebug {
			t.Errorf("verbose=%d: debug logged = %v, want %v", tt.verbose, got, tt.wantDebug)
		}
	}
}

func TestWithAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := With(New(&buf, 0), "loader")
	level.Error(l).Log("msg", "boom")
	if !strings.Contains(buf.String(), "component=loader") {
		t.Errorf("expected component tag, got %q", buf.String())
	}
}

func TestOrDiscard(t *testing.T) {
	if OrDiscard(nil) != Discard {
		t.Error("OrDiscard(nil) should return Discard")
	}
}
