package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	Init("warn", "json")
	var buf bytes.Buffer
	SetOutput(&buf)

	Debug("debug message")
	Info("info message")
	Warn("warn message")
	Error("error message")

	out := buf.String()
	if strings.Contains(out, "[DEBUG]") || strings.Contains(out, "[INFO]") {
		t.Errorf("below-level messages leaked:\n%s", out)
	}
	if !strings.Contains(out, "[WARN] warn message") {
		t.Errorf("warn message missing:\n%s", out)
	}
	if !strings.Contains(out, "[ERROR] error message") {
		t.Errorf("error message missing:\n%s", out)
	}
}

func TestFormatting(t *testing.T) {
	Init("debug", "json")
	var buf bytes.Buffer
	SetOutput(&buf)

	Info("tick completed: %d groups, %d alerts", 3, 1)
	if !strings.Contains(buf.String(), "tick completed: 3 groups, 1 alerts") {
		t.Errorf("printf formatting broken:\n%s", buf.String())
	}
}

func TestUnknownLevelDefaultsToInfo(t *testing.T) {
	Init("chatty", "json")
	var buf bytes.Buffer
	SetOutput(&buf)

	Debug("hidden")
	Info("visible")

	if strings.Contains(buf.String(), "hidden") {
		t.Error("debug must be filtered at the default level")
	}
	if !strings.Contains(buf.String(), "visible") {
		t.Error("info must pass at the default level")
	}
}
