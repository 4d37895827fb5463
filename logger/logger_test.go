package logger

import (
	"os"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestWithComponent(t *testing.T) {
	log := Logger()
	entry := log.WithComponent("test")
	if v, ok := entry.Entry.Data["component"]; !ok || v != "test" {
		t.Fatalf("component field missing: %v", entry.Entry.Data)
	}
}

func TestConfigureInvalidLevel(t *testing.T) {
	// Ensure environment variables do not override the provided level
	t.Setenv("LOG_LEVEL", "")

	log := Logger()
	if err := log.Configure("invalid", "json", "stdout", 0); err == nil {
		t.Fatalf("expected error for invalid level")
	}
}

func TestConfigureInvalidFormat(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")

	log := Logger()
	if err := log.Configure("info", "xml", "stdout", 0); err == nil {
		t.Fatalf("expected error for invalid format")
	}
}

func TestCallerHookLevels(t *testing.T) {
	h := &callerHook{}
	if got := len(h.Levels()); got != len(logrus.AllLevels) {
		t.Fatalf("hook covers %d levels, want %d", got, len(logrus.AllLevels))
	}
}

func TestIsLoggingFrame(t *testing.T) {
	cases := []struct {
		fn   string
		want bool
	}{
		{"github.com/sirupsen/logrus.(*Entry).Info", true},
		{"optionflow/logger.(*Entry).Warn", true},
		{"optionflow/chain.(*OptionsChain).Refresh", false},
		{"main.main", false},
	}
	for _, c := range cases {
		if got := isLoggingFrame(c.fn); got != c.want {
			t.Errorf("isLoggingFrame(%q) = %v, want %v", c.fn, got, c.want)
		}
	}
}

func TestWithEnv(t *testing.T) {
	os.Setenv("FOO", "bar")
	log := Logger()
	entry := log.WithEnv("FOO")
	if v, ok := entry.Entry.Data["FOO"]; !ok || v != "bar" {
		t.Fatalf("env field not set: %v", entry.Entry.Data)
	}
}
