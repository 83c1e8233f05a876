package util

import (
	"testing"
	"time"
)

func TestParseBoolEnv(t *testing.T) {
	tests := []struct {
		val  string
		def  bool
		want bool
	}{
		{"", true, true},
		{"yes", false, true},
		{"ON", false, true},
		{"0", true, false},
		{"off", true, false},
		{"maybe", true, true},
	}
	for _, tt := range tests {
		t.Setenv("CARESIGNAL_TEST_BOOL", tt.val)
		if got := ParseBoolEnv("CARESIGNAL_TEST_BOOL", tt.def); got != tt.want {
			t.Errorf("ParseBoolEnv(%q, %v) = %v, want %v", tt.val, tt.def, got, tt.want)
		}
	}
}

func TestParseDurationEnv(t *testing.T) {
	t.Setenv("CARESIGNAL_TEST_DURATION", "5m")
	if got := ParseDurationEnv("CARESIGNAL_TEST_DURATION", time.Hour); got != 5*time.Minute {
		t.Errorf("expected 5m, got %v", got)
	}
	t.Setenv("CARESIGNAL_TEST_DURATION", "-1s")
	if got := ParseDurationEnv("CARESIGNAL_TEST_DURATION", time.Hour); got != time.Hour {
		t.Errorf("expected default for negative duration, got %v", got)
	}
	t.Setenv("CARESIGNAL_TEST_DURATION", "soon")
	if got := ParseDurationEnv("CARESIGNAL_TEST_DURATION", time.Hour); got != time.Hour {
		t.Errorf("expected default for invalid duration, got %v", got)
	}
}

func TestParseIntEnv(t *testing.T) {
	t.Setenv("CARESIGNAL_TEST_INT", "12")
	if got := ParseIntEnv("CARESIGNAL_TEST_INT", 10); got != 12 {
		t.Errorf("expected 12, got %d", got)
	}
	t.Setenv("CARESIGNAL_TEST_INT", "0")
	if got := ParseIntEnv("CARESIGNAL_TEST_INT", 10); got != 10 {
		t.Errorf("expected default for zero, got %d", got)
	}
}
