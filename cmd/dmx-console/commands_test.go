package main

import (
	"strings"
	"testing"
	"time"

	"github.com/dmxlan/dmxbridge-console/internal/config"
)

func TestProfileLines(t *testing.T) {
	used := time.Date(2026, 8, 30, 18, 4, 5, 0, time.UTC)
	registry := &config.Registry{
		ActiveServer: "http://10.0.0.2:8080",
		Servers: map[string]*config.ServerProfile{
			"http://10.0.0.2:8080": {
				URL:      "http://10.0.0.2:8080",
				APIKey:   "secret",
				LastUsed: used,
			},
			"http://10.0.0.1:8080": {
				URL: "http://10.0.0.1:8080",
			},
		},
	}

	lines := profileLines(registry)
	if len(lines) != 3 {
		t.Fatalf("lines = %q", lines)
	}
	if lines[0] != "  http://10.0.0.1:8080 (no key)" {
		t.Errorf("line 0 = %q", lines[0])
	}
	if lines[1] != "* http://10.0.0.2:8080 (key saved)" {
		t.Errorf("line 1 = %q", lines[1])
	}
	if !strings.Contains(lines[2], "last used 2026-08-30T18:04:05Z") {
		t.Errorf("line 2 = %q", lines[2])
	}
}

func TestProfileLinesSkipsZeroLastUsed(t *testing.T) {
	registry := &config.Registry{
		Servers: map[string]*config.ServerProfile{
			"http://10.0.0.1:8080": {URL: "http://10.0.0.1:8080"},
		},
	}
	for _, line := range profileLines(registry) {
		if strings.Contains(line, "last used") {
			t.Fatalf("zero LastUsed should not be printed: %q", line)
		}
	}
}
