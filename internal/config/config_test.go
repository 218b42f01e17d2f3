package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"DEBUG", "AGENT_PORT", "RADIO_PORT", "UI_ADDR", "DISCOVERY_CIDR",
		"DISCOVERY_DIAL_TIMEOUT", "DISCOVERY_RETRY_DELAY", "DISCOVERY_CONCURRENCY", "JOURNAL_CAPACITY",
	} {
		os.Unsetenv(key)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AgentPort != 17653 {
		t.Errorf("expected default agent port 17653, got %d", cfg.AgentPort)
	}
	if cfg.DiscoveryDialTimeout != 500*time.Millisecond {
		t.Errorf("expected default dial timeout 500ms, got %v", cfg.DiscoveryDialTimeout)
	}
	if cfg.DiscoveryConcurrency != 16 {
		t.Errorf("expected default concurrency 16, got %d", cfg.DiscoveryConcurrency)
	}
}

func TestLoadRejectsInvalidCIDR(t *testing.T) {
	os.Setenv("DISCOVERY_CIDR", "not-a-cidr")
	defer os.Unsetenv("DISCOVERY_CIDR")

	if _, err := Load(); err == nil {
		t.Error("expected invalid CIDR to be rejected")
	}
}

func TestLoadOverridesFromEnv(t *testing.T) {
	os.Setenv("AGENT_PORT", "9000")
	os.Setenv("DEBUG", "true")
	defer os.Unsetenv("AGENT_PORT")
	defer os.Unsetenv("DEBUG")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AgentPort != 9000 {
		t.Errorf("expected overridden agent port 9000, got %d", cfg.AgentPort)
	}
	if !cfg.Debug {
		t.Error("expected Debug true")
	}
}
