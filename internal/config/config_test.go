package config

import (
	"os"
	"testing"
)

func TestSetDefaults_ConventionAddr(t *testing.T) {
	cfg := &Config{LocalDev: true}
	setDefaults(cfg)

	pc := cfg.Participants[ParticipantInventory]
	if pc.Addr != "http://localhost:8001" {
		t.Fatalf("expected convention addr in local dev mode, got %s", pc.Addr)
	}
}

func TestApplyEnvOverrides_ServiceURLWinsOverConvention(t *testing.T) {
	cfg := &Config{Participants: map[string]ParticipantConfig{}}

	os.Setenv("PAYMENT_SERVICE_URL", "http://payment.internal:9999")
	defer os.Unsetenv("PAYMENT_SERVICE_URL")
	applyEnvOverrides(cfg)
	setDefaults(cfg)

	if addr := cfg.Participants[ParticipantPayment].Addr; addr != "http://payment.internal:9999" {
		t.Fatalf("expected env override to win over the convention fallback, got %s", addr)
	}
}

func TestApplyEnvOverrides_ExplicitConfigWinsOverEnv(t *testing.T) {
	cfg := &Config{
		Participants: map[string]ParticipantConfig{
			ParticipantPayment: {Addr: "http://configured-payment:7000"},
		},
	}

	os.Setenv("PAYMENT_SERVICE_URL", "http://payment.internal:9999")
	defer os.Unsetenv("PAYMENT_SERVICE_URL")
	applyEnvOverrides(cfg)
	setDefaults(cfg)

	if addr := cfg.Participants[ParticipantPayment].Addr; addr != "http://configured-payment:7000" {
		t.Fatalf("expected the explicit config value to beat the env var, got %s", addr)
	}
}

func TestValidate_RejectsMissingParticipantAddr(t *testing.T) {
	cfg := &Config{Participants: map[string]ParticipantConfig{}}
	for _, name := range Order {
		if name == ParticipantShipping {
			continue
		}
		cfg.Participants[name] = ParticipantConfig{Addr: "http://x:1"}
	}

	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected Validate to reject a missing participant address")
	}
}

func TestValidate_RejectsJournalEnabledWithoutDSN(t *testing.T) {
	cfg := &Config{Participants: map[string]ParticipantConfig{}}
	for _, name := range Order {
		cfg.Participants[name] = ParticipantConfig{Addr: "http://x:1"}
	}
	cfg.Journal.Enabled = true

	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected Validate to reject journal.enabled without a dsn")
	}
}
