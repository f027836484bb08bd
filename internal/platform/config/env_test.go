package config

import "testing"

type envTarget struct {
	Addr    string `env:"REPLAY_ADDR"`
	Retries int    `env:"REPLAY_RETRIES" envDefault:"3"`
}

func TestParseEnvAppliesPrefix(t *testing.T) {
	t.Setenv("DUGOUT_REPLAY_ADDR", "localhost:7070")

	var target envTarget
	if err := ParseEnv(&target); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if target.Addr != "localhost:7070" {
		t.Fatalf("expected prefixed variable to apply, got %q", target.Addr)
	}
	if target.Retries != 3 {
		t.Fatalf("expected default retries 3, got %d", target.Retries)
	}
}

func TestParseEnvRejectsMalformedValue(t *testing.T) {
	t.Setenv("DUGOUT_REPLAY_RETRIES", "not-a-number")

	var target envTarget
	if err := ParseEnv(&target); err == nil {
		t.Fatal("expected error for malformed int value")
	}
}
