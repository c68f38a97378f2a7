package config

import (
	"os"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	os.Unsetenv("BACKEND_URL")
	os.Unsetenv("PORT")
	os.Unsetenv("ENV")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.BackendURL != "http://localhost:8000" {
		t.Errorf("expected default backend URL, got %s", cfg.BackendURL)
	}
	if cfg.BackendTimeoutSeconds != 30 {
		t.Errorf("expected default timeout 30s, got %d", cfg.BackendTimeoutSeconds)
	}
	if !cfg.IsDev() {
		t.Error("expected development mode by default")
	}
}

func TestLoad_ProductionRequiresSigningKey(t *testing.T) {
	os.Setenv("ENV", "production")
	os.Unsetenv("SESSION_SIGNING_KEY")
	defer os.Unsetenv("ENV")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when SESSION_SIGNING_KEY is missing in production")
	}
}

func TestLoad_RejectsNonHexSigningKey(t *testing.T) {
	os.Setenv("SESSION_SIGNING_KEY", "not-hex")
	defer os.Unsetenv("SESSION_SIGNING_KEY")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for non-hex signing key")
	}
}

func TestLoad_RejectsZeroTimeout(t *testing.T) {
	os.Setenv("BACKEND_TIMEOUT_SECONDS", "0")
	defer os.Unsetenv("BACKEND_TIMEOUT_SECONDS")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for zero backend timeout")
	}
}

func TestSigningKeyRoundTrip(t *testing.T) {
	os.Setenv("SESSION_SIGNING_KEY", "deadbeef")
	defer os.Unsetenv("SESSION_SIGNING_KEY")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	key := cfg.SigningKey()
	if len(key) != 4 || key[0] != 0xde || key[3] != 0xef {
		t.Errorf("SigningKey() = %x, want deadbeef", key)
	}
}
