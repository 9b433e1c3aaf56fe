package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != "8089" {
		t.Errorf("Expected Port to be 8089, got %s", cfg.Port)
	}

	if cfg.Env != "development" {
		t.Errorf("Expected Env to be development, got %s", cfg.Env)
	}

	if cfg.Aggregator.MaxWorkers != 32 {
		t.Errorf("Expected MaxWorkers to be 32, got %d", cfg.Aggregator.MaxWorkers)
	}

	if cfg.Cache.QuoteTTLSeconds != 1800 {
		t.Errorf("Expected QuoteTTLSeconds to be 1800, got %d", cfg.Cache.QuoteTTLSeconds)
	}
}

func TestLoadWithCustomValues(t *testing.T) {
	os.Setenv("PORT", "9000")
	os.Setenv("ENV", "production")
	os.Setenv("AGGREGATOR_MAX_WORKERS", "8")
	os.Setenv("LOG_LEVEL", "info")

	defer func() {
		os.Unsetenv("PORT")
		os.Unsetenv("ENV")
		os.Unsetenv("AGGREGATOR_MAX_WORKERS")
		os.Unsetenv("LOG_LEVEL")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != "9000" {
		t.Errorf("Expected Port to be 9000, got %s", cfg.Port)
	}

	if cfg.Env != "production" {
		t.Errorf("Expected Env to be production, got %s", cfg.Env)
	}

	if cfg.Aggregator.MaxWorkers != 8 {
		t.Errorf("Expected MaxWorkers to be 8, got %d", cfg.Aggregator.MaxWorkers)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("Expected LogLevel to be info, got %s", cfg.LogLevel)
	}
}

func TestValidateInvalidEnv(t *testing.T) {
	os.Setenv("ENV", "invalid")
	defer os.Unsetenv("ENV")

	_, err := Load()
	if err == nil {
		t.Error("Expected error when ENV is invalid, got nil")
	}
}

func TestValidateInvalidMaxWorkers(t *testing.T) {
	os.Setenv("AGGREGATOR_MAX_WORKERS", "0")
	defer os.Unsetenv("AGGREGATOR_MAX_WORKERS")

	_, err := Load()
	if err == nil {
		t.Error("Expected error when AGGREGATOR_MAX_WORKERS is not positive, got nil")
	}
}

func TestLoadProviderCredentials(t *testing.T) {
	os.Setenv("GLOBALPAY_API_KEY", "secret-key")
	defer os.Unsetenv("GLOBALPAY_API_KEY")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	cred, ok := cfg.ProviderCredentials["globalpay"]
	if !ok {
		t.Fatal("expected globalpay credentials to be present")
	}
	if cred.APIKey != "secret-key" {
		t.Errorf("expected APIKey to be secret-key, got %s", cred.APIKey)
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	os.Setenv("TEST_DURATION", "2h")
	defer os.Unsetenv("TEST_DURATION")

	duration := getEnvAsDuration("TEST_DURATION", "1h")
	expected := 2 * time.Hour

	if duration != expected {
		t.Errorf("Expected duration to be %v, got %v", expected, duration)
	}
}

func TestGetEnvAsInt(t *testing.T) {
	os.Setenv("TEST_INT", "100")
	defer os.Unsetenv("TEST_INT")

	value := getEnvAsInt("TEST_INT", 50)
	if value != 100 {
		t.Errorf("Expected value to be 100, got %d", value)
	}
}

func TestGetEnvAsBool(t *testing.T) {
	os.Setenv("TEST_BOOL", "true")
	defer os.Unsetenv("TEST_BOOL")

	value := getEnvAsBool("TEST_BOOL", false)
	if value != true {
		t.Errorf("Expected value to be true, got %v", value)
	}
}
