package config

import (
	"os"
	"testing"
)

func TestValidate_InvalidPort(t *testing.T) {
	cfg := Config{
		HTTP:  HTTPConfig{Port: 0},
		Cache: CacheConfig{Addrs: []string{"localhost:6379"}},
	}

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_MissingCacheAddrs(t *testing.T) {
	cfg := Config{
		HTTP: HTTPConfig{Port: 8080},
	}

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing cache addrs")
	}
}

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("read timeout default = %d, want 10", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Cache.LocalSize != 4096 {
		t.Errorf("local cache size default = %d, want 4096", cfg.Cache.LocalSize)
	}
	if cfg.ListingDB.Path == "" {
		t.Error("listing db path default missing")
	}
	if cfg.Jobs.TrendingSpec == "" {
		t.Error("trending cron default missing")
	}
}

func TestExpandEnvVars(t *testing.T) {
	os.Setenv("SEARCHD_TEST_PORT", "9090")
	defer os.Unsetenv("SEARCHD_TEST_PORT")

	in := []byte("port: ${SEARCHD_TEST_PORT}\npassword: ${SEARCHD_TEST_UNSET:-fallback}\n")
	got := string(expandEnvVars(in))

	want := "port: 9090\npassword: fallback\n"
	if got != want {
		t.Errorf("expandEnvVars:\ngot:  %q\nwant: %q", got, want)
	}
}
