package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func validConfig() Config {
	cfg := Config{
		HTTP: HTTPConfig{Port: 8080},
		Seed: SeedConfig{Path: "testdata/seed.json"},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_Defaults(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_MissingDatabaseAddrs(t *testing.T) {
	for _, driver := range []string{DriverRedis, DriverValkey} {
		t.Run(driver, func(t *testing.T) {
			cfg := validConfig()
			cfg.Database.Driver = driver

			if err := cfg.Validate(); err == nil {
				t.Fatal("expected error for missing addrs")
			}
		})
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			name:   "unknown database driver",
			mutate: func(c *Config) { c.Database.Driver = "memcached" },
			want:   `database.driver must be one of none, redis, valkey, got "memcached"`,
		},
		{
			name:   "missing seed",
			mutate: func(c *Config) { c.Seed.Path = "" },
			want:   "seed.path is required",
		},
		{
			name:   "redis preferences without database",
			mutate: func(c *Config) { c.Preferences.Driver = DriverRedis },
			want:   `preferences.driver "redis" needs a database driver`,
		},
		{
			name:   "sqlite preferences without path",
			mutate: func(c *Config) { c.Preferences.Driver = DriverSQLite },
			want:   `preferences.sqlite_path is required for driver "sqlite"`,
		},
		{
			name:   "embedding encoding without provider",
			mutate: func(c *Config) { c.Ranking.Encoding = "embedding" },
			want:   `ranking.encoding "embedding" needs embedding.provider`,
		},
		{
			name:   "unknown encoding",
			mutate: func(c *Config) { c.Ranking.Encoding = "tfidf" },
			want:   `ranking.encoding must be one of weighted, multihot, embedding, got "tfidf"`,
		},
		{
			name: "lambda out of range",
			mutate: func(c *Config) {
				l := 1.5
				c.Ranking.Lambda = &l
			},
			want: "ranking.lambda must be within [0, 1], got 1.5",
		},
		{
			name:   "provider without model",
			mutate: func(c *Config) { c.Embedding.Provider = "nebius" },
			want:   "embedding.model is required when embedding.provider is set",
		},
		{
			name:   "negative retries",
			mutate: func(c *Config) { c.Embedding.MaxRetries = -1 },
			want:   "embedding.max_retries must be non-negative, got -1",
		},
		{
			name:   "default limit above max",
			mutate: func(c *Config) { c.Ranking.DefaultLimit = 500 },
			want:   "ranking.default_limit (500) exceeds ranking.max_limit (100)",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if err.Error() != tc.want {
				t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), tc.want)
			}
		})
	}
}

func TestValidate_SQLitePreferences(t *testing.T) {
	cfg := validConfig()
	cfg.Preferences = PreferencesConfig{Driver: DriverSQLite, SQLitePath: "prefs.db"}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("expected ShutdownSec=10, got %d", cfg.HTTP.ShutdownSec)
	}
	if cfg.Database.Driver != DriverNone {
		t.Errorf("expected database driver %q, got %q", DriverNone, cfg.Database.Driver)
	}
	if cfg.Preferences.Driver != DriverNone {
		t.Errorf("expected preferences driver %q, got %q", DriverNone, cfg.Preferences.Driver)
	}
	r := cfg.Ranking
	if r.Encoding != "weighted" {
		t.Errorf("expected encoding weighted, got %q", r.Encoding)
	}
	if r.Alpha != 0.7 || r.Beta != 0.3 {
		t.Errorf("expected alpha/beta 0.7/0.3, got %v/%v", r.Alpha, r.Beta)
	}
	if r.TopN != 3 || r.MaxWeight != 0.6 || r.MeanWeight != 0.3 || r.DiversityWeight != 0.1 {
		t.Errorf("unexpected aggregation defaults: %+v", r)
	}
	if r.Lambda == nil || *r.Lambda != 0.5 {
		t.Errorf("expected lambda 0.5, got %v", r.Lambda)
	}
	if r.CandidatePool != 300 || r.DefaultLimit != 10 || r.MaxLimit != 100 {
		t.Errorf("unexpected limits: %+v", r)
	}
	if r.Workers != runtime.GOMAXPROCS(0) {
		t.Errorf("expected workers=GOMAXPROCS, got %d", r.Workers)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	zero := 0.0
	cfg := Config{
		HTTP:     HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Database: DatabaseConfig{Driver: DriverValkey, ReadinessTimeout: 15},
		Ranking:  RankingConfig{Encoding: "multihot", Alpha: 1, Lambda: &zero, TopN: 5, Workers: 2},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("expected ReadTimeoutSec=30, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Database.Driver != DriverValkey {
		t.Errorf("expected driver valkey, got %q", cfg.Database.Driver)
	}
	if cfg.Ranking.Alpha != 1 || cfg.Ranking.Beta != 0 {
		t.Errorf("expected alpha/beta 1/0 kept, got %v/%v", cfg.Ranking.Alpha, cfg.Ranking.Beta)
	}
	if *cfg.Ranking.Lambda != 0 {
		t.Errorf("expected explicit lambda 0 kept, got %v", *cfg.Ranking.Lambda)
	}
	if cfg.Ranking.TopN != 5 || cfg.Ranking.Workers != 2 || cfg.Ranking.Encoding != "multihot" {
		t.Errorf("unexpected ranking config: %+v", cfg.Ranking)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("CITYMATCH_TEST_PORT", "9090")

	got := string(expandEnvVars([]byte("port: ${CITYMATCH_TEST_PORT}\nkey: ${CITYMATCH_UNSET:-fallback}\nempty: ${CITYMATCH_UNSET}")))
	want := "port: 9090\nkey: fallback\nempty: "
	if got != want {
		t.Errorf("unexpected expansion:\ngot:  %q\nwant: %q", got, want)
	}
}

func TestLoad_FromConfigDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "config"), 0o755); err != nil {
		t.Fatal(err)
	}
	yaml := `
http:
  port: ${CITYMATCH_TEST_HTTP_PORT:-8181}
seed:
  path: data/seed.parquet
ranking:
  encoding: multihot
  lambda: 0.3
preferences:
  driver: sqlite
  sqlite_path: prefs.db
`
	if err := os.WriteFile(filepath.Join(dir, "config", "citymatch-test.yaml"), []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)

	cfg, err := Load("citymatch-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Port != 8181 {
		t.Errorf("expected port 8181, got %d", cfg.HTTP.Port)
	}
	if cfg.Ranking.Encoding != "multihot" || *cfg.Ranking.Lambda != 0.3 {
		t.Errorf("unexpected ranking config: %+v", cfg.Ranking)
	}
	if cfg.Preferences.SQLitePath != "prefs.db" {
		t.Errorf("unexpected preferences: %+v", cfg.Preferences)
	}
}
