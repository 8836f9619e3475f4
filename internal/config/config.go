package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the citymatch API configuration.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Database    DatabaseConfig    `yaml:"database"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	Vocabulary  VocabularyConfig  `yaml:"vocabulary"`
	Seed        SeedConfig        `yaml:"seed"`
	Ranking     RankingConfig     `yaml:"ranking"`
	Preferences PreferencesConfig `yaml:"preferences"`
	Auth        AuthConfig        `yaml:"auth"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// Database drivers.
const (
	DriverNone   = "none"
	DriverRedis  = "redis"
	DriverValkey = "valkey"
	DriverSQLite = "sqlite"
)

// DatabaseConfig holds the shared key-value database settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // valkey, redis, none (default: none)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// Enabled reports whether a key-value database is configured.
func (d DatabaseConfig) Enabled() bool { return d.Driver != DriverNone }

// EmbeddingConfig holds the dense embedding provider settings. An empty
// provider disables free-text preferences and the embedding encoding.
type EmbeddingConfig struct {
	Provider         string `yaml:"provider"` // openai-compatible name used in metrics
	APIKey           string `yaml:"api_key"`
	BaseURL          string `yaml:"base_url"`
	Model            string `yaml:"model"`
	Dimensions       int    `yaml:"dimensions"`
	QueryInstruction string `yaml:"query_instruction"`
	CacheTTLSec      int    `yaml:"cache_ttl_sec"` // 0 = no expiry
	MaxRetries       int    `yaml:"max_retries"`   // retries on 429 and 5xx
}

// Enabled reports whether an embedding provider is configured.
func (e EmbeddingConfig) Enabled() bool { return e.Provider != "" }

// VocabularyConfig overrides the built-in vocabularies.
type VocabularyConfig struct {
	RawPath string `yaml:"raw_path"` // YAML list of raw categories; empty = embedded list
}

// SeedConfig locates the POI catalog.
type SeedConfig struct {
	Path   string `yaml:"path"`
	Format string `yaml:"format"` // json, parquet, sqlite; empty = by extension
}

// RankingConfig holds scoring, aggregation and diversification parameters.
type RankingConfig struct {
	Encoding        string   `yaml:"encoding"` // weighted, multihot, embedding
	Alpha           float64  `yaml:"alpha"`
	Beta            float64  `yaml:"beta"`
	TopN            int      `yaml:"top_n"`
	MaxWeight       float64  `yaml:"max_weight"`
	MeanWeight      float64  `yaml:"mean_weight"`
	DiversityWeight float64  `yaml:"diversity_weight"`
	MinCityScore    float64  `yaml:"min_city_score"`
	Lambda          *float64 `yaml:"lambda"`
	CandidatePool   int      `yaml:"candidate_pool"`
	DefaultLimit    int      `yaml:"default_limit"`
	MaxLimit        int      `yaml:"max_limit"`
	Workers         int      `yaml:"workers"`
}

// PreferencesConfig selects the dislike store.
type PreferencesConfig struct {
	Driver     string `yaml:"driver"` // redis (uses database), sqlite, none
	SQLitePath string `yaml:"sqlite_path"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverNone
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Preferences.Driver == "" {
		c.Preferences.Driver = DriverNone
	}
	c.Ranking.applyDefaults()
}

func (r *RankingConfig) applyDefaults() {
	if r.Encoding == "" {
		r.Encoding = "weighted"
	}
	if r.Alpha == 0 && r.Beta == 0 {
		r.Alpha, r.Beta = 0.7, 0.3
	}
	if r.TopN <= 0 {
		r.TopN = 3
	}
	if r.MaxWeight == 0 && r.MeanWeight == 0 && r.DiversityWeight == 0 {
		r.MaxWeight, r.MeanWeight, r.DiversityWeight = 0.6, 0.3, 0.1
	}
	if r.Lambda == nil {
		l := 0.5
		r.Lambda = &l
	}
	if r.CandidatePool <= 0 {
		r.CandidatePool = 300
	}
	if r.DefaultLimit <= 0 {
		r.DefaultLimit = 10
	}
	if r.MaxLimit <= 0 {
		r.MaxLimit = 100
	}
	if r.Workers <= 0 {
		r.Workers = runtime.GOMAXPROCS(0)
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case DriverNone:
	case DriverRedis, DriverValkey:
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for driver %q", c.Database.Driver)
		}
	default:
		return fmt.Errorf("database.driver must be one of none, redis, valkey, got %q", c.Database.Driver)
	}
	if c.Seed.Path == "" {
		return fmt.Errorf("seed.path is required")
	}
	switch c.Preferences.Driver {
	case DriverNone:
	case DriverRedis:
		if !c.Database.Enabled() {
			return fmt.Errorf("preferences.driver %q needs a database driver", c.Preferences.Driver)
		}
	case DriverSQLite:
		if c.Preferences.SQLitePath == "" {
			return fmt.Errorf("preferences.sqlite_path is required for driver %q", DriverSQLite)
		}
	default:
		return fmt.Errorf("preferences.driver must be one of none, redis, sqlite, got %q", c.Preferences.Driver)
	}
	if c.Embedding.Enabled() && c.Embedding.Model == "" {
		return fmt.Errorf("embedding.model is required when embedding.provider is set")
	}
	if c.Embedding.MaxRetries < 0 {
		return fmt.Errorf("embedding.max_retries must be non-negative, got %d", c.Embedding.MaxRetries)
	}
	return c.Ranking.validate(c.Embedding.Enabled())
}

func (r *RankingConfig) validate(embedding bool) error {
	switch r.Encoding {
	case "weighted", "multihot":
	case "embedding":
		if !embedding {
			return fmt.Errorf("ranking.encoding %q needs embedding.provider", r.Encoding)
		}
	default:
		return fmt.Errorf("ranking.encoding must be one of weighted, multihot, embedding, got %q", r.Encoding)
	}
	if r.Alpha < 0 || r.Beta < 0 {
		return fmt.Errorf("ranking.alpha and ranking.beta must be non-negative")
	}
	if r.MaxWeight < 0 || r.MeanWeight < 0 || r.DiversityWeight < 0 {
		return fmt.Errorf("ranking aggregation weights must be non-negative")
	}
	if r.Lambda != nil && (*r.Lambda < 0 || *r.Lambda > 1) {
		return fmt.Errorf("ranking.lambda must be within [0, 1], got %v", *r.Lambda)
	}
	if r.DefaultLimit > r.MaxLimit {
		return fmt.Errorf("ranking.default_limit (%d) exceeds ranking.max_limit (%d)", r.DefaultLimit, r.MaxLimit)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
