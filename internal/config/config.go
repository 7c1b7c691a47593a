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

// Config holds the eventdex assistant configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Models    ModelsConfig    `yaml:"models"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Session   SessionConfig   `yaml:"session"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings for serve mode.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// CatalogConfig holds graph database connection settings.
type CatalogConfig struct {
	URI                 string `yaml:"uri"`
	User                string `yaml:"user"`
	Password            string `yaml:"password"`
	Database            string `yaml:"database"`
	QueryTimeoutSec     int    `yaml:"query_timeout_sec"`
	MaxPoolSize         int    `yaml:"max_pool_size"`
	MaxConcurrentFetch  int    `yaml:"max_concurrent_fetches"`
	VectorIndex         string `yaml:"vector_index"`
	VectorProperty      string `yaml:"vector_property"`
	EmbeddingDimensions int    `yaml:"embedding_dimensions"`
}

// ModelsConfig holds model backend settings. Backends are named
// credential sets; Fast and Reasoning bind a backend plus model per role.
type ModelsConfig struct {
	Backends          map[string]BackendConfig `yaml:"backends"`
	Fast              RoleConfig               `yaml:"fast"`
	Reasoning         RoleConfig               `yaml:"reasoning"`
	RequestTimeoutSec int                      `yaml:"request_timeout_sec"`
}

// BackendConfig holds credentials for one OpenAI-compatible API.
type BackendConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// RoleConfig binds a model role (fast/reasoning) to a backend and models.
type RoleConfig struct {
	Backend        string `yaml:"backend"`
	Model          string `yaml:"model"`
	EmbeddingModel string `yaml:"embedding_model"`
}

// RetrievalConfig holds the pipeline tunables.
type RetrievalConfig struct {
	TopK            int     `yaml:"top_k"`            // candidates per retrieval pass
	MaxResults      int     `yaml:"max_results"`      // final page size after aggregation
	ContextResults  int     `yaml:"context_results"`  // results shown to the answer model
	SimilarityFloor float64 `yaml:"similarity_floor"` // fallback scan cutoff
	ScanLimit       int     `yaml:"scan_limit"`       // fallback scan summary cap
	RerankFloor     float64 `yaml:"rerank_floor"`     // judge score cutoff
	RerankRescue    int     `yaml:"rerank_rescue"`    // kept from original order if the judge rejects all
	CollectionLimit int     `yaml:"collection_limit"` // curated collection page size
	HistoryWindow   int     `yaml:"history_window"`   // turns of context for answer synthesis
}

// SessionConfig holds conversation memory settings.
type SessionConfig struct {
	Driver   string   `yaml:"driver"` // memory, redis (default: memory)
	Addrs    []string `yaml:"addrs"`
	Password string   `yaml:"password"`
	Capacity int      `yaml:"capacity"` // turns kept per session
	TTLHours int      `yaml:"ttl_hours"`
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
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Catalog.User == "" {
		c.Catalog.User = "neo4j"
	}
	if c.Catalog.QueryTimeoutSec <= 0 {
		c.Catalog.QueryTimeoutSec = 10
	}
	if c.Catalog.MaxPoolSize <= 0 {
		c.Catalog.MaxPoolSize = 50
	}
	if c.Catalog.MaxConcurrentFetch <= 0 {
		c.Catalog.MaxConcurrentFetch = 4
	}
	if c.Catalog.VectorIndex == "" {
		c.Catalog.VectorIndex = "summary_embeddings"
	}
	if c.Catalog.VectorProperty == "" {
		c.Catalog.VectorProperty = "embedding"
	}
	if c.Catalog.EmbeddingDimensions <= 0 {
		c.Catalog.EmbeddingDimensions = 1024
	}
	if c.Models.RequestTimeoutSec <= 0 {
		c.Models.RequestTimeoutSec = 30
	}
	if c.Retrieval.TopK <= 0 {
		c.Retrieval.TopK = 20
	}
	if c.Retrieval.MaxResults <= 0 {
		c.Retrieval.MaxResults = 10
	}
	if c.Retrieval.ContextResults <= 0 {
		c.Retrieval.ContextResults = 5
	}
	if c.Retrieval.SimilarityFloor <= 0 {
		c.Retrieval.SimilarityFloor = 0.3
	}
	if c.Retrieval.ScanLimit <= 0 {
		c.Retrieval.ScanLimit = 5000
	}
	if c.Retrieval.RerankFloor <= 0 {
		c.Retrieval.RerankFloor = 0.4
	}
	if c.Retrieval.RerankRescue <= 0 {
		c.Retrieval.RerankRescue = 3
	}
	if c.Retrieval.CollectionLimit <= 0 {
		c.Retrieval.CollectionLimit = 5
	}
	if c.Retrieval.HistoryWindow <= 0 {
		c.Retrieval.HistoryWindow = 6
	}
	if c.Session.Driver == "" {
		c.Session.Driver = "memory"
	}
	if c.Session.Capacity <= 0 {
		c.Session.Capacity = 24
	}
	if c.Session.TTLHours <= 0 {
		c.Session.TTLHours = 24
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Catalog.URI == "" {
		return fmt.Errorf("catalog.uri is required")
	}
	roles := map[string]RoleConfig{"fast": c.Models.Fast, "reasoning": c.Models.Reasoning}
	for role, rc := range roles {
		if rc.Model == "" {
			return fmt.Errorf("models.%s.model is required", role)
		}
		if _, ok := c.Models.Backends[rc.Backend]; !ok {
			return fmt.Errorf("models.%s.backend %q is not defined in models.backends", role, rc.Backend)
		}
	}
	switch c.Session.Driver {
	case "memory":
	case "redis":
		if len(c.Session.Addrs) == 0 {
			return fmt.Errorf("session.addrs is required for the redis driver")
		}
	default:
		return fmt.Errorf("session.driver must be \"memory\" or \"redis\", got %q", c.Session.Driver)
	}
	if c.Retrieval.SimilarityFloor >= 1 {
		return fmt.Errorf("retrieval.similarity_floor must be below 1, got %v", c.Retrieval.SimilarityFloor)
	}
	if c.Retrieval.RerankFloor >= 1 {
		return fmt.Errorf("retrieval.rerank_floor must be below 1, got %v", c.Retrieval.RerankFloor)
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
