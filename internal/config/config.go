// Package config provides configuration management for the paper rank service.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for all environment variable overrides.
const EnvPrefix = "PAPERRANK"

// LLM provider names.
const (
	// LLMProviderOllama talks to a local Ollama daemon.
	LLMProviderOllama = "ollama"
	// LLMProviderOpenAI talks to any OpenAI-compatible chat completions API.
	LLMProviderOpenAI = "openai"
)

// Config holds all configuration for the paper rank service.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `mapstructure:"server"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// Search contains settings shared by all paper source searches.
	Search SearchConfig `mapstructure:"search"`
	// PaperSources contains paper source API configurations.
	PaperSources PaperSourcesConfig `mapstructure:"paper_sources"`
	// LLM contains language-model client settings for query refinement and summaries.
	LLM LLMConfig `mapstructure:"llm"`
	// Static contains frontend file serving settings.
	Static StaticConfig `mapstructure:"static"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	// Host is the address to bind the server to (default: 0.0.0.0).
	Host string `mapstructure:"host"`
	// HTTPPort is the HTTP server port (default: 5000).
	HTTPPort int `mapstructure:"http_port"`
	// MetricsPort is the metrics server port (default: 9091).
	MetricsPort int `mapstructure:"metrics_port"`
	// ReadTimeout is the maximum duration for reading request body.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the maximum duration for writing response.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// MaxRequestBodySize caps the size of JSON request bodies in bytes.
	MaxRequestBodySize int64 `mapstructure:"max_request_body_size"`
	// CORSAllowedOrigins lists origins allowed to call the API ("*" allows any).
	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format"`
	// Output is the log output destination (stdout, stderr).
	Output string `mapstructure:"output"`
	// AddSource adds source file and line to log output.
	AddSource bool `mapstructure:"add_source"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection and exposure.
	Enabled bool `mapstructure:"enabled"`
	// Path is the HTTP path for metrics endpoint.
	Path string `mapstructure:"path"`
	// Namespace prefixes every metric name.
	Namespace string `mapstructure:"namespace"`
}

// SearchConfig holds settings for search requests.
type SearchConfig struct {
	// DefaultMaxResults is used when a request does not specify max_results.
	DefaultMaxResults int `mapstructure:"default_max_results"`
	// Timeout bounds a whole search request, including multi-source fan-out.
	Timeout time.Duration `mapstructure:"timeout"`
	// MaxConcurrency caps how many sources an aggregated search queries at once.
	MaxConcurrency int `mapstructure:"max_concurrency"`
	// AuthorThreshold is the author overlap (0.0-1.0) at which two papers with
	// matching titles are treated as duplicates.
	AuthorThreshold float64 `mapstructure:"author_threshold"`
}

// PaperSourcesConfig holds configuration for all paper source APIs.
type PaperSourcesConfig struct {
	// ContactEmail is sent to APIs that offer a polite pool (CrossRef, arXiv).
	ContactEmail string `mapstructure:"contact_email"`
	// PubMed contains PubMed E-utilities settings.
	PubMed PaperSourceConfig `mapstructure:"pubmed"`
	// ArXiv contains arXiv API settings.
	ArXiv PaperSourceConfig `mapstructure:"arxiv"`
	// SemanticScholar contains Semantic Scholar API settings.
	SemanticScholar PaperSourceConfig `mapstructure:"semantic_scholar"`
	// CrossRef contains CrossRef REST API settings.
	CrossRef PaperSourceConfig `mapstructure:"crossref"`
	// Scholar contains scholarly search scraping settings.
	Scholar PaperSourceConfig `mapstructure:"scholar"`
}

// PaperSourceConfig holds configuration for a single paper source API.
type PaperSourceConfig struct {
	// Enabled controls whether this source is used.
	Enabled bool `mapstructure:"enabled"`
	// APIKey is the API key (loaded from environment variable, e.g. PAPERRANK_PAPER_SOURCES_SEMANTIC_SCHOLAR_API_KEY).
	APIKey string `mapstructure:"-"`
	// BaseURL is the API base URL.
	BaseURL string `mapstructure:"base_url"`
	// Timeout is the timeout for API calls.
	Timeout time.Duration `mapstructure:"timeout"`
	// RateLimit is the maximum requests per second.
	RateLimit float64 `mapstructure:"rate_limit"`
	// MaxResults is the maximum results per query.
	MaxResults int `mapstructure:"max_results"`
	// ProxyFile names a file with one proxy URL per line. Lines starting with
	// '#' are ignored. A missing file means no proxies.
	ProxyFile string `mapstructure:"proxy_file"`
	// Proxies lists proxy URLs; entries from ProxyFile are appended at load time.
	Proxies []string `mapstructure:"proxies"`
}

// LLMConfig holds language-model client configuration.
type LLMConfig struct {
	// Provider is the LLM provider (ollama, openai).
	Provider string `mapstructure:"provider"`
	// Model is the default model when a request does not name one.
	Model string `mapstructure:"model"`
	// BaseURL is the provider API base URL.
	BaseURL string `mapstructure:"base_url"`
	// APIKey is the provider API key (loaded from PAPERRANK_LLM_API_KEY env var).
	APIKey string `mapstructure:"-"`
	// Timeout is the timeout for LLM API calls.
	Timeout time.Duration `mapstructure:"timeout"`
	// MaxRetries is the maximum number of retries for failed calls.
	MaxRetries int `mapstructure:"max_retries"`
	// RetryDelay is the base delay between retries.
	RetryDelay time.Duration `mapstructure:"retry_delay"`
	// Temperature is the LLM temperature setting.
	Temperature float64 `mapstructure:"temperature"`
}

// StaticConfig holds frontend file serving settings.
type StaticConfig struct {
	// Enabled turns on serving of the frontend files.
	Enabled bool `mapstructure:"enabled"`
	// Directory is the directory the files are served from.
	Directory string `mapstructure:"directory"`
	// Files whitelists the file names that may be served from Directory.
	Files []string `mapstructure:"files"`
}

// HTTPAddress returns the HTTP server address.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// MetricsAddress returns the metrics server address.
func (c *ServerConfig) MetricsAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.MetricsPort)
}

// Load loads configuration from environment variables and config files found
// in the default search paths.
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom loads configuration like Load, but reads the named file instead of
// searching the default paths when configFile is not empty.
func LoadFrom(configFile string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read from environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/paper-rank-service")

		if err := v.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			// Config file not found is OK, we'll use env vars and defaults
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Load secrets exclusively from environment variables.
	// These fields use mapstructure:"-" to prevent loading from config files.
	loadSecrets(&cfg)

	if err := loadProxies(&cfg.PaperSources.Scholar); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadSecrets populates secret fields exclusively from environment variables.
func loadSecrets(cfg *Config) {
	cfg.LLM.APIKey = os.Getenv(EnvPrefix + "_LLM_API_KEY")

	cfg.PaperSources.PubMed.APIKey = os.Getenv(EnvPrefix + "_PAPER_SOURCES_PUBMED_API_KEY")
	cfg.PaperSources.ArXiv.APIKey = os.Getenv(EnvPrefix + "_PAPER_SOURCES_ARXIV_API_KEY")
	cfg.PaperSources.SemanticScholar.APIKey = os.Getenv(EnvPrefix + "_PAPER_SOURCES_SEMANTIC_SCHOLAR_API_KEY")
	cfg.PaperSources.CrossRef.APIKey = os.Getenv(EnvPrefix + "_PAPER_SOURCES_CROSSREF_API_KEY")
	cfg.PaperSources.Scholar.APIKey = os.Getenv(EnvPrefix + "_PAPER_SOURCES_SCHOLAR_API_KEY")
}

// loadProxies appends the entries of src.ProxyFile to src.Proxies.
func loadProxies(src *PaperSourceConfig) error {
	if src.ProxyFile == "" {
		return nil
	}

	f, err := os.Open(src.ProxyFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to open proxy file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		src.Proxies = append(src.Proxies, line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read proxy file: %w", err)
	}

	return nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 5000)
	v.SetDefault("server.metrics_port", 9091)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.max_request_body_size", 10<<20)
	v.SetDefault("server.cors_allowed_origins", []string{"*"})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.namespace", "paper_rank")

	// Search defaults
	v.SetDefault("search.default_max_results", 20)
	v.SetDefault("search.timeout", "60s")
	v.SetDefault("search.max_concurrency", 5)
	v.SetDefault("search.author_threshold", 0.5)

	// Paper sources defaults
	// API keys are loaded exclusively from environment variables (see loadSecrets).
	v.SetDefault("paper_sources.contact_email", "")

	v.SetDefault("paper_sources.pubmed.enabled", true)
	v.SetDefault("paper_sources.pubmed.base_url", "https://eutils.ncbi.nlm.nih.gov/entrez/eutils")
	v.SetDefault("paper_sources.pubmed.timeout", "30s")
	v.SetDefault("paper_sources.pubmed.rate_limit", 3.0) // NCBI recommends max 3 req/sec without API key
	v.SetDefault("paper_sources.pubmed.max_results", 100)

	v.SetDefault("paper_sources.arxiv.enabled", true)
	v.SetDefault("paper_sources.arxiv.base_url", "https://export.arxiv.org/api")
	v.SetDefault("paper_sources.arxiv.timeout", "30s")
	v.SetDefault("paper_sources.arxiv.rate_limit", 3.0) // arXiv recommends max 3 req/sec
	v.SetDefault("paper_sources.arxiv.max_results", 100)

	v.SetDefault("paper_sources.semantic_scholar.enabled", true)
	v.SetDefault("paper_sources.semantic_scholar.base_url", "https://api.semanticscholar.org/graph/v1")
	v.SetDefault("paper_sources.semantic_scholar.timeout", "30s")
	v.SetDefault("paper_sources.semantic_scholar.rate_limit", 1.0)
	v.SetDefault("paper_sources.semantic_scholar.max_results", 100)

	v.SetDefault("paper_sources.crossref.enabled", true)
	v.SetDefault("paper_sources.crossref.base_url", "https://api.crossref.org")
	v.SetDefault("paper_sources.crossref.timeout", "30s")
	v.SetDefault("paper_sources.crossref.rate_limit", 5.0)
	v.SetDefault("paper_sources.crossref.max_results", 100)

	v.SetDefault("paper_sources.scholar.enabled", true)
	v.SetDefault("paper_sources.scholar.base_url", "https://scholar.google.com")
	v.SetDefault("paper_sources.scholar.timeout", "30s")
	v.SetDefault("paper_sources.scholar.rate_limit", 0.5)
	v.SetDefault("paper_sources.scholar.max_results", 20)
	v.SetDefault("paper_sources.scholar.proxy_file", "proxies.txt")

	// LLM defaults
	v.SetDefault("llm.provider", LLMProviderOllama)
	v.SetDefault("llm.model", "gemma:2b")
	v.SetDefault("llm.base_url", "http://localhost:11434")
	v.SetDefault("llm.timeout", "120s")
	v.SetDefault("llm.max_retries", 2)
	v.SetDefault("llm.retry_delay", "1s")
	v.SetDefault("llm.temperature", 0.3)

	// Static defaults
	v.SetDefault("static.enabled", true)
	v.SetDefault("static.directory", ".")
	v.SetDefault("static.files", []string{"index.html", "script.js", "styles.css"})
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	// Validate server ports
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.HTTPPort)
	}
	if c.Server.MetricsPort <= 0 || c.Server.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", c.Server.MetricsPort)
	}
	if c.Metrics.Enabled && c.Server.MetricsPort == c.Server.HTTPPort {
		return fmt.Errorf("metrics port must differ from HTTP port: %d", c.Server.MetricsPort)
	}
	if c.Server.MaxRequestBodySize <= 0 {
		return fmt.Errorf("max_request_body_size must be positive")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	// Validate search config
	if c.Search.DefaultMaxResults <= 0 {
		return fmt.Errorf("search default_max_results must be positive")
	}
	if c.Search.MaxConcurrency <= 0 {
		return fmt.Errorf("search max_concurrency must be positive")
	}
	if c.Search.AuthorThreshold < 0 || c.Search.AuthorThreshold > 1 {
		return fmt.Errorf("search author_threshold must be between 0 and 1")
	}

	// Validate paper sources
	sources := map[string]PaperSourceConfig{
		"pubmed":           c.PaperSources.PubMed,
		"arxiv":            c.PaperSources.ArXiv,
		"semantic_scholar": c.PaperSources.SemanticScholar,
		"crossref":         c.PaperSources.CrossRef,
		"scholar":          c.PaperSources.Scholar,
	}
	for name, src := range sources {
		if !src.Enabled {
			continue
		}
		if src.RateLimit <= 0 {
			return fmt.Errorf("paper source %s: rate_limit must be positive", name)
		}
		for _, p := range src.Proxies {
			if err := validateProxyURL(p); err != nil {
				return fmt.Errorf("paper source %s: %w", name, err)
			}
		}
	}

	// Validate LLM config
	switch strings.ToLower(c.LLM.Provider) {
	case LLMProviderOllama:
	case LLMProviderOpenAI:
		if c.LLM.APIKey == "" {
			return fmt.Errorf("LLM provider %q requires %s_LLM_API_KEY to be set", c.LLM.Provider, EnvPrefix)
		}
	default:
		return fmt.Errorf("unsupported LLM provider: %s", c.LLM.Provider)
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("LLM model is required")
	}
	if c.LLM.MaxRetries < 0 {
		return fmt.Errorf("LLM max_retries must not be negative")
	}

	return nil
}

// validateProxyURL checks that a proxy entry is an absolute URL with a supported scheme.
func validateProxyURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid proxy URL %q: %w", raw, err)
	}
	switch u.Scheme {
	case "http", "https", "socks5":
	default:
		return fmt.Errorf("invalid proxy URL %q: unsupported scheme", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid proxy URL %q: missing host", raw)
	}
	return nil
}
