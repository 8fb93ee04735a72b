package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	clearEnvVars(t)
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	// Server defaults
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 5000, cfg.Server.HTTPPort)
	assert.Equal(t, 9091, cfg.Server.MetricsPort)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, int64(10<<20), cfg.Server.MaxRequestBodySize)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSAllowedOrigins)

	// Logging defaults
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)

	// Metrics defaults
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, "paper_rank", cfg.Metrics.Namespace)

	// Search defaults
	assert.Equal(t, 20, cfg.Search.DefaultMaxResults)
	assert.Equal(t, 5, cfg.Search.MaxConcurrency)

	// Paper sources defaults
	assert.True(t, cfg.PaperSources.PubMed.Enabled)
	assert.True(t, cfg.PaperSources.ArXiv.Enabled)
	assert.True(t, cfg.PaperSources.SemanticScholar.Enabled)
	assert.True(t, cfg.PaperSources.CrossRef.Enabled)
	assert.True(t, cfg.PaperSources.Scholar.Enabled)
	assert.Equal(t, 3.0, cfg.PaperSources.PubMed.RateLimit)
	assert.Equal(t, "https://api.crossref.org", cfg.PaperSources.CrossRef.BaseURL)
	assert.Empty(t, cfg.PaperSources.Scholar.Proxies)

	// LLM defaults
	assert.Equal(t, LLMProviderOllama, cfg.LLM.Provider)
	assert.Equal(t, "gemma:2b", cfg.LLM.Model)
	assert.Equal(t, "http://localhost:11434", cfg.LLM.BaseURL)

	// Static defaults
	assert.True(t, cfg.Static.Enabled)
	assert.Equal(t, []string{"index.html", "script.js", "styles.css"}, cfg.Static.Files)
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	clearEnvVars(t)
	t.Chdir(t.TempDir())

	t.Setenv("PAPERRANK_SERVER_HTTP_PORT", "8888")
	t.Setenv("PAPERRANK_LOGGING_LEVEL", "debug")
	t.Setenv("PAPERRANK_LLM_PROVIDER", "openai")
	t.Setenv("PAPERRANK_LLM_MODEL", "llama3-8b-8192")
	t.Setenv("PAPERRANK_LLM_API_KEY", "sk-test")
	t.Setenv("PAPERRANK_PAPER_SOURCES_SCHOLAR_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8888, cfg.Server.HTTPPort)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, LLMProviderOpenAI, cfg.LLM.Provider)
	assert.Equal(t, "llama3-8b-8192", cfg.LLM.Model)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.False(t, cfg.PaperSources.Scholar.Enabled)
}

func TestLoadFrom_File(t *testing.T) {
	clearEnvVars(t)
	dir := t.TempDir()

	proxyFile := filepath.Join(dir, "proxies.txt")
	require.NoError(t, os.WriteFile(proxyFile, []byte("# comment\nhttp://10.0.0.1:8080\n\n  socks5://10.0.0.2:1080  \n"), 0o600))

	configFile := filepath.Join(dir, "paperrank.yaml")
	yaml := strings.Join([]string{
		"server:",
		"  http_port: 7000",
		"search:",
		"  default_max_results: 50",
		"paper_sources:",
		"  contact_email: team@example.org",
		"  scholar:",
		"    proxy_file: " + proxyFile,
		"    proxies:",
		"      - http://10.0.0.3:3128",
	}, "\n")
	require.NoError(t, os.WriteFile(configFile, []byte(yaml), 0o600))

	cfg, err := LoadFrom(configFile)
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Server.HTTPPort)
	assert.Equal(t, 50, cfg.Search.DefaultMaxResults)
	assert.Equal(t, "team@example.org", cfg.PaperSources.ContactEmail)
	assert.Equal(t, []string{
		"http://10.0.0.3:3128",
		"http://10.0.0.1:8080",
		"socks5://10.0.0.2:1080",
	}, cfg.PaperSources.Scholar.Proxies)
}

func TestLoadFrom_MissingFile(t *testing.T) {
	clearEnvVars(t)

	_, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_APIKeysFromEnvOnly(t *testing.T) {
	clearEnvVars(t)
	t.Chdir(t.TempDir())

	t.Setenv("PAPERRANK_PAPER_SOURCES_SEMANTIC_SCHOLAR_API_KEY", "ss-key-test")
	t.Setenv("PAPERRANK_PAPER_SOURCES_PUBMED_API_KEY", "ncbi-key-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "ss-key-test", cfg.PaperSources.SemanticScholar.APIKey)
	assert.Equal(t, "ncbi-key-test", cfg.PaperSources.PubMed.APIKey)
	assert.Empty(t, cfg.PaperSources.CrossRef.APIKey)
	assert.Empty(t, cfg.LLM.APIKey)
}

func TestLoadProxies(t *testing.T) {
	t.Run("missing file yields no proxies", func(t *testing.T) {
		src := PaperSourceConfig{ProxyFile: filepath.Join(t.TempDir(), "absent.txt")}
		require.NoError(t, loadProxies(&src))
		assert.Empty(t, src.Proxies)
	})

	t.Run("empty path is a no-op", func(t *testing.T) {
		src := PaperSourceConfig{Proxies: []string{"http://a:1"}}
		require.NoError(t, loadProxies(&src))
		assert.Equal(t, []string{"http://a:1"}, src.Proxies)
	})
}

func TestValidate_InvalidPort(t *testing.T) {
	tests := []struct {
		name        string
		modify      func(*Config)
		errContains string
	}{
		{
			name:        "http port zero",
			modify:      func(c *Config) { c.Server.HTTPPort = 0 },
			errContains: "invalid HTTP port",
		},
		{
			name:        "http port too large",
			modify:      func(c *Config) { c.Server.HTTPPort = 70000 },
			errContains: "invalid HTTP port",
		},
		{
			name:        "metrics port negative",
			modify:      func(c *Config) { c.Server.MetricsPort = -1 },
			errContains: "invalid metrics port",
		},
		{
			name:        "metrics port equals http port",
			modify:      func(c *Config) { c.Server.MetricsPort = c.Server.HTTPPort },
			errContains: "metrics port must differ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestValidate_LogLevel(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Level = "verbose"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")

	cfg.Logging.Level = "WARN"
	assert.NoError(t, cfg.Validate())
}

func TestValidate_Search(t *testing.T) {
	cfg := validConfig()
	cfg.Search.MaxConcurrency = 0
	require.ErrorContains(t, cfg.Validate(), "max_concurrency")

	cfg = validConfig()
	cfg.Search.AuthorThreshold = 1.5
	require.ErrorContains(t, cfg.Validate(), "author_threshold")
}

func TestValidate_PaperSources(t *testing.T) {
	t.Run("enabled source needs a rate limit", func(t *testing.T) {
		cfg := validConfig()
		cfg.PaperSources.CrossRef.RateLimit = 0
		require.ErrorContains(t, cfg.Validate(), "paper source crossref: rate_limit must be positive")
	})

	t.Run("disabled source is not checked", func(t *testing.T) {
		cfg := validConfig()
		cfg.PaperSources.CrossRef.Enabled = false
		cfg.PaperSources.CrossRef.RateLimit = 0
		assert.NoError(t, cfg.Validate())
	})

	t.Run("bad proxy scheme", func(t *testing.T) {
		cfg := validConfig()
		cfg.PaperSources.Scholar.Proxies = []string{"ftp://10.0.0.1:21"}
		require.ErrorContains(t, cfg.Validate(), "unsupported scheme")
	})

	t.Run("proxy without host", func(t *testing.T) {
		cfg := validConfig()
		cfg.PaperSources.Scholar.Proxies = []string{"http://"}
		require.ErrorContains(t, cfg.Validate(), "missing host")
	})
}

func TestValidate_LLMProvider(t *testing.T) {
	tests := []struct {
		name        string
		modify      func(*Config)
		errContains string
	}{
		{
			name:   "ollama without key is fine",
			modify: func(c *Config) { c.LLM.Provider = "ollama" },
		},
		{
			name:        "openai without key fails",
			modify:      func(c *Config) { c.LLM.Provider = "openai" },
			errContains: "PAPERRANK_LLM_API_KEY",
		},
		{
			name: "openai with key",
			modify: func(c *Config) {
				c.LLM.Provider = "openai"
				c.LLM.APIKey = "sk-test"
			},
		},
		{
			name:        "unknown provider",
			modify:      func(c *Config) { c.LLM.Provider = "bedrock" },
			errContains: "unsupported LLM provider",
		},
		{
			name:        "missing model",
			modify:      func(c *Config) { c.LLM.Model = "" },
			errContains: "LLM model is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.errContains == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestServerConfig_Addresses(t *testing.T) {
	cfg := ServerConfig{
		Host:        "0.0.0.0",
		HTTPPort:    5000,
		MetricsPort: 9091,
	}
	assert.Equal(t, "0.0.0.0:5000", cfg.HTTPAddress())
	assert.Equal(t, "0.0.0.0:9091", cfg.MetricsAddress())
}

// clearEnvVars removes all PAPERRANK_ prefixed environment variables for the
// duration of the test.
func clearEnvVars(t *testing.T) {
	t.Helper()
	for _, env := range os.Environ() {
		key, value, _ := strings.Cut(env, "=")
		if !strings.HasPrefix(key, EnvPrefix+"_") {
			continue
		}
		require.NoError(t, os.Unsetenv(key))
		t.Cleanup(func() { os.Setenv(key, value) })
	}
}

// validConfig returns a valid configuration for testing
func validConfig() *Config {
	source := PaperSourceConfig{Enabled: true, RateLimit: 1}
	return &Config{
		Server: ServerConfig{
			Host:               "0.0.0.0",
			HTTPPort:           5000,
			MetricsPort:        9091,
			MaxRequestBodySize: 1 << 20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{Enabled: true},
		Search: SearchConfig{
			DefaultMaxResults: 20,
			MaxConcurrency:    5,
			AuthorThreshold:   0.5,
		},
		PaperSources: PaperSourcesConfig{
			PubMed:          source,
			ArXiv:           source,
			SemanticScholar: source,
			CrossRef:        source,
			Scholar:         source,
		},
		LLM: LLMConfig{
			Provider: LLMProviderOllama,
			Model:    "gemma:2b",
		},
	}
}
