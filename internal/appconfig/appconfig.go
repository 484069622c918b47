// internal/appconfig/appconfig.go
// Package appconfig manages loading and interpreting application configuration.
package appconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	// DefaultConfigPath is the default path to the application's configuration file.
	DefaultConfigPath = "config/config.json"
	// defaultRequestTimeout is the default timeout for provider HTTP requests.
	defaultRequestTimeout = 120 * time.Second
	// defaultListenAddr is where the HTTP transport binds when the config omits it.
	defaultListenAddr = "127.0.0.1:3000"
	// defaultStorePath is the persisted vector store resource.
	defaultStorePath = "vectorStore.json"
	// defaultChunkSize is the word window used by ingest when the caller omits one.
	defaultChunkSize = 500
	// defaultChunkOverlap is the number of words shared by consecutive chunks.
	defaultChunkOverlap = 50
	// defaultTopK is the number of documents retrieved by rag.search.
	defaultTopK = 3
	// defaultContextCharLimit bounds each chunk rendered into the search prompt.
	defaultContextCharLimit = 1000
	// defaultEmbedCacheSize is the number of query embeddings kept per process.
	defaultEmbedCacheSize = 256
	// defaultMaxBodyBytes limits the size of an invoke request body.
	defaultMaxBodyBytes = 4 << 20
)

// Store backends understood by the vector store.
const (
	StoreBackendJSON   = "json"
	StoreBackendSQLite = "sqlite"
)

// Provider types understood by the provider factory.
const (
	ProviderTypeOllama = "ollama"
	ProviderTypeOpenAI = "openai"
	// ProviderTypeLlamaCpp targets llama-server's OpenAI-compatible endpoints.
	ProviderTypeLlamaCpp = "llamacpp"
	// ProviderTypeStub is a deterministic offline backend for demos and tests.
	ProviderTypeStub = "stub"
)

// Config represents the top-level application configuration.
type Config struct {
	Providers        []Provider `json:"providers" mapstructure:"providers"`
	DefaultProvider  string     `json:"defaultProvider,omitempty" mapstructure:"defaultProvider"`
	Debug            bool       `json:"debug" mapstructure:"debug"`
	ListenAddress    string     `json:"listen,omitempty" mapstructure:"listen"`
	StoreBackendName string     `json:"storeBackend,omitempty" mapstructure:"storeBackend"`
	StoreFile        string     `json:"storePath,omitempty" mapstructure:"storePath"`
	ChunkSizeWords   int        `json:"chunkSize,omitempty" mapstructure:"chunkSize"`
	OverlapWords     *int       `json:"chunkOverlap,omitempty" mapstructure:"chunkOverlap"`
	TopKDocs         int        `json:"topK,omitempty" mapstructure:"topK"`
	ContextChars     int        `json:"contextCharLimit,omitempty" mapstructure:"contextCharLimit"`
	EmbedCache       int        `json:"embedCacheSize,omitempty" mapstructure:"embedCacheSize"`
	TimeoutSeconds   int        `json:"timeout,omitempty" mapstructure:"timeout"`
	MaxBodyBytes     int64      `json:"maxBodyBytes,omitempty" mapstructure:"maxBodyBytes"`
	LogFile          string     `json:"logFile,omitempty" mapstructure:"logFile"`
	Metrics          bool       `json:"metrics" mapstructure:"metrics"`
	CorpusInclude    []string   `json:"corpusInclude,omitempty" mapstructure:"corpusInclude"`
	CorpusExclude    []string   `json:"corpusExclude,omitempty" mapstructure:"corpusExclude"`
	ConfigPath       string     `json:"-" mapstructure:"-"`
}

// Provider represents a single embedding/chat backend.
type Provider struct {
	Name       string `json:"name" mapstructure:"name"`
	Type       string `json:"type" mapstructure:"type"`
	URL        string `json:"url,omitempty" mapstructure:"url"`
	APIKeyEnv  string `json:"apiKeyEnv,omitempty" mapstructure:"apiKeyEnv"`
	ChatModel  string `json:"chatModel,omitempty" mapstructure:"chatModel"`
	EmbedModel string `json:"embedModel,omitempty" mapstructure:"embedModel"`
	Dimension  int    `json:"dimension,omitempty" mapstructure:"dimension"`
}

// Default returns the configuration used when no file is present: the two
// providers of the reference deployment, addressed through their usual env vars.
func Default() Config {
	return Config{
		Providers: []Provider{
			{Name: "openai", Type: ProviderTypeOpenAI, APIKeyEnv: "OPENAI_API_KEY"},
			{Name: "ollama", Type: ProviderTypeOllama, URL: "http://localhost:11434"},
		},
		DefaultProvider: "openai",
	}
}

// RequestTimeout returns the timeout duration for provider requests, falling back to the default if not specified.
func (c Config) RequestTimeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return defaultRequestTimeout
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// LogFilePath returns the path to the application log file, applying a default if not set.
func (c Config) LogFilePath() string {
	if path := c.LogFile; strings.TrimSpace(path) != "" {
		return path
	}
	return "toolflow.log"
}

// ListenAddr returns the HTTP bind address.
func (c Config) ListenAddr() string {
	if addr := strings.TrimSpace(c.ListenAddress); addr != "" {
		return addr
	}
	return defaultListenAddr
}

// StoreBackend returns the normalized store backend name.
func (c Config) StoreBackend() string {
	if b := strings.ToLower(strings.TrimSpace(c.StoreBackendName)); b != "" {
		return b
	}
	return StoreBackendJSON
}

// StorePath returns the persisted store location. VECTOR_STORE_PATH wins over the file setting.
func (c Config) StorePath() string {
	if env := strings.TrimSpace(os.Getenv("VECTOR_STORE_PATH")); env != "" {
		return env
	}
	if p := strings.TrimSpace(c.StoreFile); p != "" {
		return p
	}
	if c.StoreBackend() == StoreBackendSQLite {
		return "vectorStore.db"
	}
	return defaultStorePath
}

// ChunkSize returns the default ingest window in words.
func (c Config) ChunkSize() int {
	if c.ChunkSizeWords <= 0 {
		return defaultChunkSize
	}
	return c.ChunkSizeWords
}

// ChunkOverlap returns the default overlap in words. An explicit zero is honoured.
func (c Config) ChunkOverlap() int {
	if c.OverlapWords == nil || *c.OverlapWords < 0 {
		return defaultChunkOverlap
	}
	return *c.OverlapWords
}

// TopK returns the default number of retrieved documents.
func (c Config) TopK() int {
	if c.TopKDocs <= 0 {
		return defaultTopK
	}
	return c.TopKDocs
}

// ContextCharLimit returns the per-chunk rune budget used when building prompts.
func (c Config) ContextCharLimit() int {
	if c.ContextChars <= 0 {
		return defaultContextCharLimit
	}
	return c.ContextChars
}

// EmbedCacheSize returns the query embedding cache capacity. Negative disables the cache.
func (c Config) EmbedCacheSize() int {
	if c.EmbedCache < 0 {
		return 0
	}
	if c.EmbedCache == 0 {
		return defaultEmbedCacheSize
	}
	return c.EmbedCache
}

// BodyLimit returns the maximum accepted invoke body in bytes.
func (c Config) BodyLimit() int64 {
	if c.MaxBodyBytes <= 0 {
		return defaultMaxBodyBytes
	}
	return c.MaxBodyBytes
}

// DefaultProviderName returns the provider used when a tool input omits one.
func (c Config) DefaultProviderName() string {
	if name := strings.TrimSpace(c.DefaultProvider); name != "" {
		return name
	}
	if len(c.Providers) > 0 {
		return c.Providers[0].Name
	}
	return ""
}

// ProviderNames lists configured provider names in declaration order.
func (c Config) ProviderNames() []string {
	names := make([]string, 0, len(c.Providers))
	for _, p := range c.Providers {
		names = append(names, p.Name)
	}
	return names
}

// ExpectedDimension returns the configured embedding width for a provider, or 0 when unknown.
func (c Config) ExpectedDimension(provider string) int {
	for _, p := range c.Providers {
		if p.Name == provider {
			return p.Dimension
		}
	}
	return 0
}

// Validate checks cross-field constraints that a JSON decoder cannot express.
func (c Config) Validate() error {
	if len(c.Providers) == 0 {
		return errors.New("config must contain at least one provider")
	}
	seen := make(map[string]struct{}, len(c.Providers))
	for i, p := range c.Providers {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return fmt.Errorf("providers[%d]: name is required", i)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("providers[%d]: duplicate provider name %q", i, name)
		}
		seen[name] = struct{}{}
		switch strings.ToLower(strings.TrimSpace(p.Type)) {
		case ProviderTypeOllama, ProviderTypeOpenAI, ProviderTypeLlamaCpp, ProviderTypeStub:
		default:
			return fmt.Errorf("providers[%d]: unsupported type %q", i, p.Type)
		}
		if p.Dimension < 0 {
			return fmt.Errorf("providers[%d]: dimension must be zero or greater", i)
		}
	}
	if def := c.DefaultProviderName(); def != "" {
		if _, ok := seen[def]; !ok {
			return fmt.Errorf("defaultProvider %q is not a configured provider", def)
		}
	}
	if c.ChunkOverlap() >= c.ChunkSize() {
		return fmt.Errorf("chunkOverlap (%d) must be smaller than chunkSize (%d)", c.ChunkOverlap(), c.ChunkSize())
	}
	switch c.StoreBackend() {
	case StoreBackendJSON, StoreBackendSQLite:
	default:
		return fmt.Errorf("unsupported storeBackend %q", c.StoreBackendName)
	}
	return nil
}

// Load reads the application configuration from the specified path. A missing
// file yields Default(); any other read or decode failure is returned.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultConfigPath
	}

	config, err := loadFromPath(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			config = Default()
			return config, nil
		}
		return Config{}, fmt.Errorf("could not read config file %q: %w", path, err)
	}
	if len(config.Providers) == 0 {
		config.Providers = Default().Providers
	}
	if err := config.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %q: %w", path, err)
	}
	config.ConfigPath = path
	return config, nil
}

// loadFromPath is a helper function that loads the configuration from a specific file path.
func loadFromPath(path string) (Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer file.Close()

	var config Config
	if err := json.NewDecoder(file).Decode(&config); err != nil {
		return Config{}, err
	}
	if config.TimeoutSeconds <= 0 {
		config.TimeoutSeconds = int(defaultRequestTimeout.Seconds())
	}

	return config, nil
}
