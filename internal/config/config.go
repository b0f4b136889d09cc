package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Storage   StorageConfig   `koanf:"storage"`
	Index     IndexConfig     `koanf:"index"`
	Embedding EmbeddingConfig `koanf:"embedding"`
	LLM       LLMConfig       `koanf:"llm"`
	Retrieval RetrievalConfig `koanf:"retrieval"`
	Ingest    IngestConfig    `koanf:"ingest"`
	Access    AccessConfig    `koanf:"access"`
	Jobs      JobsConfig      `koanf:"jobs"`
	Log       LogConfig       `koanf:"log"`
}

type ServerConfig struct {
	ListenAddr    string        `koanf:"listen_addr"`
	AuthToken     string        `koanf:"auth_token"`
	NoAuthBypass  bool          `koanf:"no_auth_bypass"`
	RateLimit     float64       `koanf:"rate_limit"`
	RateBurst     int           `koanf:"rate_burst"`
	ReadTimeout   time.Duration `koanf:"read_timeout"`
	WriteTimeout  time.Duration `koanf:"write_timeout"`
	IdleTimeout   time.Duration `koanf:"idle_timeout"`
	MaxUploadSize int64         `koanf:"max_upload_size"`
	UploadTempDir string        `koanf:"upload_temp_dir"`
}

type StorageConfig struct {
	DocsDir         string `koanf:"docs_dir"`
	MetadataBackend string `koanf:"metadata_backend"`
	RedisAddr       string `koanf:"redis_addr"`
	RedisPassword   string `koanf:"redis_password"`
}

type IndexConfig struct {
	Backend         string        `koanf:"backend"`
	Collection      string        `koanf:"collection"`
	Dimension       int           `koanf:"dimension"`
	QdrantHost      string        `koanf:"qdrant_host"`
	QdrantPort      int           `koanf:"qdrant_port"`
	QdrantAPIKey    string        `koanf:"qdrant_api_key"`
	QdrantUseTLS    bool          `koanf:"qdrant_use_tls"`
	QdrantPoolSize  int           `koanf:"qdrant_pool_size"`
	QdrantTimeout   time.Duration `koanf:"qdrant_timeout"`
	ChromemPath     string        `koanf:"chromem_path"`
	ChromemCompress bool          `koanf:"chromem_compress"`
	ChromemInMemory bool          `koanf:"chromem_in_memory"`
}

type EmbeddingConfig struct {
	Provider   string `koanf:"provider"`
	Model      string `koanf:"model"`
	APIKey     string `koanf:"api_key"`
	BaseURL    string `koanf:"base_url"`
	MaxRetries int    `koanf:"max_retries"`
}

type LLMConfig struct {
	Provider    string        `koanf:"provider"`
	Model       string        `koanf:"model"`
	APIKey      string        `koanf:"api_key"`
	BaseURL     string        `koanf:"base_url"`
	Temperature float64       `koanf:"temperature"`
	Timeout     time.Duration `koanf:"timeout"`
}

type RetrievalConfig struct {
	TopK            int    `koanf:"top_k"`
	OverfetchFactor int    `koanf:"overfetch_factor"`
	MaxFetch        int    `koanf:"max_fetch"`
	DeniedMessage   string `koanf:"denied_message"`
	PromptTemplate  string `koanf:"prompt_template"`
}

type IngestConfig struct {
	ChunkSize      int      `koanf:"chunk_size"`
	ChunkOverlap   int      `koanf:"chunk_overlap"`
	BatchSize      int      `koanf:"batch_size"`
	Parallelism    int      `koanf:"parallelism"`
	OnNameConflict string   `koanf:"on_name_conflict"`
	Extensions     []string `koanf:"extensions"`
}

type AccessConfig struct {
	Departments       []string `koanf:"departments"`
	DefaultDepartment string   `koanf:"default_department"`
}

type JobsConfig struct {
	BufferLimit       int           `koanf:"buffer_limit"`
	MinWorkers        int64         `koanf:"min_workers"`
	MaxWorkers        int64         `koanf:"max_workers"`
	RequestsPerWorker int64         `koanf:"requests_per_worker"`
	IdleTimeout       time.Duration `koanf:"idle_timeout"`
	JobTimeout        time.Duration `koanf:"job_timeout"`
	RedisTTL          time.Duration `koanf:"redis_ttl"`
}

type LogConfig struct {
	Level string `koanf:"level"`
	JSON  bool   `koanf:"json"`
}

// Default returns the compiled-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr:    ServerListenAddr,
			RateLimit:     RATE_LIMIT_PER_SECOND,
			RateBurst:     BURST_RATE_LIMIT_PER_SECOND,
			ReadTimeout:   ReadTimeout,
			WriteTimeout:  WriteTimeout,
			IdleTimeout:   IdleTimeout,
			MaxUploadSize: MaxUploadSize,
			UploadTempDir: "temporary_data",
		},
		Storage: StorageConfig{
			DocsDir:         DocsDir,
			MetadataBackend: MetadataBackend,
			RedisAddr:       RedisAddr,
		},
		Index: IndexConfig{
			Backend:        IndexBackend,
			Collection:     EmbeddingDBName,
			Dimension:      int(EmbeddingOutputDimensionality),
			QdrantHost:     QdrantHost,
			QdrantPort:     QdrantGrpcPort,
			QdrantUseTLS:   QdrantUseTLS,
			QdrantPoolSize: QdrantPoolSize,
			QdrantTimeout:  QdrantConnectionTimeout,
			ChromemPath:    ChromemPath,
		},
		Embedding: EmbeddingConfig{
			Provider:   EmbeddingProvider,
			Model:      OllamaEmbeddingModel,
			BaseURL:    OllamaServerURL,
			MaxRetries: EmbeddingMaxRetries,
		},
		LLM: LLMConfig{
			Provider:    LLMProvider,
			Model:       OllamaModelName,
			BaseURL:     OllamaServerURL,
			Temperature: ModelTemperature,
			Timeout:     LLMConnectionTimeout,
		},
		Retrieval: RetrievalConfig{
			TopK:            TopK,
			OverfetchFactor: OverfetchFactor,
			MaxFetch:        MaxFetch,
			DeniedMessage:   AccessDeniedMessage,
			PromptTemplate:  GroundedPromptTemplate,
		},
		Ingest: IngestConfig{
			ChunkSize:      ChunkSize,
			ChunkOverlap:   ChunkOverlap,
			BatchSize:      EmbedBatchSize,
			Parallelism:    IngestParallelism,
			OnNameConflict: OnNameConflict,
			Extensions:     slices.Clone(SupportedExtensions),
		},
		Access: AccessConfig{
			Departments:       slices.Clone(Departments),
			DefaultDepartment: DefaultDepartment,
		},
		Jobs: JobsConfig{
			BufferLimit:       BufferLimit,
			MinWorkers:        MinWorkerCount,
			MaxWorkers:        MaxWorkerCount,
			RequestsPerWorker: RequestsPerNewWorkerCount,
			IdleTimeout:       IdleWorkerTimeout,
			JobTimeout:        JobTimeout,
			RedisTTL:          RedisJobStoreTTL,
		},
		Log: LogConfig{Level: "debug"},
	}
}

// Load builds the configuration from defaults, an optional YAML file and
// DOCVAULT_ prefixed environment variables, in increasing precedence.
// DOCVAULT_INDEX_QDRANT_HOST maps to index.qdrant_host.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envToKey), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func envToKey(key string, value string) (string, interface{}) {
	lower := strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower, value
	}
	path := parts[0] + "." + parts[1]

	switch path {
	case "access.departments", "ingest.extensions":
		var list []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				list = append(list, item)
			}
		}
		return path, list
	}
	return path, value
}

func (c *Config) Validate() error {
	if len(c.Access.Departments) == 0 {
		return fmt.Errorf("%w: access.departments is empty", ErrInvalidConfig)
	}
	if !slices.Contains(c.Access.Departments, c.Access.DefaultDepartment) {
		return fmt.Errorf("%w: default department %q is not in access.departments", ErrInvalidConfig, c.Access.DefaultDepartment)
	}
	if c.Retrieval.TopK < 1 {
		return fmt.Errorf("%w: retrieval.top_k must be at least 1", ErrInvalidConfig)
	}
	if c.Index.Dimension < 1 {
		return fmt.Errorf("%w: index.dimension must be positive", ErrInvalidConfig)
	}
	if !strings.Contains(c.Retrieval.PromptTemplate, "%s") {
		return fmt.Errorf("%w: retrieval.prompt_template needs context and question placeholders", ErrInvalidConfig)
	}

	checks := []struct {
		name    string
		value   string
		allowed []string
	}{
		{"storage.metadata_backend", c.Storage.MetadataBackend, []string{"sidecar", "redis"}},
		{"index.backend", c.Index.Backend, []string{"qdrant", "chromem"}},
		{"embedding.provider", c.Embedding.Provider, []string{"google", "ollama", "openai"}},
		{"llm.provider", c.LLM.Provider, []string{"gemini", "ollama", "openai"}},
		{"ingest.on_name_conflict", c.Ingest.OnNameConflict, []string{"reject", "overwrite"}},
	}
	for _, check := range checks {
		if !slices.Contains(check.allowed, check.value) {
			return fmt.Errorf("%w: %s must be one of %v, got %q", ErrInvalidConfig, check.name, check.allowed, check.value)
		}
	}
	return nil
}

func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}
