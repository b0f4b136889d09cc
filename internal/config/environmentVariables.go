package config

import (
	"log/slog"
	"time"
)

const (
	IS_PROD                     = false
	LOG_LEVEL_PROD              = slog.LevelInfo
	TRACE_ID_KEY                = "traceId"
	DEPARTMENT_KEY              = "department"
	RATE_LIMIT_PER_SECOND       = 2
	BURST_RATE_LIMIT_PER_SECOND = 5
	RateLimiterIdleTTL          = 10 * time.Minute

	EnvPrefix = "DOCVAULT_"

	//serverTimeouts
	ReadTimeout            = 5 * time.Second
	WriteTimeout           = 120 * time.Second //queries wait on the llm
	IdleTimeout            = 120 * time.Second
	ShutdownContextTimeout = 10 * time.Second

	//server listening port
	ServerListenAddr = ":3000"
	MaxUploadSize    = 32 << 20 //32mb

	//storage
	DocsDir          = "docs"
	MetadataBackend  = "sidecar" // sidecar | redis
	SidecarSuffix    = ".meta.json"
	RedisMetadataKey = "docmeta:"

	//vectorDB
	IndexBackend            = "qdrant" // qdrant | chromem
	EmbeddingDBName         = "hermes_docs"
	QdrantConnectionTimeout = 30 * time.Second
	QdrantHost              = "localhost"
	QdrantGrpcPort          = 6334
	QdrantUseTLS            = false //set for https
	QdrantPoolSize          = 1     //2-5 is preferred for prod according to documentation
	ChromemPath             = "storage/vectors"

	//embeddings
	EmbeddingProvider                   = "ollama" // google | ollama | openai
	GoogleEmbeddingModel                = "gemini-embedding-001"
	OllamaEmbeddingModel                = "all-minilm"
	OpenAIEmbeddingModel                = "text-embedding-3-small"
	EmbeddingOutputDimensionality int32 = 384 //all-MiniLM-L6-v2
	EmbeddingMaxRetries                 = 0

	//llm
	LLMProvider          = "ollama" // gemini | ollama | openai
	GeminiModelName      = "gemini-2.5-flash-lite-preview-09-2025"
	OllamaModelName      = "phi3"
	OpenAIModelName      = "gpt-4o-mini"
	OllamaServerURL      = "http://localhost:11434"
	ModelTemperature     = 0.1
	LLMConnectionTimeout = 120 * time.Second

	//retrieval
	TopK            = 5
	OverfetchFactor = 4
	MaxFetch        = 200

	//ingest
	ChunkSize         = 1000 // characters
	ChunkOverlap      = 150
	EmbedBatchSize    = 100
	IngestParallelism = 4
	OnNameConflict    = "reject" // reject | overwrite

	//access
	DefaultDepartment = "IT"

	//jobs
	RequestsPerNewWorkerCount int64 = 10
	MaxWorkerCount            int64 = 10
	MinWorkerCount            int64 = 1
	IdleWorkerTimeout               = 1 * time.Minute
	BufferLimit                     = 100
	JobTimeout                      = 10 * time.Minute

	MaxIdleConns        = 50
	MaxIdleConnsPerHost = 25
	IdleConnTimeout     = 60 * time.Second

	//redis
	redisHost = "127.0.0.1"
	redisPort = "6379"
	RedisAddr = redisHost + ":" + redisPort

	//redis has 16 DB we can use
	RedisJobStore      = 0
	RedisMetadataStore = 1

	RedisJobStoreTTL = 24 * time.Hour
)

var (
	Departments         = []string{"[1014] Sistemas", "IT", "Finanzas", "RRHH", "Marketing", "Dirección"}
	SupportedExtensions = []string{".pdf", ".docx", ".txt", ".pptx", ".xlsx"}
)

const (
	AccessDeniedMessage = "🔒 No tienes permiso para acceder a información sobre esa pregunta."

	GroundedPromptTemplate = "Responde la pregunta usando SOLO la información del contexto.\n" +
		"Si no sabes la respuesta, di 'No sé'.\n" +
		"Responde siempre en español.\n\n" +
		"Contexto:\n%s\n\n" +
		"Pregunta: %s\n\n" +
		"Respuesta:"
)
