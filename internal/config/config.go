// Package config loads the application configuration from a YAML file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FieldConfig defines one field of the Milvus collection schema.
type FieldConfig struct {
	Name         string `yaml:"name"`
	DataType     string `yaml:"dataType"`
	IsPrimaryKey bool   `yaml:"isPrimaryKey"`
	IsAutoID     bool   `yaml:"isAutoID"`
	Dim          int    `yaml:"dim,omitempty"`
	MaxLength    int    `yaml:"maxLength,omitempty"`
}

// IndexConfig defines the vector index built for the collection.
type IndexConfig struct {
	FieldName  string                 `yaml:"fieldName"`
	IndexType  string                 `yaml:"indexType"`
	MetricType string                 `yaml:"metricType"`
	Params     map[string]interface{} `yaml:"params"`
}

// SchemaConfig defines the Milvus collection layout.
type SchemaConfig struct {
	CollectionName string        `yaml:"collectionName"`
	Description    string        `yaml:"description"`
	VectorField    string        `yaml:"vectorField"`
	Fields         []FieldConfig `yaml:"fields"`
	Index          IndexConfig   `yaml:"index"`
}

// MilvusConfig holds the Milvus connection and schema configuration.
type MilvusConfig struct {
	Address string       `yaml:"address"`
	Schema  SchemaConfig `yaml:"schema"`
}

// RedisConfig holds the Redis connection configuration.
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// OpenAIConfig configures an OpenAI-compatible endpoint.
type OpenAIConfig struct {
	APIKeyEnv string `yaml:"apiKeyEnv"`
	Model     string `yaml:"model"`
}

// OllamaConfig configures a local Ollama endpoint.
type OllamaConfig struct {
	BaseURL string `yaml:"baseURL"`
	Model   string `yaml:"model"`
}

// HuggingFaceConfig configures the Hugging Face Inference API.
type HuggingFaceConfig struct {
	APIKeyEnv string `yaml:"apiKeyEnv"`
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"baseURL"`
}

// EmbeddingConfig selects and configures the embedding model provider.
type EmbeddingConfig struct {
	Provider       string            `yaml:"provider"` // "openai", "ollama", or "huggingface"
	OpenAI         OpenAIConfig      `yaml:"openai"`
	Ollama         OllamaConfig      `yaml:"ollama"`
	HuggingFace    HuggingFaceConfig `yaml:"huggingface"`
	BatchSize      int               `yaml:"batchSize"`
	MaxParallelism int               `yaml:"maxParallelism"`
	TimeoutSecs    int               `yaml:"timeoutSecs"`
	RetryAttempts  int               `yaml:"retryAttempts"`
}

// LLMConfig selects and configures the answer-generation model provider.
type LLMConfig struct {
	Provider    string       `yaml:"provider"` // "openai" or "ollama"
	OpenAI      OpenAIConfig `yaml:"openai"`
	Ollama      OllamaConfig `yaml:"ollama"`
	TimeoutSecs int          `yaml:"timeoutSecs"`
}

// RerankerConfig configures the optional Cohere reranker.
type RerankerConfig struct {
	Enabled   bool   `yaml:"enabled"`
	APIKeyEnv string `yaml:"apiKeyEnv"`
	Model     string `yaml:"model"`
	TopN      int    `yaml:"topN"`
}

// KnowledgeBaseConfig holds the chunking parameters and document locations.
type KnowledgeBaseConfig struct {
	DocumentsDir string `yaml:"documentsDir"`
	ChunkSize    int    `yaml:"chunkSize"`
	ChunkOverlap int    `yaml:"chunkOverlap"`
	TopK         int    `yaml:"topK"`
}

// DatabaseConfigs groups the storage backends.
type DatabaseConfigs struct {
	Milvus MilvusConfig `yaml:"milvus"`
	Redis  RedisConfig  `yaml:"redis"`
}

// AppInfo holds basic application information.
type AppInfo struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// LoggerConfig holds the logger settings.
type LoggerConfig struct {
	Level string `yaml:"level"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// AppConfig is the root of the YAML configuration file.
type AppConfig struct {
	App           AppInfo             `yaml:"app"`
	Server        ServerConfig        `yaml:"server"`
	Logger        LoggerConfig        `yaml:"logger"`
	KnowledgeBase KnowledgeBaseConfig `yaml:"knowledgeBase"`
	Embedding     EmbeddingConfig     `yaml:"embedding"`
	LLM           LLMConfig           `yaml:"llm"`
	Reranker      RerankerConfig      `yaml:"reranker"`
	Databases     DatabaseConfigs     `yaml:"databases"`
}

// LoadConfig reads and parses the configuration file at the given path and
// applies defaults for optional settings.
func LoadConfig(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *AppConfig) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
	if c.KnowledgeBase.ChunkSize == 0 {
		c.KnowledgeBase.ChunkSize = 512
	}
	if c.KnowledgeBase.TopK == 0 {
		c.KnowledgeBase.TopK = 5
	}
	if c.KnowledgeBase.DocumentsDir == "" {
		c.KnowledgeBase.DocumentsDir = "data/documents"
	}
	if c.Embedding.BatchSize == 0 {
		c.Embedding.BatchSize = 32
	}
	if c.Embedding.MaxParallelism == 0 {
		c.Embedding.MaxParallelism = 4
	}
	if c.Embedding.TimeoutSecs == 0 {
		c.Embedding.TimeoutSecs = 60
	}
	if c.Embedding.RetryAttempts == 0 {
		c.Embedding.RetryAttempts = 3
	}
	if c.LLM.TimeoutSecs == 0 {
		c.LLM.TimeoutSecs = 120
	}
}

// EmbeddingTimeout returns the per-call timeout for embedding requests.
func (c *AppConfig) EmbeddingTimeout() time.Duration {
	return time.Duration(c.Embedding.TimeoutSecs) * time.Second
}

// LLMTimeout returns the per-call timeout for answer generation requests.
func (c *AppConfig) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSecs) * time.Second
}
