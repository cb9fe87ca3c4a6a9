package store

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Address             string `yaml:"address"`
		ReadTimeoutSeconds  int    `yaml:"read_timeout_seconds"`
		WriteTimeoutSeconds int    `yaml:"write_timeout_seconds"`
	} `yaml:"server"`
	LLM struct {
		Provider       string  `yaml:"provider"`
		BaseURL        string  `yaml:"base_url"`
		Model          string  `yaml:"model"`
		MaxTokens      int     `yaml:"max_tokens"`
		Temperature    float32 `yaml:"temperature"`
		TimeoutSeconds int     `yaml:"timeout_seconds"`
		TokenEnv       string  `yaml:"token_env"`
	} `yaml:"llm"`
	Embedding struct {
		Provider   string `yaml:"provider"`
		BaseURL    string `yaml:"base_url"`
		Model      string `yaml:"model"`
		Dimensions int    `yaml:"dimensions"`
		TokenEnv   string `yaml:"token_env"`
	} `yaml:"embedding"`
	Retrieval struct {
		ChunkSize    int    `yaml:"chunk_size"`
		ChunkOverlap int    `yaml:"chunk_overlap"`
		TopK         int    `yaml:"top_k"`
		Query        string `yaml:"query"`
	} `yaml:"retrieval"`
	Transcript struct {
		BaseURL           string   `yaml:"base_url"`
		Languages         []string `yaml:"languages"`
		TimeoutSeconds    int      `yaml:"timeout_seconds"`
		RequestsPerMinute int      `yaml:"requests_per_minute"`
	} `yaml:"transcript"`
	Prices struct {
		Source       string `yaml:"source"`
		YahooBaseURL string `yaml:"yahoo_base_url"`
		YahooSuffix  string `yaml:"yahoo_suffix"`
		// Kite credentials are read from these env vars.
		KiteAPIKeyEnv      string `yaml:"kite_api_key_env"`
		KiteAccessTokenEnv string `yaml:"kite_access_token_env"`
		CacheMinutes       int    `yaml:"cache_minutes"`
		TimeoutSeconds     int    `yaml:"timeout_seconds"`
	} `yaml:"prices"`
	Audit struct {
		Enabled       bool   `yaml:"enabled"`
		Dir           string `yaml:"dir"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"audit"`
}

// DefaultRetrievalQuery asks for the strategy the video argues for.
const DefaultRetrievalQuery = "이 동영상에서 주장하는 핵심 매매 기법과 투자 원칙, 매수 타점은?"

// defaultTemperature is seeded before decoding so an explicit 0 survives.
const defaultTemperature = 0.1

// Default returns a config with every default applied.
func Default() *Config {
	c := &Config{}
	c.Audit.Enabled = true
	c.LLM.Temperature = defaultTemperature
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = ":8000"
	}
	if c.Server.ReadTimeoutSeconds == 0 {
		c.Server.ReadTimeoutSeconds = 30
	}
	if c.Server.WriteTimeoutSeconds == 0 {
		// must outlive the model call
		c.Server.WriteTimeoutSeconds = 180
	}

	if c.LLM.Provider == "" {
		c.LLM.Provider = "OPENAI"
	}
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = "https://router.huggingface.co/v1"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "openai/gpt-oss-20b:groq"
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 2048
	}
	if c.LLM.TimeoutSeconds == 0 {
		c.LLM.TimeoutSeconds = 90
	}
	if c.LLM.TokenEnv == "" {
		c.LLM.TokenEnv = "HF_TOKEN"
	}

	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "HASH"
	}
	if c.Embedding.Dimensions == 0 {
		c.Embedding.Dimensions = 256
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Embedding.BaseURL == "" {
		c.Embedding.BaseURL = "https://api.openai.com/v1"
	}
	if c.Embedding.TokenEnv == "" {
		c.Embedding.TokenEnv = "EMBEDDING_API_KEY"
	}

	if c.Retrieval.ChunkSize == 0 {
		c.Retrieval.ChunkSize = 500
	}
	if c.Retrieval.ChunkOverlap == 0 {
		c.Retrieval.ChunkOverlap = 50
	}
	if c.Retrieval.TopK == 0 {
		c.Retrieval.TopK = 5
	}
	if c.Retrieval.Query == "" {
		c.Retrieval.Query = DefaultRetrievalQuery
	}

	if c.Transcript.BaseURL == "" {
		c.Transcript.BaseURL = "https://www.youtube.com"
	}
	if len(c.Transcript.Languages) == 0 {
		c.Transcript.Languages = []string{"ko", "en"}
	}
	if c.Transcript.TimeoutSeconds == 0 {
		c.Transcript.TimeoutSeconds = 30
	}
	if c.Transcript.RequestsPerMinute == 0 {
		c.Transcript.RequestsPerMinute = 30
	}

	if c.Prices.Source == "" {
		c.Prices.Source = "YAHOO"
	}
	if c.Prices.YahooBaseURL == "" {
		c.Prices.YahooBaseURL = "https://query1.finance.yahoo.com"
	}
	if c.Prices.YahooSuffix == "" {
		c.Prices.YahooSuffix = ".KS"
	}
	if c.Prices.CacheMinutes == 0 {
		c.Prices.CacheMinutes = 30
	}
	if c.Prices.TimeoutSeconds == 0 {
		c.Prices.TimeoutSeconds = 15
	}
	if c.Prices.KiteAPIKeyEnv == "" {
		c.Prices.KiteAPIKeyEnv = "KITE_API_KEY"
	}
	if c.Prices.KiteAccessTokenEnv == "" {
		c.Prices.KiteAccessTokenEnv = "KITE_ACCESS_TOKEN"
	}

	if c.Audit.Dir == "" {
		c.Audit.Dir = "logs/analysis"
	}
}

func (c *Config) Validate() error {
	if c.LLM.Provider != "OPENAI" && c.LLM.Provider != "NOOP" {
		return fmt.Errorf("invalid llm.provider '%s': must be 'OPENAI' or 'NOOP'", c.LLM.Provider)
	}
	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("llm.max_tokens must be positive, got %d", c.LLM.MaxTokens)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be between 0-2, got %.2f", c.LLM.Temperature)
	}
	if c.Embedding.Provider != "HASH" && c.Embedding.Provider != "OPENAI" {
		return fmt.Errorf("embedding.provider must be 'HASH' or 'OPENAI', got '%s'", c.Embedding.Provider)
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be positive, got %d", c.Embedding.Dimensions)
	}
	if c.Retrieval.ChunkOverlap >= c.Retrieval.ChunkSize {
		return fmt.Errorf("retrieval.chunk_overlap (%d) must be smaller than chunk_size (%d)",
			c.Retrieval.ChunkOverlap, c.Retrieval.ChunkSize)
	}
	if c.Retrieval.TopK <= 0 {
		return errors.New("retrieval.top_k must be positive")
	}
	if c.Prices.Source != "YAHOO" && c.Prices.Source != "KITE" {
		return fmt.Errorf("prices.source must be 'YAHOO' or 'KITE', got '%s'", c.Prices.Source)
	}
	return nil
}

// LLMTimeout is the fixed client-level timeout of the model call.
func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSeconds) * time.Second
}

func (c *Config) PricesTimeout() time.Duration {
	return time.Duration(c.Prices.TimeoutSeconds) * time.Second
}

func (c *Config) TranscriptTimeout() time.Duration {
	return time.Duration(c.Transcript.TimeoutSeconds) * time.Second
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Config{}
	c.Audit.Enabled = true
	c.LLM.Temperature = defaultTemperature
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &c, nil
}
