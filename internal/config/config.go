package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port string `yaml:"port"`

	// Auth
	APIKey string `yaml:"api_key"`

	// Gemini generation
	GeminiAPIKey          string        `yaml:"gemini_api_key"`
	GeminiModel           string        `yaml:"gemini_model"`
	GeminiBaseURL         string        `yaml:"gemini_base_url"`
	GeminiTemperature     float64       `yaml:"gemini_temperature"`
	GeminiTopK            float64       `yaml:"gemini_top_k"`
	GeminiTopP            float64       `yaml:"gemini_top_p"`
	GeminiMaxOutputTokens int           `yaml:"gemini_max_output_tokens"`
	GenerateTimeout       time.Duration `yaml:"generate_timeout"`

	// Worker pool
	WorkerCount  int `yaml:"worker_count"`
	MaxQueueSize int `yaml:"max_queue_size"`
	MaxRetries   int `yaml:"max_retries"`

	// Upload limits
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`

	// Job state
	JobTTL time.Duration `yaml:"job_ttl"`

	// Plan storage
	DBPath        string `yaml:"db_path"`
	PlanCacheSize int    `yaml:"plan_cache_size"`

	// PDF
	PDFFallbackPdftotext bool `yaml:"pdf_fallback_pdftotext"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Port: "8090",

		GeminiModel:           "gemini-1.5-flash",
		GeminiTemperature:     0.7,
		GeminiTopK:            40,
		GeminiTopP:            0.95,
		GeminiMaxOutputTokens: 8192,
		GenerateTimeout:       2 * time.Minute,

		WorkerCount:  4,
		MaxQueueSize: 100,
		MaxRetries:   3,

		MaxUploadBytes: 10 << 20, // 10MB

		JobTTL: 1 * time.Hour,

		DBPath:        "data/tripgenie.db",
		PlanCacheSize: 256,

		PDFFallbackPdftotext: true,
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// TRIPGENIE_CONFIG (if set), then environment variables.
func Load() (Config, error) {
	cfg := Defaults()

	if path := os.Getenv("TRIPGENIE_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.Port = envOr("PORT", cfg.Port)
	cfg.APIKey = envOr("TRIPGENIE_API_KEY", cfg.APIKey)

	cfg.GeminiAPIKey = envOr("GEMINI_API_KEY", cfg.GeminiAPIKey)
	cfg.GeminiModel = envOr("GEMINI_MODEL", cfg.GeminiModel)
	cfg.GeminiBaseURL = envOr("GEMINI_BASE_URL", cfg.GeminiBaseURL)
	cfg.GeminiTemperature = envFloat("GEMINI_TEMPERATURE", cfg.GeminiTemperature)
	cfg.GeminiTopK = envFloat("GEMINI_TOP_K", cfg.GeminiTopK)
	cfg.GeminiTopP = envFloat("GEMINI_TOP_P", cfg.GeminiTopP)
	cfg.GeminiMaxOutputTokens = envInt("GEMINI_MAX_OUTPUT_TOKENS", cfg.GeminiMaxOutputTokens)
	cfg.GenerateTimeout = envDuration("GENERATE_TIMEOUT", cfg.GenerateTimeout)

	cfg.WorkerCount = envInt("WORKER_COUNT", cfg.WorkerCount)
	cfg.MaxQueueSize = envInt("MAX_QUEUE_SIZE", cfg.MaxQueueSize)
	cfg.MaxRetries = envInt("MAX_RETRIES", cfg.MaxRetries)

	cfg.MaxUploadBytes = envInt64("MAX_UPLOAD_BYTES", cfg.MaxUploadBytes)
	cfg.JobTTL = envDuration("JOB_TTL", cfg.JobTTL)

	cfg.DBPath = envOr("DB_PATH", cfg.DBPath)
	cfg.PlanCacheSize = envInt("PLAN_CACHE_SIZE", cfg.PlanCacheSize)

	cfg.PDFFallbackPdftotext = envBool("PDF_FALLBACK_PDFTOTEXT", cfg.PDFFallbackPdftotext)

	cfg.applyDefaults()
	return cfg, nil
}

// applyDefaults resets unset or non-positive values.
func (c *Config) applyDefaults() {
	d := Defaults()
	if c.Port == "" {
		c.Port = d.Port
	}
	if c.GeminiModel == "" {
		c.GeminiModel = d.GeminiModel
	}
	if c.GeminiTemperature <= 0 {
		c.GeminiTemperature = d.GeminiTemperature
	}
	if c.GeminiTopK <= 0 {
		c.GeminiTopK = d.GeminiTopK
	}
	if c.GeminiTopP <= 0 {
		c.GeminiTopP = d.GeminiTopP
	}
	if c.GeminiMaxOutputTokens <= 0 {
		c.GeminiMaxOutputTokens = d.GeminiMaxOutputTokens
	}
	if c.GenerateTimeout <= 0 {
		c.GenerateTimeout = d.GenerateTimeout
	}
	if c.WorkerCount <= 0 {
		c.WorkerCount = d.WorkerCount
	}
	if c.MaxQueueSize <= 0 {
		c.MaxQueueSize = d.MaxQueueSize
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = d.MaxRetries
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = d.MaxUploadBytes
	}
	if c.JobTTL <= 0 {
		c.JobTTL = d.JobTTL
	}
	if c.DBPath == "" {
		c.DBPath = d.DBPath
	}
	if c.PlanCacheSize <= 0 {
		c.PlanCacheSize = d.PlanCacheSize
	}
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("TRIPGENIE_API_KEY is required")
	}
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
