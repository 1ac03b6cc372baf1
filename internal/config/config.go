package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// FileEnv names the optional YAML file loaded before environment overrides.
const FileEnv = "DOCBRIDGE_CONFIG"

type Config struct {
	Port string `yaml:"port"`

	// Auth
	APIKey string `yaml:"api_key"`

	// Section storage: "memory" or "pathstore"
	StoreBackend    string `yaml:"store_backend"`
	PathstoreURL    string `yaml:"pathstore_url"`
	PathstoreAPIKey string `yaml:"pathstore_api_key"`
	PathstorePrefix string `yaml:"pathstore_prefix"`

	// Worker pool
	WorkerCount        int `yaml:"worker_count"`
	MaxQueueSize       int `yaml:"max_queue_size"`
	MaxConcurrentStore int `yaml:"max_concurrent_store"`

	// Upload limits
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`

	// Job state
	JobTTL time.Duration `yaml:"job_ttl"`

	// Conversion
	LineGap              float64 `yaml:"line_gap"`
	FallbackSectionTitle string  `yaml:"fallback_section_title"`
	UseReadability       bool    `yaml:"use_readability"`
	PDFFallbackPdftotext bool    `yaml:"pdf_fallback_pdftotext"`

	// Chunking defaults
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`

	// Conversion stats window
	StatsWindow time.Duration `yaml:"stats_window"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Port:                 "8090",
		StoreBackend:         "memory",
		PathstoreURL:         "http://localhost:8080",
		PathstorePrefix:      "docbridge",
		WorkerCount:          4,
		MaxQueueSize:         100,
		MaxConcurrentStore:   10,
		MaxUploadBytes:       52428800, // 50MB
		JobTTL:               1 * time.Hour,
		LineGap:              0.5,
		FallbackSectionTitle: "Playbook",
		UseReadability:       false,
		PDFFallbackPdftotext: true,
		ChunkSize:            1500,
		ChunkOverlap:         200,
		StatsWindow:          1 * time.Hour,
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// DOCBRIDGE_CONFIG when set, then environment variables.
func Load() (Config, error) {
	cfg := Defaults()
	if path := os.Getenv(FileEnv); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	cfg.clamp()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) applyEnv() {
	c.Port = envOr("PORT", c.Port)
	c.APIKey = envOr("DOCBRIDGE_API_KEY", c.APIKey)

	c.StoreBackend = envOr("STORE_BACKEND", c.StoreBackend)
	c.PathstoreURL = envOr("PATHSTORE_URL", c.PathstoreURL)
	c.PathstoreAPIKey = envOr("PATHSTORE_API_KEY", c.PathstoreAPIKey)
	c.PathstorePrefix = envOr("PATHSTORE_PREFIX", c.PathstorePrefix)

	c.WorkerCount = envInt("WORKER_COUNT", c.WorkerCount)
	c.MaxQueueSize = envInt("MAX_QUEUE_SIZE", c.MaxQueueSize)
	c.MaxConcurrentStore = envInt("MAX_CONCURRENT_STORE", c.MaxConcurrentStore)

	c.MaxUploadBytes = envInt64("MAX_UPLOAD_BYTES", c.MaxUploadBytes)
	c.JobTTL = envDuration("JOB_TTL", c.JobTTL)

	c.LineGap = envFloat("LINE_GAP", c.LineGap)
	c.FallbackSectionTitle = envOr("FALLBACK_SECTION_TITLE", c.FallbackSectionTitle)
	c.UseReadability = envBool("USE_READABILITY", c.UseReadability)
	c.PDFFallbackPdftotext = envBool("PDF_FALLBACK_PDFTOTEXT", c.PDFFallbackPdftotext)

	c.ChunkSize = envInt("CHUNK_SIZE", c.ChunkSize)
	c.ChunkOverlap = envInt("CHUNK_OVERLAP", c.ChunkOverlap)

	c.StatsWindow = envDuration("STATS_WINDOW", c.StatsWindow)
}

// clamp replaces non-positive numeric settings with their defaults.
func (c *Config) clamp() {
	def := Defaults()
	if c.WorkerCount <= 0 {
		c.WorkerCount = def.WorkerCount
	}
	if c.MaxQueueSize <= 0 {
		c.MaxQueueSize = def.MaxQueueSize
	}
	if c.MaxConcurrentStore <= 0 {
		c.MaxConcurrentStore = def.MaxConcurrentStore
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = def.MaxUploadBytes
	}
	if c.JobTTL <= 0 {
		c.JobTTL = def.JobTTL
	}
	if c.LineGap <= 0 {
		c.LineGap = def.LineGap
	}
	if c.FallbackSectionTitle == "" {
		c.FallbackSectionTitle = def.FallbackSectionTitle
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = def.ChunkSize
	}
	if c.ChunkOverlap < 0 {
		c.ChunkOverlap = def.ChunkOverlap
	}
	if c.StatsWindow <= 0 {
		c.StatsWindow = def.StatsWindow
	}
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("DOCBRIDGE_API_KEY is required")
	}
	switch c.StoreBackend {
	case "memory":
	case "pathstore":
		if c.PathstoreURL == "" {
			return fmt.Errorf("PATHSTORE_URL is required for the pathstore backend")
		}
		if c.PathstoreAPIKey == "" {
			return fmt.Errorf("PATHSTORE_API_KEY is required for the pathstore backend")
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be memory or pathstore, got %q", c.StoreBackend)
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("CHUNK_OVERLAP (%d) must be smaller than CHUNK_SIZE (%d)", c.ChunkOverlap, c.ChunkSize)
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
