package common

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Database   DatabaseConfig
	Server     ServerConfig
	OCR        OCRConfig
	Rules      RulesConfig
	Extraction ExtractionConfig
	Workers    WorkersConfig
	Ingest     IngestConfig
	LogLevel   string
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver           string // "postgres" | "sqlite"
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
	AutoMigrate      bool
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr string
	GRPCAddr string
}

// OCRConfig holds recognizer-related configuration
type OCRConfig struct {
	Engine              string // "cli" | "gosseract"
	Pdftotext           string
	Tesseract           string
	Language            string
	TessdataDir         string
	HeicConverter       string
	MaxRetries          int
	RetryBackoff        time.Duration
	Timeout             time.Duration
	ConfidenceThreshold float64
	CacheTTL            time.Duration
}

// RulesConfig holds the NBR 6118 thresholds and cost factors.
type RulesConfig struct {
	MinFck          float64
	MaxFck          float64
	PillarMinSteel  float64
	PillarMaxSteel  float64
	BeamMinSteel    float64
	BeamMaxSteel    float64
	SlabMinSteel    float64
	SlabMaxSteel    float64
	ConcreteDensity float64
	SteelDensity    float64
	SafetyFactor    float64
	ConcreteCost    float64
	SteelCost       float64
}

// ExtractionConfig holds defaults applied to element drafts.
type ExtractionConfig struct {
	DefaultFck          float64
	DefaultMemberLength float64
	DefaultSlabWidth    float64
	DefaultSlabLength   float64
}

// WorkersConfig holds background pool configuration
type WorkersConfig struct {
	Count      int
	QueueSize  int
	JobTimeout time.Duration
}

// IngestConfig holds drawing discovery settings
type IngestConfig struct {
	WatchDebounce time.Duration
}

// LoadConfig loads configuration from environment variables.
// A .env file in the working directory is read first when present.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		Database: DatabaseConfig{
			Driver:           getEnv("DB_DRIVER", "postgres"),
			DSN:              getEnv("DB_URL", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 5),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
			AutoMigrate:      getEnvAsBool("DB_AUTO_MIGRATE", true),
		},
		Server: ServerConfig{
			HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
			GRPCAddr: getEnv("GRPC_ADDR", ":9090"),
		},
		OCR: OCRConfig{
			Engine:              getEnv("OCR_ENGINE", "cli"),
			Pdftotext:           getEnv("PDFTOTEXT_BIN", "pdftotext"),
			Tesseract:           getEnv("TESSERACT_BIN", "tesseract"),
			Language:            getEnv("OCR_LANG", "por"),
			TessdataDir:         getEnv("TESSDATA_PREFIX", ""),
			HeicConverter:       getEnv("HEIC_CONVERTER", "magick"),
			MaxRetries:          getEnvAsInt("OCR_MAX_RETRIES", 3),
			RetryBackoff:        getEnvAsDuration("OCR_RETRY_BACKOFF", time.Second),
			Timeout:             getEnvAsDuration("OCR_TIMEOUT", 30*time.Second),
			ConfidenceThreshold: getEnvAsFloat64("OCR_CONFIDENCE_THRESHOLD", 0.7),
			CacheTTL:            getEnvAsDuration("OCR_CACHE_TTL", 10*time.Minute),
		},
		Rules: RulesConfig{
			MinFck:          getEnvAsFloat64("RULES_MIN_FCK", 20),
			MaxFck:          getEnvAsFloat64("RULES_MAX_FCK", 90),
			PillarMinSteel:  getEnvAsFloat64("RULES_PILLAR_MIN_STEEL", 0.004),
			PillarMaxSteel:  getEnvAsFloat64("RULES_PILLAR_MAX_STEEL", 0.04),
			BeamMinSteel:    getEnvAsFloat64("RULES_BEAM_MIN_STEEL", 0.0015),
			BeamMaxSteel:    getEnvAsFloat64("RULES_BEAM_MAX_STEEL", 0.025),
			SlabMinSteel:    getEnvAsFloat64("RULES_SLAB_MIN_STEEL", 0.001),
			SlabMaxSteel:    getEnvAsFloat64("RULES_SLAB_MAX_STEEL", 0.02),
			ConcreteDensity: getEnvAsFloat64("RULES_CONCRETE_DENSITY", 2400),
			SteelDensity:    getEnvAsFloat64("RULES_STEEL_DENSITY", 7850),
			SafetyFactor:    getEnvAsFloat64("RULES_SAFETY_FACTOR", 1.4),
			ConcreteCost:    getEnvAsFloat64("RULES_CONCRETE_COST", 300),
			SteelCost:       getEnvAsFloat64("RULES_STEEL_COST", 8),
		},
		Extraction: ExtractionConfig{
			DefaultFck:          getEnvAsFloat64("EXTRACT_DEFAULT_FCK", 25),
			DefaultMemberLength: getEnvAsFloat64("EXTRACT_DEFAULT_MEMBER_LENGTH", 300),
			DefaultSlabWidth:    getEnvAsFloat64("EXTRACT_DEFAULT_SLAB_WIDTH", 100),
			DefaultSlabLength:   getEnvAsFloat64("EXTRACT_DEFAULT_SLAB_LENGTH", 100),
		},
		Workers: WorkersConfig{
			Count:      getEnvAsInt("WORKERS", 4),
			QueueSize:  getEnvAsInt("WORKER_QUEUE_SIZE", 256),
			JobTimeout: getEnvAsDuration("WORKER_JOB_TIMEOUT", 3*time.Minute),
		},
		Ingest: IngestConfig{
			WatchDebounce: getEnvAsDuration("INGEST_WATCH_DEBOUNCE", 500*time.Millisecond),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.Database.Driver != "postgres" && c.Database.Driver != "sqlite" {
		return NewAppError("CONFIG_ERROR", "DB_DRIVER must be postgres or sqlite", ErrInvalidInput)
	}
	if c.Server.HTTPAddr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	if c.OCR.MaxRetries < 1 {
		return NewAppError("CONFIG_ERROR", "OCR_MAX_RETRIES must be at least 1", ErrInvalidInput)
	}
	if c.OCR.ConfidenceThreshold < 0 || c.OCR.ConfidenceThreshold > 1 {
		return NewAppError("CONFIG_ERROR", "OCR_CONFIDENCE_THRESHOLD must be within [0,1]", ErrInvalidInput)
	}
	if c.Rules.MinFck <= 0 || c.Rules.MaxFck <= c.Rules.MinFck {
		return NewAppError("CONFIG_ERROR", "RULES_MIN_FCK/RULES_MAX_FCK out of range", ErrInvalidInput)
	}
	if c.Extraction.DefaultFck <= 0 || c.Extraction.DefaultMemberLength <= 0 ||
		c.Extraction.DefaultSlabWidth <= 0 || c.Extraction.DefaultSlabLength <= 0 {
		return NewAppError("CONFIG_ERROR", "extraction defaults must be positive", ErrInvalidInput)
	}
	return nil
}
