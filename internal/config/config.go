package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Gemini   GeminiConfig
	JustTCG  JustTCGConfig
	Catalogs CatalogConfig
	Cache    CacheConfig
	Verifier VerifierConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Port        string
	DBPath      string
	ImagesDir   string
	CORSOrigins []string
}

type GeminiConfig struct {
	APIKey    string
	Model     string
	CacheSize int
}

type JustTCGConfig struct {
	APIKey     string
	DailyLimit int
}

// CatalogConfig holds the upstream catalog endpoints. Empty base URLs use the
// public defaults baked into each client.
type CatalogConfig struct {
	Timeout           time.Duration
	TCGdexBaseURL     string
	YGOProDeckBaseURL string
	OPTCGBaseURL      string
	ScryfallBaseURL   string
}

type CacheConfig struct {
	PriceTTL         time.Duration
	MetadataTTL      time.Duration
	BatchConcurrency int
}

// VerifierConfig tunes the verification ladder
type VerifierConfig struct {
	// Accept a card found only by set and number when the name disagrees
	PreferNumberFallback bool
	MaxNumberDistance    int
}

type LoggingConfig struct {
	Level string
	File  string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			DBPath:      getEnv("DB_PATH", "./tcg_identify.db"),
			ImagesDir:   getEnv("SCANNED_IMAGES_DIR", "./data/scanned_images"),
			CORSOrigins: parseCommaSeparated(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000")),
		},
		Gemini: GeminiConfig{
			APIKey:    loadGoogleAPIKey(),
			Model:     getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			CacheSize: getEnvInt("ORACLE_CACHE_SIZE", 128),
		},
		JustTCG: JustTCGConfig{
			APIKey:     getEnv("JUSTTCG_API_KEY", ""),
			DailyLimit: getEnvInt("JUSTTCG_DAILY_LIMIT", 100), // free tier
		},
		Catalogs: CatalogConfig{
			Timeout:           time.Duration(getEnvInt("CATALOG_TIMEOUT_SECONDS", 10)) * time.Second,
			TCGdexBaseURL:     getEnv("TCGDEX_BASE_URL", ""),
			YGOProDeckBaseURL: getEnv("YGOPRODECK_BASE_URL", ""),
			OPTCGBaseURL:      getEnv("OPTCG_BASE_URL", ""),
			ScryfallBaseURL:   getEnv("SCRYFALL_BASE_URL", ""),
		},
		Cache: CacheConfig{
			PriceTTL:         time.Duration(getEnvInt("PRICE_CACHE_TTL_HOURS", 24)) * time.Hour,
			MetadataTTL:      time.Duration(getEnvInt("METADATA_CACHE_TTL_HOURS", 6)) * time.Hour,
			BatchConcurrency: getEnvInt("BATCH_CONCURRENCY", 8),
		},
		Verifier: VerifierConfig{
			PreferNumberFallback: getEnvBool("PREFER_NUMBER_FALLBACK", true),
			MaxNumberDistance:    getEnvInt("MAX_NUMBER_DISTANCE", 5),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			File:  getEnv("LOG_FILE", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if c.Catalogs.Timeout <= 0 {
		return fmt.Errorf("CATALOG_TIMEOUT_SECONDS must be positive")
	}
	if c.Cache.BatchConcurrency < 1 || c.Cache.BatchConcurrency > 32 {
		return fmt.Errorf("BATCH_CONCURRENCY must be between 1 and 32")
	}
	if c.Cache.PriceTTL <= 0 || c.Cache.MetadataTTL <= 0 {
		return fmt.Errorf("cache TTLs must be positive")
	}
	if c.Verifier.MaxNumberDistance < 0 {
		return fmt.Errorf("MAX_NUMBER_DISTANCE must not be negative")
	}
	return nil
}

// loadGoogleAPIKey reads GOOGLE_API_KEY, falling back to the file named by
// GOOGLE_API_KEY_FILE (docker secrets).
func loadGoogleAPIKey() string {
	if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
		return key
	}
	if keyPath := os.Getenv("GOOGLE_API_KEY_FILE"); keyPath != "" {
		if data, err := os.ReadFile(keyPath); err == nil {
			return strings.TrimSpace(string(data))
		}
	}
	return ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func parseCommaSeparated(value string) []string {
	if value == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
