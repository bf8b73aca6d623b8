package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	CORS      CORSConfig
	Cache     CacheConfig
	Import    ImportConfig
	Predictor PredictorConfig
}

type ServerConfig struct {
	Port int
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

func (d DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

type RedisConfig struct {
	Enabled      bool
	Host         string
	Port         int
	Password     string
	DB           int
	PingAttempts int
}

type CORSConfig struct {
	// AllowedOrigins is a comma separated list, or "*".
	AllowedOrigins string
}

type CacheConfig struct {
	TTLSeconds int
}

func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

type ImportConfig struct {
	CSVPath string
	// MetricsAddr serves /metrics and /health while the importer runs. Empty
	// disables it.
	MetricsAddr string
}

type PredictorConfig struct {
	CutoffYear int
	Ridge      float64
}

// Load reads a .env file when one exists, then LoadConfig.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return LoadConfig()
}

func LoadConfig() (*Config, error) {
	serverPort, err := getIntEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	dbPort, err := getIntEnv("DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	redisPort, err := getIntEnv("REDIS_PORT", 6379)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_PORT: %w", err)
	}
	redisDB, err := getIntEnv("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	redisAttempts, err := getIntEnv("REDIS_PING_ATTEMPTS", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_PING_ATTEMPTS: %w", err)
	}
	redisEnabled, err := getBoolEnv("REDIS_ENABLED", true)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_ENABLED: %w", err)
	}

	cacheTTL, err := getIntEnv("CACHE_TTL_SECONDS", 300)
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_TTL_SECONDS: %w", err)
	}

	cutoff, err := getIntEnv("PREDICTOR_CUTOFF_YEAR", 2024)
	if err != nil {
		return nil, fmt.Errorf("invalid PREDICTOR_CUTOFF_YEAR: %w", err)
	}
	ridge, err := getFloatEnv("PREDICTOR_RIDGE", 1e-6)
	if err != nil {
		return nil, fmt.Errorf("invalid PREDICTOR_RIDGE: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: serverPort,
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DB_USER", "inspections"),
			Password: getEnv("DB_PASSWORD", "inspections_dev_password"),
			Name:     getEnv("DB_NAME", "inspections"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Enabled:      redisEnabled,
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         redisPort,
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           redisDB,
			PingAttempts: redisAttempts,
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
		},
		Cache: CacheConfig{
			TTLSeconds: cacheTTL,
		},
		Import: ImportConfig{
			CSVPath:     getEnv("IMPORT_CSV_PATH", "data/inspections.csv"),
			MetricsAddr: getEnv("IMPORT_METRICS_ADDR", ""),
		},
		Predictor: PredictorConfig{
			CutoffYear: cutoff,
			Ridge:      ridge,
		},
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getIntEnv(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

func getFloatEnv(key string, fallback float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(value, 64)
}

func getBoolEnv(key string, fallback bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	return strconv.ParseBool(value)
}
