package config

import (
	"encoding/hex"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	ServerPort      string
	MySQLDSN        string
	RedisAddr       string
	RedisDB         int
	RedisPass       string
	JWTSecret       string
	CredentialsKey  []byte
	BaseURL         string
	ProviderTimeout time.Duration
	SwaggerHost     string
}

// Load builds Config from environment with sensible defaults. A local .env
// file is read first when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerPort:      getEnv("SERVER_PORT", "8080"),
		MySQLDSN:        getEnv("MYSQL_DSN", "user:password@tcp(localhost:3306)/app?charset=utf8mb4&parseTime=True&loc=Local"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:         getEnvInt("REDIS_DB", 0),
		RedisPass:       os.Getenv("REDIS_PASSWORD"),
		JWTSecret:       getEnv("JWT_SECRET", "change-me"),
		CredentialsKey:  getEnvKey("CREDENTIALS_KEY"),
		BaseURL:         getEnv("BASE_URL", "http://localhost:8080"),
		ProviderTimeout: getEnvDuration("PROVIDER_TIMEOUT", 15*time.Second),
		SwaggerHost:     os.Getenv("SWAGGER_HOST"),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return def
}

// getEnvKey decodes a hex-encoded 32-byte key. An empty or malformed value
// returns nil; the vault rejects nil keys at construction so a misconfigured
// deployment fails at startup rather than at first use.
func getEnvKey(key string) []byte {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	decoded, err := hex.DecodeString(v)
	if err != nil {
		return nil
	}
	return decoded
}
