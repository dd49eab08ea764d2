package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr string

	MongoURI string
	MongoDB  string

	RedisAddr string

	// Optional. Categories come from the built-in list when empty.
	PostgresDSN string

	SecretKey string
	LogLevel  string

	// Upper bound for every document store call made by an operation.
	StoreTimeout time.Duration
	// Attempts of a read-modify-write before reporting a conflict.
	WriteRetries int

	Seed bool
}

// Load reads the given dotenv files (missing files are ignored) and then
// the process environment, which wins over the files.
func Load(files ...string) (*Config, error) {
	env := map[string]string{}
	for _, f := range files {
		fileEnv, err := godotenv.Read(f)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("config: failed reading %s: %w", f, err)
		}
		for k, v := range fileEnv {
			env[k] = v
		}
	}

	get := func(key, fallback string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		if v, ok := env[key]; ok {
			return v
		}
		return fallback
	}

	cfg := &Config{
		HTTPAddr:    get("HTTP_ADDR", ":8080"),
		MongoURI:    get("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDB:     get("MONGODB_DB", "postboard"),
		RedisAddr:   get("REDIS_ADDR", "redis://localhost:6379/0"),
		PostgresDSN: get("POSTGRES_DSN", ""),
		SecretKey:   get("SECRET_KEY", ""),
		LogLevel:    get("LOG_LEVEL", "info"),
	}

	var err error
	cfg.StoreTimeout, err = time.ParseDuration(get("STORE_TIMEOUT", "5s"))
	if err != nil {
		return nil, fmt.Errorf("config: bad STORE_TIMEOUT: %w", err)
	}
	cfg.WriteRetries, err = strconv.Atoi(get("WRITE_RETRIES", "5"))
	if err != nil {
		return nil, fmt.Errorf("config: bad WRITE_RETRIES: %w", err)
	}
	if cfg.WriteRetries < 1 {
		return nil, fmt.Errorf("config: WRITE_RETRIES must be positive, got %d", cfg.WriteRetries)
	}
	cfg.Seed, err = strconv.ParseBool(get("SEED", "false"))
	if err != nil {
		return nil, fmt.Errorf("config: bad SEED: %w", err)
	}

	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("config: SECRET_KEY is required")
	}
	return cfg, nil
}
