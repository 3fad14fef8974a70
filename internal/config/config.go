// Package config loads application configuration from environment variables,
// optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers.
const (
	DriverMongo  = "mongo"
	DriverMySQL  = "mysql"
	DriverMemory = "memory"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env            string        // APP_ENV (dev, test, prod)
	Port           string        // APP_PORT
	StoreDriver    string        // STORE_DRIVER: mongo | mysql | memory
	MongoURL       string        // MONGODB_URL
	MongoDatabase  string        // DATABASE_NAME
	DBUser         string        // DB_USER, mysql only
	DBPass         string        // DB_PASS, may be empty
	DBHost         string        // DB_HOST, mysql only
	DBPort         string        // DB_PORT, mysql only
	DBName         string        // DB_NAME, mysql only
	JWTSecret      string        // JWT_SECRET
	AccessTTLMin   int           // ACCESS_TOKEN_TTL_MIN
	BcryptCost     int           // BCRYPT_COST
	LogLevel       string        // LOG_LEVEL
	RequestTimeout time.Duration // REQUEST_TIMEOUT, per handler store calls
}

// Load reads a .env file when present and then the environment.  Every
// missing or malformed required variable is reported in one error.
func Load() (Config, error) {
	_ = godotenv.Load() // a missing .env is normal outside development

	var errs []error
	must := func(key string) string {
		v, ok := os.LookupEnv(key)
		if !ok || strings.TrimSpace(v) == "" {
			errs = append(errs, fmt.Errorf("missing required env var: %s", key))
		}
		return v
	}
	mustInt := func(key string, def int) int {
		s := getenv(key, strconv.Itoa(def))
		n, err := strconv.Atoi(s)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid int for %s: %q", key, s))
		}
		return n
	}

	cfg := Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		StoreDriver:    strings.ToLower(getenv("STORE_DRIVER", DriverMongo)),
		MongoURL:       getenv("MONGODB_URL", "mongodb://localhost:27017"),
		MongoDatabase:  getenv("DATABASE_NAME", "hotel_inventory"),
		DBPass:         os.Getenv("DB_PASS"),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN", 60),
		BcryptCost:     mustInt("BCRYPT_COST", 10),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		RequestTimeout: envDur("REQUEST_TIMEOUT", 5*time.Second),
	}

	switch cfg.StoreDriver {
	case DriverMySQL:
		cfg.DBUser = must("DB_USER")
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = must("DB_PORT")
		cfg.DBName = must("DB_NAME")
	case DriverMongo, DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver))
	}
	if cfg.AccessTTLMin <= 0 {
		errs = append(errs, errors.New("ACCESS_TOKEN_TTL_MIN must be positive"))
	}
	return cfg, errors.Join(errs...)
}
