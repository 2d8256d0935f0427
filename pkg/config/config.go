package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	StoreFirestore = "firestore"
	StoreMemory    = "memory"
)

type Config struct {
	ServerPort             string
	FirebaseProject        string
	Environment            string
	StoreDriver            string
	ServiceAccountJSON     string
	ServiceAccountPath     string
	RedisURL               string
	SeedFile               string
	SendMessageRatePerMin  int
	CreateThreadRatePerMin int
}

func Load() (*Config, error) {
	godotenv.Load()

	config := &Config{
		ServerPort:             getEnv("SERVER_PORT", "8080"),
		FirebaseProject:        getEnv("FIREBASE_PROJECT_ID", ""),
		Environment:            getEnv("ENVIRONMENT", "development"),
		StoreDriver:            getEnv("STORE_DRIVER", StoreFirestore),
		ServiceAccountJSON:     getEnv("FIREBASE_SERVICE_ACCOUNT_JSON", ""),
		ServiceAccountPath:     getEnv("FIREBASE_SERVICE_ACCOUNT_PATH", ""),
		RedisURL:               getEnv("REDIS_URL", ""),
		SeedFile:               getEnv("SEED_FILE", ""),
		SendMessageRatePerMin:  getEnvAsInt("RATE_LIMIT_SEND_PER_MIN", 30),
		CreateThreadRatePerMin: getEnvAsInt("RATE_LIMIT_CREATE_PER_MIN", 10),
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case StoreFirestore:
		if c.FirebaseProject == "" {
			return fmt.Errorf("FIREBASE_PROJECT_ID is required when STORE_DRIVER=%s", StoreFirestore)
		}
	case StoreMemory:
		if c.Environment == "production" {
			return fmt.Errorf("STORE_DRIVER=%s is not allowed in production", StoreMemory)
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		intValue, err := strconv.Atoi(value)
		if err == nil {
			return intValue
		}
	}
	return defaultValue
}
