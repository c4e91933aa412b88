package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port                    string
	Env                     string
	PostgresConnStr         string
	MongoURI                string
	FirebaseCredentialsPath string
	FirebaseStorageBucket   string
	MongoDBName             string
	JWTSecret               string
	NatsURL                 string
	MemcachedURL            string
	MetricsPort             string
	RetentionDays           int
}

func Load() *Config {
	return &Config{
		Port:                    getEnv("PORT", "8080"),
		Env:                     getEnv("ENV", "development"),
		PostgresConnStr:         getEnv("POSTGRES_CONN_STR", ""),
		MongoURI:                getEnv("MONGO_URI", ""),
		FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", "./firebase_credentials.json"),
		FirebaseStorageBucket:   getEnv("FIREBASE_STORAGE_BUCKET", ""),
		MongoDBName:             getEnv("MONGO_DB", "ripplefeed"),
		JWTSecret:               getEnv("JWT_SECRET", "supersecretjwtkey"),
		NatsURL:                 getEnv("NATS_URL", ""),
		MemcachedURL:            getEnv("MEM_URL", ""),
		MetricsPort:             getEnv("METRICS_PORT", "9090"),
		RetentionDays:           getEnvInt("RETENTION_DAYS", 30),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}
