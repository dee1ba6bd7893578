package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds server configuration.
type Config struct {
	Port      string
	LogLevel  string
	LogFormat string

	// Owner is the deployment owner address; empty selects dev account 0.
	Owner           string
	InitialBalance  string
	PolicyFile      string
	JournalDriver   string // memory | sqlite | postgres
	DatabaseURL     string
	SQLitePath      string
	DataDir         string
	JWTSecret       string
	RateLimitRPM    int
	RateLimitBurst  int
	RedisAddr       string
	OTelEnabled     bool
	OTelEndpoint    string
	ArchiveType     string // fs | s3 | gcs
	ArchiveBucket   string
	ArchivePrefix   string
	ArchiveRegion   string
	ArchiveEndpoint string
}

// Load loads configuration from environment variables.
func Load() *Config {
	dataDir := getenv("DATA_DIR", "data")

	return &Config{
		Port:            getenv("PORT", "8080"),
		LogLevel:        getenv("LOG_LEVEL", "INFO"),
		LogFormat:       getenv("LOG_FORMAT", "json"),
		Owner:           os.Getenv("CHARTER_OWNER"),
		InitialBalance:  getenv("CHARTER_INITIAL_BALANCE", "0"),
		PolicyFile:      os.Getenv("CHARTER_POLICY_FILE"),
		JournalDriver:   strings.ToLower(getenv("JOURNAL_DRIVER", "memory")),
		DatabaseURL:     getenv("DATABASE_URL", "postgres://charter@localhost:5432/charter?sslmode=disable"),
		SQLitePath:      getenv("SQLITE_PATH", dataDir+"/charter.db"),
		DataDir:         dataDir,
		JWTSecret:       os.Getenv("JWT_SECRET"),
		RateLimitRPM:    getint("RATE_LIMIT_RPM", 600),
		RateLimitBurst:  getint("RATE_LIMIT_BURST", 50),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		OTelEnabled:     os.Getenv("OTEL_ENABLED") == "true",
		OTelEndpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		ArchiveType:     strings.ToLower(getenv("ARCHIVE_TYPE", "fs")),
		ArchiveBucket:   os.Getenv("ARCHIVE_BUCKET"),
		ArchivePrefix:   os.Getenv("ARCHIVE_PREFIX"),
		ArchiveRegion:   getenv("ARCHIVE_REGION", "us-east-1"),
		ArchiveEndpoint: os.Getenv("ARCHIVE_ENDPOINT"),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getint(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
