package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Inbox    InboxConfig
	Parser   ParserConfig
	Load     LoadConfig
}

// DatabaseConfig holds warehouse-related configuration
type DatabaseConfig struct {
	DSN             string
	Dialect         string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
	DDLFile         string
}

// InboxConfig holds email-source configuration
type InboxConfig struct {
	Subject         string
	Label           string
	CredentialsFile string
}

// ParserConfig holds extraction configuration
type ParserConfig struct {
	RulesFile    string
	MappingFile  string
	PdftotextBin string
	OutputDir    string
}

// LoadConfig holds load-mode configuration
type LoadConfig struct {
	Table          string
	MergeKey       string
	HistoricalLoad bool
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:             getEnv("DB_URL", ""),
			Dialect:         getEnv("DB_DIALECT", "postgres"),
			MaxConns:        getEnvAsInt32("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt32("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			DDLFile:         getEnv("DDL_FILE", "salary_data.ddl"),
		},
		Inbox: InboxConfig{
			Subject:         getEnv("EMAIL_SUBJECT", "Salary slip"),
			Label:           getEnv("EMAIL_LABEL", "Paycheck"),
			CredentialsFile: getEnv("GMAIL_CREDENTIALS_FILE", ""),
		},
		Parser: ParserConfig{
			RulesFile:    getEnv("PARSER_CONFIG", "config.json"),
			MappingFile:  getEnv("FIELD_MAPPING", "salary_field_mapping.json"),
			PdftotextBin: getEnv("PDFTOTEXT_BIN", "pdftotext"),
			OutputDir:    getEnv("OUTPUT_DIR", "pdf_files"),
		},
		Load: LoadConfig{
			Table:          getEnv("TABLE_ID", "salary_data"),
			MergeKey:       getEnv("PRIMARY_KEY", "salary_date"),
			HistoricalLoad: getEnvAsBool("HISTORICAL_LOAD", true),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
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

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
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
	if c.Load.Table == "" {
		return NewAppError("CONFIG_ERROR", "TABLE_ID is required", ErrInvalidInput)
	}
	if c.Load.MergeKey == "" {
		return NewAppError("CONFIG_ERROR", "PRIMARY_KEY is required", ErrInvalidInput)
	}
	if c.Parser.RulesFile == "" {
		return NewAppError("CONFIG_ERROR", "PARSER_CONFIG is required", ErrInvalidInput)
	}
	return nil
}
