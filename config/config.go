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
	Port      string
	LogLevel  string
	LogFormat string // "json" or "console"
	DBPath    string // badger conversation store

	Gemini     GeminiConfig
	SQL        SQLConfig
	Assistant  AssistantConfig
	Enrichment EnrichmentConfig
}

type GeminiConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	SpeechModel    string
	SpeechVoice    string
	Timeout        time.Duration
	GateCapacity   int
	MaxRetries     int
	RetryBaseDelay time.Duration
}

type SQLConfig struct {
	Driver   string // "sqlserver" or "pgx"
	DSN      string // overrides the fields below when set
	Server   string
	Port     string
	Database string
	UserID   string
	Password string
	Encrypt  bool

	StatementTimeout time.Duration
}

type AssistantConfig struct {
	ConversationWindow int
	AskRowCap          int
	PlanRowCap         int
	MaxPlanSteps       int
	ToolResultWarnSize int
}

type EnrichmentConfig struct {
	OpenLibraryURL string
	Timeout        time.Duration
	CacheTTL       time.Duration
}

// GetConfig reads the environment, after loading an optional .env file.
func GetConfig() Config {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	return Config{
		Port:      getEnv("PORT", "9090"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
		DBPath:    getEnv("DB_PATH", "./data/badger"),
		Gemini: GeminiConfig{
			APIKey:         getEnv("GEMINI_API_KEY", ""),
			BaseURL:        getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
			Model:          getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			SpeechModel:    getEnv("GEMINI_SPEECH_MODEL", "gemini-2.5-flash-preview-tts"),
			SpeechVoice:    getEnv("GEMINI_SPEECH_VOICE", "Kore"),
			Timeout:        getEnvDuration("GEMINI_TIMEOUT", 120*time.Second),
			GateCapacity:   getEnvInt("GEMINI_MAX_CONCURRENCY", 3),
			MaxRetries:     getEnvInt("GEMINI_MAX_RETRIES", 3),
			RetryBaseDelay: getEnvDuration("GEMINI_RETRY_BASE_DELAY", 2*time.Second),
		},
		SQL: SQLConfig{
			Driver:           getEnv("DB_DRIVER", "sqlserver"),
			DSN:              getEnv("SQL_DSN", ""),
			Server:           getEnv("SQL_SERVER", ""),
			Port:             getEnv("SQL_PORT", "1433"),
			Database:         getEnv("SQL_DATABASE", ""),
			UserID:           getEnv("SQL_USER", ""),
			Password:         getEnv("SQL_PASSWORD", ""),
			Encrypt:          getEnv("SQL_ENCRYPT", "true") == "true",
			StatementTimeout: getEnvDuration("SQL_STATEMENT_TIMEOUT", 15*time.Second),
		},
		Assistant: AssistantConfig{
			ConversationWindow: getEnvInt("ASSISTANT_WINDOW", 12),
			AskRowCap:          getEnvInt("ASSISTANT_ASK_ROW_CAP", 100),
			PlanRowCap:         getEnvInt("ASSISTANT_PLAN_ROW_CAP", 25),
			MaxPlanSteps:       getEnvInt("ASSISTANT_MAX_PLAN_STEPS", 2),
			ToolResultWarnSize: getEnvInt("ASSISTANT_TOOL_RESULT_WARN_BYTES", 30000),
		},
		Enrichment: EnrichmentConfig{
			OpenLibraryURL: getEnv("OPENLIBRARY_URL", "https://openlibrary.org"),
			Timeout:        getEnvDuration("ENRICHMENT_TIMEOUT", 10*time.Second),
			CacheTTL:       getEnvDuration("ENRICHMENT_CACHE_TTL", time.Hour),
		},
	}
}

// HasDatastore reports whether enough SQL settings are present to open a pool.
func (c SQLConfig) HasDatastore() bool {
	return c.DSN != "" || (c.Server != "" && c.Database != "")
}

// Validate reports settings the service cannot start without.
func (c Config) Validate() error {
	var problems []string
	if c.Gemini.APIKey == "" {
		problems = append(problems, "GEMINI_API_KEY is not set")
	}
	if c.Gemini.GateCapacity < 1 {
		problems = append(problems, "GEMINI_MAX_CONCURRENCY must be at least 1")
	}
	switch c.SQL.Driver {
	case "sqlserver", "pgx":
	default:
		problems = append(problems, fmt.Sprintf("DB_DRIVER %q is not supported", c.SQL.Driver))
	}
	if c.Assistant.PlanRowCap < 1 || c.Assistant.AskRowCap < 1 {
		problems = append(problems, "row caps must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
