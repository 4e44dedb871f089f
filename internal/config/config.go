package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the process needs before the database is open.
// Shop-level preferences (name, theme, backup schedule) live in the settings table instead.
type Config struct {
	Port         string
	DBDriver     string
	DBDSN        string
	DBDebug      bool
	DataDir      string
	LogFile      string
	ReceiptDir   string
	BackupDir    string
	JWTSecret    string
	TokenTTL     time.Duration
	CORSOrigins  []string
	GeminiAPIKey string
	GeminiModel  string
}

// Load reads the environment (after an optional .env file) and fills in defaults.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: No .env file found")
	}

	dataDir := getEnv("DATA_DIR", "data")
	cfg := Config{
		Port:         getEnv("PORT", "8080"),
		DBDriver:     strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
		DataDir:      dataDir,
		LogFile:      getEnv("LOG_FILE", filepath.Join(dataDir, "app.log")),
		ReceiptDir:   getEnv("RECEIPT_DIR", "receipts"),
		BackupDir:    getEnv("BACKUP_DIR", filepath.Join(dataDir, "backups")),
		JWTSecret:    getEnv("JWT_SECRET", "change-me-shop-pos-secret"),
		TokenTTL:     getDuration("TOKEN_TTL", 12*time.Hour),
		CORSOrigins:  splitList(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.0-flash-001"),
		DBDebug:      ParseBool("DB_DEBUG", false),
	}
	cfg.DBDSN = getEnv("DB_DSN", filepath.Join(dataDir, "shop.db"))
	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("invalid duration for %s: %s", key, v)
		return def
	}
	return d
}

// ParseBool reads an env var as bool with default.
func ParseBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			log.Printf("invalid boolean for %s: %s", key, v)
			return def
		}
		return b
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
