package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is the configuration to start the main server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory
	Data string
	// DSN points to where voxlog stores its own data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of server
	Version string
	// InstanceURL is the url of your voxlog instance
	InstanceURL string
	// Secret signs the bearer tokens the API accepts
	Secret string

	// AI configuration
	AIEnabled           bool    // VOXLOG_AI_ENABLED
	AIProvider          string  // VOXLOG_AI_PROVIDER (default: openai)
	AIAPIKey            string  // VOXLOG_AI_API_KEY
	AIBaseURL           string  // VOXLOG_AI_BASE_URL (default: https://api.openai.com/v1)
	AIEmbeddingModel    string  // VOXLOG_AI_EMBEDDING_MODEL (default: text-embedding-3-small)
	AIEmbeddingDims     int     // VOXLOG_AI_EMBEDDING_DIMENSIONS (default: 1536)
	AIChatModel         string  // VOXLOG_AI_CHAT_MODEL (default: gpt-4o-mini)
	AIRequestsPerSecond float64 // VOXLOG_AI_REQUESTS_PER_SECOND (default: 4)

	// SMTP configuration for comment notifications
	SMTPHost     string // VOXLOG_SMTP_HOST
	SMTPPort     int    // VOXLOG_SMTP_PORT (default: 587)
	SMTPUsername string // VOXLOG_SMTP_USERNAME
	SMTPPassword string // VOXLOG_SMTP_PASSWORD
	SMTPFrom     string // VOXLOG_SMTP_FROM
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if AI is enabled and an API key is configured.
func (p *Profile) IsAIEnabled() bool {
	return p.AIEnabled && p.AIAPIKey != ""
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FromEnv loads configuration from VOXLOG_* environment variables.
func (p *Profile) FromEnv() {
	p.AIEnabled = os.Getenv("VOXLOG_AI_ENABLED") == "true"
	p.AIProvider = getEnvOrDefault("VOXLOG_AI_PROVIDER", "openai")
	p.AIAPIKey = os.Getenv("VOXLOG_AI_API_KEY")
	p.AIBaseURL = getEnvOrDefault("VOXLOG_AI_BASE_URL", "https://api.openai.com/v1")
	p.AIEmbeddingModel = getEnvOrDefault("VOXLOG_AI_EMBEDDING_MODEL", "text-embedding-3-small")
	p.AIChatModel = getEnvOrDefault("VOXLOG_AI_CHAT_MODEL", "gpt-4o-mini")

	if dims, err := strconv.Atoi(getEnvOrDefault("VOXLOG_AI_EMBEDDING_DIMENSIONS", "1536")); err == nil && dims > 0 {
		p.AIEmbeddingDims = dims
	} else {
		p.AIEmbeddingDims = 1536
	}
	if rps, err := strconv.ParseFloat(getEnvOrDefault("VOXLOG_AI_REQUESTS_PER_SECOND", "4"), 64); err == nil && rps > 0 {
		p.AIRequestsPerSecond = rps
	} else {
		p.AIRequestsPerSecond = 4
	}

	p.SMTPHost = os.Getenv("VOXLOG_SMTP_HOST")
	if port, err := strconv.Atoi(getEnvOrDefault("VOXLOG_SMTP_PORT", "587")); err == nil {
		p.SMTPPort = port
	}
	p.SMTPUsername = os.Getenv("VOXLOG_SMTP_USERNAME")
	p.SMTPPassword = os.Getenv("VOXLOG_SMTP_PASSWORD")
	p.SMTPFrom = os.Getenv("VOXLOG_SMTP_FROM")

	if p.Secret == "" {
		p.Secret = os.Getenv("VOXLOG_SECRET")
	}
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Mode == "prod" && p.Data == "" {
		p.Data = "/var/opt/voxlog"
	}
	if p.Data == "" {
		p.Data = "."
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data dir", slog.String("data", p.Data), slog.String("error", err.Error()))
		return err
	}
	p.Data = dataDir

	if p.Driver != "sqlite" && p.Driver != "postgres" {
		return errors.Errorf("unsupported database driver: %s", p.Driver)
	}
	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("voxlog_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}
	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("dsn is required for the postgres driver")
	}
	if p.Secret == "" {
		// Demo and dev instances get a deterministic secret so tokens
		// survive restarts during local development.
		if p.Mode == "prod" {
			return errors.New("secret is required in prod mode")
		}
		p.Secret = "voxlog-" + p.Mode
	}

	return nil
}
