package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// Profile is the configuration to start the notes server.
type Profile struct {
	// Mode can be "prod" or "dev"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory
	Data string
	// DSN points to where notes are stored
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// BaseURL is the public url of this server, used for published page links.
	BaseURL string

	// AI Configuration
	AIEmbeddingProvider string // NOTES_AI_EMBEDDING_PROVIDER (default: openai)
	AILLMProvider       string // NOTES_AI_LLM_PROVIDER (default: openai)
	AIOpenAIAPIKey      string // NOTES_AI_OPENAI_API_KEY (falls back to OPENAI_API_KEY)
	AIOpenAIBaseURL     string // NOTES_AI_OPENAI_BASE_URL (default: https://api.openai.com/v1)
	AIDeepSeekAPIKey    string // NOTES_AI_DEEPSEEK_API_KEY
	AIDeepSeekBaseURL   string // NOTES_AI_DEEPSEEK_BASE_URL (default: https://api.deepseek.com)
	AIOllamaBaseURL     string // NOTES_AI_OLLAMA_BASE_URL (default: http://localhost:11434)
	AIEmbeddingModel    string // NOTES_AI_EMBEDDING_MODEL (default: text-embedding-3-small)
	AIEmbeddingDims     int    // NOTES_AI_EMBEDDING_DIMENSIONS (default: 1536)
	AILLMModel          string // NOTES_AI_LLM_MODEL (default: gpt-4o-mini)

	// Retrieval and answering
	DomainTags  []string // NOTES_DOMAIN_TAGS, comma separated
	TopN        int      // NOTES_TOP_N (default: 3)
	References  string   // NOTES_REFERENCES: text or page (default: text)
	AnswerStyle string   // NOTES_ANSWER_STYLE (default: Telegram MarkdownV2)

	// Page publishing, used when References is "page"
	PageStorage     string // NOTES_PAGE_STORAGE: local or s3 (default: local)
	S3Endpoint      string // NOTES_S3_ENDPOINT
	S3AccessKey     string // NOTES_S3_ACCESS_KEY
	S3SecretKey     string // NOTES_S3_SECRET_KEY
	S3Bucket        string // NOTES_S3_BUCKET
	S3PublicURL     string // NOTES_S3_PUBLIC_URL
	S3UseSSL        bool   // NOTES_S3_USE_SSL
	LivenessSeconds int    // NOTES_LIVENESS_INTERVAL_SECONDS (default: 300)

	// Front-end access control
	AllowedChatHashes []string // NOTES_ALLOWED_CHAT_HASHES, comma separated sha256 hex
	AllowedUsername   string   // NOTES_ALLOWED_USERNAME
}

// DefaultDomainTags is the closed vocabulary used for domain classification.
var DefaultDomainTags = []string{"dev-ideas", "lessons", "data-engineering", "life"}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// LoadDotEnv loads a .env file into the process environment if present.
// Variables that are already set are left untouched.
func LoadDotEnv(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			slog.Warn("failed to load env file", "path", path, "error", err)
		}
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnvOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		slog.Warn("invalid integer in environment", "key", key, "value", value)
		return defaultValue
	}
	return n
}

func splitList(value string) []string {
	var list []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}

// FromEnv loads AI, retrieval and publishing configuration from environment variables.
func (p *Profile) FromEnv() {
	p.AIEmbeddingProvider = getEnvOrDefault("NOTES_AI_EMBEDDING_PROVIDER", "openai")
	p.AILLMProvider = getEnvOrDefault("NOTES_AI_LLM_PROVIDER", "openai")
	p.AIOpenAIAPIKey = getEnvOrDefault("NOTES_AI_OPENAI_API_KEY", os.Getenv("OPENAI_API_KEY"))
	p.AIOpenAIBaseURL = getEnvOrDefault("NOTES_AI_OPENAI_BASE_URL", "https://api.openai.com/v1")
	p.AIDeepSeekAPIKey = os.Getenv("NOTES_AI_DEEPSEEK_API_KEY")
	p.AIDeepSeekBaseURL = getEnvOrDefault("NOTES_AI_DEEPSEEK_BASE_URL", "https://api.deepseek.com")
	p.AIOllamaBaseURL = getEnvOrDefault("NOTES_AI_OLLAMA_BASE_URL", "http://localhost:11434")
	p.AIEmbeddingModel = getEnvOrDefault("NOTES_AI_EMBEDDING_MODEL", "text-embedding-3-small")
	p.AIEmbeddingDims = getIntEnvOrDefault("NOTES_AI_EMBEDDING_DIMENSIONS", 1536)
	p.AILLMModel = getEnvOrDefault("NOTES_AI_LLM_MODEL", "gpt-4o-mini")

	p.DomainTags = splitList(os.Getenv("NOTES_DOMAIN_TAGS"))
	p.TopN = getIntEnvOrDefault("NOTES_TOP_N", 3)
	p.References = getEnvOrDefault("NOTES_REFERENCES", "text")
	p.AnswerStyle = getEnvOrDefault("NOTES_ANSWER_STYLE", "Telegram MarkdownV2")

	p.PageStorage = getEnvOrDefault("NOTES_PAGE_STORAGE", "local")
	p.S3Endpoint = os.Getenv("NOTES_S3_ENDPOINT")
	p.S3AccessKey = os.Getenv("NOTES_S3_ACCESS_KEY")
	p.S3SecretKey = os.Getenv("NOTES_S3_SECRET_KEY")
	p.S3Bucket = os.Getenv("NOTES_S3_BUCKET")
	p.S3PublicURL = os.Getenv("NOTES_S3_PUBLIC_URL")
	p.S3UseSSL = os.Getenv("NOTES_S3_USE_SSL") == "true"
	p.LivenessSeconds = getIntEnvOrDefault("NOTES_LIVENESS_INTERVAL_SECONDS", 300)

	p.AllowedChatHashes = splitList(os.Getenv("NOTES_ALLOWED_CHAT_HASHES"))
	p.AllowedUsername = os.Getenv("NOTES_ALLOWED_USERNAME")
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		absDir, err := filepath.Abs(dataDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	dataDir = strings.TrimRight(dataDir, "\\/")
	if err := os.MkdirAll(dataDir, 0o770); err != nil {
		return "", errors.Wrapf(err, "unable to create data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "dev"
	}
	if p.Data == "" {
		p.Data = "./data"
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data dir", slog.String("data", p.Data), slog.String("error", err.Error()))
		return err
	}
	p.Data = dataDir

	switch p.Driver {
	case "":
		p.Driver = "sqlite"
	case "sqlite", "postgres":
	default:
		return errors.Errorf("unsupported driver %q", p.Driver)
	}
	if p.Driver == "sqlite" && p.DSN == "" {
		p.DSN = filepath.Join(dataDir, fmt.Sprintf("notes_%s.db", p.Mode))
	}
	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("dsn is required for the postgres driver")
	}

	if len(p.DomainTags) == 0 {
		p.DomainTags = append([]string(nil), DefaultDomainTags...)
	}
	if p.TopN <= 0 {
		p.TopN = 3
	}
	if p.References != "text" && p.References != "page" {
		return errors.Errorf("unsupported references strategy %q", p.References)
	}
	if p.LivenessSeconds <= 0 {
		p.LivenessSeconds = 300
	}
	if p.BaseURL == "" {
		p.BaseURL = fmt.Sprintf("http://localhost:%d", p.Port)
	}
	return nil
}

// PageDir is where locally published pages live.
func (p *Profile) PageDir() string {
	return filepath.Join(p.Data, "pages")
}
