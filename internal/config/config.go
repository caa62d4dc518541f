package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath     string
	RawMailDir string
	OutputDir  string
	Timezone   string
	LogLevel   string

	MailProvider string

	AzureTenantID     string
	AzureClientID     string
	AzureClientSecret string
	MailboxUserID     string
	GraphBaseURL      string
	GraphTimeoutMs    int

	GmailClientID     string
	GmailClientSecret string
	GmailRedirectURI  string
	GmailRefreshToken string

	IMAPHost     string
	IMAPPort     int
	IMAPSecure   bool
	IMAPUser     string
	IMAPPassword string
	IMAPMailbox  string

	UploadTarget      string
	UploadDir         string
	SharePointSiteID  string
	SharePointDriveID string
	SharePointFolder  string
	GCSBucket         string
	GCSPrefix         string

	TesseractPath string
	OCRLanguages  []string
	OCRDPI        int
	OCRWorkers    int
	OCRCachePath  string

	AIProvider     string
	GeminiAPIKey   string
	GeminiModel    string
	OllamaURL      string
	OllamaModel    string
	AIRateLimitRPS int

	ListenerIntervalSec int
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:     getEnv("DB_PATH", filepath.Join(cwd, "data", "app.db")),
		RawMailDir: getEnv("RAW_MAIL_DIR", filepath.Join(cwd, "data", "raw")),
		OutputDir:  getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),
		Timezone:   getEnv("TIMEZONE", "Europe/Ljubljana"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),

		MailProvider: strings.ToLower(getEnv("MAIL_PROVIDER", "graph")),

		AzureTenantID:     getEnv("AZURE_TENANT_ID", ""),
		AzureClientID:     getEnv("AZURE_CLIENT_ID", ""),
		AzureClientSecret: getEnv("AZURE_CLIENT_SECRET", ""),
		MailboxUserID:     getEnv("MAILBOX_USER_ID", ""),
		GraphBaseURL:      getEnv("GRAPH_BASE_URL", "https://graph.microsoft.com/v1.0"),
		GraphTimeoutMs:    getEnvInt("GRAPH_TIMEOUT_MS", 30000),

		GmailClientID:     getEnv("GMAIL_CLIENT_ID", ""),
		GmailClientSecret: getEnv("GMAIL_CLIENT_SECRET", ""),
		GmailRedirectURI:  getEnv("GMAIL_REDIRECT_URI", "https://developers.google.com/oauthplayground"),
		GmailRefreshToken: getEnv("GMAIL_REFRESH_TOKEN", ""),

		IMAPHost:     getEnv("IMAP_HOST", ""),
		IMAPPort:     getEnvInt("IMAP_PORT", 993),
		IMAPSecure:   getEnvBool("IMAP_SECURE", true),
		IMAPUser:     getEnv("IMAP_USER", ""),
		IMAPPassword: getEnv("IMAP_PASSWORD", ""),
		IMAPMailbox:  getEnv("IMAP_MAILBOX", "INBOX"),

		UploadTarget:      strings.ToLower(getEnv("UPLOAD_TARGET", "none")),
		UploadDir:         getEnv("UPLOAD_DIR", filepath.Join(cwd, "out", "uploaded")),
		SharePointSiteID:  getEnv("SHAREPOINT_SITE_ID", ""),
		SharePointDriveID: getEnv("SHAREPOINT_DRIVE_ID", ""),
		SharePointFolder:  getEnv("SHAREPOINT_FOLDER", "Price Discrepancies"),
		GCSBucket:         getEnv("GCS_BUCKET", ""),
		GCSPrefix:         getEnv("GCS_PREFIX", ""),

		TesseractPath: getEnv("TESSERACT_PATH", "tesseract"),
		OCRLanguages:  getEnvList("OCR_LANGUAGES", []string{"eng", "slv"}),
		OCRDPI:        getEnvInt("OCR_DPI", 300),
		OCRWorkers:    getEnvInt("OCR_WORKERS", 2),
		OCRCachePath:  getEnv("OCR_CACHE_PATH", filepath.Join(cwd, "data", "ocr-cache.db")),

		AIProvider:     strings.ToLower(getEnv("AI_PROVIDER", "none")),
		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiModel:    getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		OllamaURL:      getEnv("OLLAMA_URL", "http://localhost:11434"),
		OllamaModel:    getEnv("OLLAMA_MODEL", "llama3.1"),
		AIRateLimitRPS: getEnvInt("AI_RATE_LIMIT_RPS", 1),

		ListenerIntervalSec: getEnvInt("LISTENER_INTERVAL_SEC", 900),
	}

	if _, err := cfg.Location(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

// Location resolves Timezone.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}

// getEnvList splits on commas and plus signs, so both "eng,slv" and the
// tesseract form "eng+slv" work.
func getEnvList(key string, fallback []string) []string {
	value := strings.TrimSpace(getEnv(key, ""))
	if value == "" {
		return fallback
	}
	parts := strings.FieldsFunc(value, func(r rune) bool { return r == ',' || r == '+' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
