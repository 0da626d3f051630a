package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Host           string        `yaml:"host"`
	Port           string        `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	LogLevel       string        `yaml:"log_level"`

	// Capture
	MaxUploadSize     int64         `yaml:"max_upload_size"`
	SessionTTL        time.Duration `yaml:"session_ttl"`
	ImageFetchTimeout time.Duration `yaml:"image_fetch_timeout"`
	AzureAccountName  string        `yaml:"azure_account_name"`
	AzureAccountKey   string        `yaml:"-"`

	// OCR; a zero timeout means unbounded
	OCRLanguages      []string      `yaml:"ocr_languages"`
	OCRTessdataPrefix string        `yaml:"ocr_tessdata_prefix"`
	OCRPreprocess     bool          `yaml:"ocr_preprocess"`
	OCRTimeout        time.Duration `yaml:"ocr_timeout"`

	// Barcode scanning; a zero timeout means unbounded
	ScanTimeout   time.Duration `yaml:"scan_timeout"`
	ScanPrefilter bool          `yaml:"scan_prefilter"`

	// Book lookup
	BookLookupURL     string        `yaml:"book_lookup_url"`
	BookLookupTimeout time.Duration `yaml:"book_lookup_timeout"`
}

func (c *Config) ServerAddress() string {
	// Trim any whitespace from host and port
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Host:              "0.0.0.0",
		Port:              "8080",
		RequestTimeout:    30 * time.Second,
		LogLevel:          "info",
		MaxUploadSize:     10 * 1024 * 1024, // 10MB
		SessionTTL:        15 * time.Minute,
		ImageFetchTimeout: 15 * time.Second,
		OCRLanguages:      []string{"eng"},
		OCRPreprocess:     true,
		ScanPrefilter:     true,
		BookLookupURL:     "https://openlibrary.org",
		BookLookupTimeout: 10 * time.Second,
	}
}

// LoadFromEnv loads a .env file if present, then reads the environment.
func LoadFromEnv() (*Config, error) {
	return Load("")
}

// Load layers defaults, an optional YAML file and the environment, in that order.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Host = getEnvOrDefault("HOST", c.Host)
	c.Port = getEnvOrDefault("PORT", c.Port)
	c.RequestTimeout = parseDurationOrDefault("REQUEST_TIMEOUT", c.RequestTimeout)
	c.LogLevel = getEnvOrDefault("LOG_LEVEL", c.LogLevel)

	c.MaxUploadSize = parseIntOrDefault("MAX_UPLOAD_SIZE", c.MaxUploadSize)
	c.SessionTTL = parseDurationOrDefault("SESSION_TTL", c.SessionTTL)
	c.ImageFetchTimeout = parseDurationOrDefault("IMAGE_FETCH_TIMEOUT", c.ImageFetchTimeout)
	c.AzureAccountName = getEnvOrDefault("AZURE_STORAGE_ACCOUNT", c.AzureAccountName)
	c.AzureAccountKey = getEnvOrDefault("AZURE_STORAGE_KEY", c.AzureAccountKey)

	if langs := os.Getenv("OCR_LANGUAGES"); langs != "" {
		c.OCRLanguages = splitList(langs)
	}
	c.OCRTessdataPrefix = getEnvOrDefault("OCR_TESSDATA_PREFIX", c.OCRTessdataPrefix)
	c.OCRPreprocess = parseBoolOrDefault("OCR_PREPROCESS", c.OCRPreprocess)
	c.OCRTimeout = parseTimeoutOrDefault("OCR_TIMEOUT", c.OCRTimeout)

	c.ScanTimeout = parseTimeoutOrDefault("SCAN_TIMEOUT", c.ScanTimeout)
	c.ScanPrefilter = parseBoolOrDefault("SCAN_PREFILTER", c.ScanPrefilter)

	c.BookLookupURL = getEnvOrDefault("BOOK_LOOKUP_URL", c.BookLookupURL)
	c.BookLookupTimeout = parseDurationOrDefault("BOOK_LOOKUP_TIMEOUT", c.BookLookupTimeout)
}

// Validate checks ranges that would make the service misbehave.
func (c *Config) Validate() error {
	// Validate port is numeric and in range
	p, err := strconv.Atoi(strings.TrimSpace(c.Port))
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid PORT: %q", c.Port)
	}
	if c.MaxUploadSize <= 0 {
		return fmt.Errorf("MAX_UPLOAD_SIZE must be > 0 (got %d)", c.MaxUploadSize)
	}
	if c.RequestTimeout <= 0 || c.ImageFetchTimeout <= 0 || c.BookLookupTimeout <= 0 {
		return fmt.Errorf("timeouts must be > 0 (got request=%s, fetch=%s, lookup=%s)",
			c.RequestTimeout, c.ImageFetchTimeout, c.BookLookupTimeout)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be > 0 (got %s)", c.SessionTTL)
	}
	if c.OCRTimeout < 0 || c.ScanTimeout < 0 {
		return fmt.Errorf("OCR_TIMEOUT and SCAN_TIMEOUT must not be negative")
	}
	if len(c.OCRLanguages) == 0 {
		return fmt.Errorf("OCR_LANGUAGES must name at least one language")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

// parseTimeoutOrDefault accepts "0" to explicitly disable a timeout.
func parseTimeoutOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration >= 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func parseBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(value, func(r rune) bool { return r == ',' || r == '+' }) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
