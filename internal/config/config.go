package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// DefaultUserAgent is sent with every portal request unless USER_AGENT is set
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// Config holds all application configuration
type Config struct {
	// Server settings
	Host string `validate:"required"`
	Port string `validate:"required,numeric"`

	// Database settings
	DatabasePath string `validate:"required"`

	// Logging settings
	LogLevel  string `validate:"oneof=debug info warn error"`
	LogFormat string `validate:"oneof=json text"`

	// Cache settings
	CacheSize int           `validate:"gte=1"`
	CacheTTL  time.Duration `validate:"gt=0"`

	// Transport settings
	RequestDelay   time.Duration `validate:"gte=0"`
	RequestTimeout time.Duration `validate:"gt=0"`
	MaxRetries     int           `validate:"gte=1"`
	RetryBackoff   time.Duration `validate:"gte=0"`
	UserAgent      string        `validate:"required"`

	// Challenge settings
	CaptchaAttempts   int    `validate:"gte=1"`
	CaptchaSolver     string `validate:"oneof=prompt filedrop ocr 2captcha anticaptcha"`
	CaptchaDir        string `validate:"required"`
	CaptchaWait       time.Duration
	CaptchaPreprocess bool
	CaptchaThreshold  int    `validate:"gte=0,lte=255"`
	TwoCaptchaKey     string `validate:"required_if=CaptchaSolver 2captcha"`
	AntiCaptchaKey    string `validate:"required_if=CaptchaSolver anticaptcha"`
	// OCRCommand is the local recogniser run by the ocr solver, image on
	// stdin and text on stdout
	OCRCommand string `validate:"required_if=CaptchaSolver ocr"`

	// Download settings
	PDFDir string

	// Concurrency settings
	MaxConcurrentScrapes int           `validate:"gte=1"`
	ScraperTimeout       time.Duration `validate:"gt=0"`

	// API settings
	APIRateLimit  int           `validate:"gte=1"`
	APIRateWindow time.Duration `validate:"gt=0"`
}

// Default returns the configuration used when no environment overrides exist
func Default() *Config {
	return &Config{
		Host:                 "0.0.0.0",
		Port:                 "8080",
		DatabasePath:         "./data/ecourts.db",
		LogLevel:             "info",
		LogFormat:            "json",
		CacheSize:            1000,
		CacheTTL:             30 * time.Minute,
		RequestDelay:         time.Second,
		RequestTimeout:       30 * time.Second,
		MaxRetries:           3,
		RetryBackoff:         2 * time.Second,
		UserAgent:            DefaultUserAgent,
		CaptchaAttempts:      3,
		CaptchaSolver:        "prompt",
		CaptchaDir:           "./data/captchas",
		CaptchaWait:          5 * time.Minute,
		CaptchaThreshold:     128,
		OCRCommand:           "tesseract stdin stdout --psm 7",
		PDFDir:               "./data",
		MaxConcurrentScrapes: 5,
		ScraperTimeout:       5 * time.Minute,
		APIRateLimit:         100,
		APIRateWindow:        time.Minute,
	}
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	def := Default()
	cfg := &Config{
		Host:           getEnv("HOST", def.Host),
		Port:           getEnv("PORT", def.Port),
		DatabasePath:   getEnv("DATABASE_PATH", def.DatabasePath),
		LogLevel:       getEnv("LOG_LEVEL", def.LogLevel),
		LogFormat:      getEnv("LOG_FORMAT", def.LogFormat),
		UserAgent:      getEnv("USER_AGENT", def.UserAgent),
		CaptchaSolver:  getEnv("CAPTCHA_SOLVER", def.CaptchaSolver),
		CaptchaDir:     getEnv("CAPTCHA_DIR", def.CaptchaDir),
		TwoCaptchaKey:  getEnv("TWOCAPTCHA_API_KEY", ""),
		AntiCaptchaKey: getEnv("ANTICAPTCHA_API_KEY", ""),
		OCRCommand:     getEnv("CAPTCHA_OCR_COMMAND", def.OCRCommand),
		PDFDir:         getEnv("PDF_DIR", def.PDFDir),
	}

	var err error
	cfg.CacheSize, err = strconv.Atoi(getEnv("CACHE_SIZE", "1000"))
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_SIZE: %w", err)
	}

	cacheTTL, err := strconv.Atoi(getEnv("CACHE_TTL", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_TTL: %w", err)
	}
	cfg.CacheTTL = time.Duration(cacheTTL) * time.Minute

	cfg.RequestDelay, err = getSeconds("REQUEST_DELAY", "1")
	if err != nil {
		return nil, err
	}

	cfg.RequestTimeout, err = getSeconds("REQUEST_TIMEOUT", "30")
	if err != nil {
		return nil, err
	}

	cfg.MaxRetries, err = strconv.Atoi(getEnv("MAX_RETRIES", "3"))
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_RETRIES: %w", err)
	}

	cfg.RetryBackoff, err = getSeconds("RETRY_BACKOFF", "2")
	if err != nil {
		return nil, err
	}

	cfg.CaptchaAttempts, err = strconv.Atoi(getEnv("CAPTCHA_ATTEMPTS", "3"))
	if err != nil {
		return nil, fmt.Errorf("invalid CAPTCHA_ATTEMPTS: %w", err)
	}

	cfg.CaptchaWait, err = getSeconds("CAPTCHA_WAIT", "300")
	if err != nil {
		return nil, err
	}

	cfg.CaptchaPreprocess, err = strconv.ParseBool(getEnv("CAPTCHA_PREPROCESS", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid CAPTCHA_PREPROCESS: %w", err)
	}

	cfg.CaptchaThreshold, err = strconv.Atoi(getEnv("CAPTCHA_THRESHOLD", "128"))
	if err != nil {
		return nil, fmt.Errorf("invalid CAPTCHA_THRESHOLD: %w", err)
	}

	cfg.MaxConcurrentScrapes, err = strconv.Atoi(getEnv("MAX_CONCURRENT_SCRAPES", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_CONCURRENT_SCRAPES: %w", err)
	}

	cfg.ScraperTimeout, err = getSeconds("SCRAPER_TIMEOUT", "300")
	if err != nil {
		return nil, err
	}

	cfg.APIRateLimit, err = strconv.Atoi(getEnv("API_RATE_LIMIT", "100"))
	if err != nil {
		return nil, fmt.Errorf("invalid API_RATE_LIMIT: %w", err)
	}

	apiRateWindow, err := strconv.Atoi(getEnv("API_RATE_WINDOW", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid API_RATE_WINDOW: %w", err)
	}
	cfg.APIRateWindow = time.Duration(apiRateWindow) * time.Second

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks field constraints
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// getEnv returns the value of an environment variable or a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getSeconds parses a fractional number of seconds, e.g. "0.5"
func getSeconds(key, defaultValue string) (time.Duration, error) {
	secs, err := strconv.ParseFloat(getEnv(key, defaultValue), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if secs < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", key)
	}
	return time.Duration(secs * float64(time.Second)), nil
}
