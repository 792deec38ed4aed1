package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	require.Equal(t, time.Second, cfg.RequestDelay)
	require.Equal(t, 30*time.Second, cfg.RequestTimeout)
	require.Equal(t, 3, cfg.MaxRetries)
	require.Equal(t, 3, cfg.CaptchaAttempts)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("REQUEST_DELAY", "0.25")
	t.Setenv("REQUEST_TIMEOUT", "10")
	t.Setenv("MAX_RETRIES", "5")
	t.Setenv("RETRY_BACKOFF", "0")
	t.Setenv("CAPTCHA_SOLVER", "filedrop")
	t.Setenv("CAPTCHA_PREPROCESS", "true")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("CAPTCHA_OCR_COMMAND", "tesseract stdin stdout --psm 8")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 250*time.Millisecond, cfg.RequestDelay)
	require.Equal(t, 10*time.Second, cfg.RequestTimeout)
	require.Equal(t, 5, cfg.MaxRetries)
	require.Equal(t, time.Duration(0), cfg.RetryBackoff)
	require.Equal(t, "filedrop", cfg.CaptchaSolver)
	require.True(t, cfg.CaptchaPreprocess)
	require.Equal(t, "text", cfg.LogFormat)
	require.Equal(t, "tesseract stdin stdout --psm 8", cfg.OCRCommand)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"non-numeric retries", "MAX_RETRIES", "many"},
		{"negative delay", "REQUEST_DELAY", "-1"},
		{"zero retries", "MAX_RETRIES", "0"},
		{"unknown solver", "CAPTCHA_SOLVER", "psychic"},
		{"2captcha without key", "CAPTCHA_SOLVER", "2captcha"},
		{"bad cache size", "CACHE_SIZE", "lots"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
		})
	}
}
