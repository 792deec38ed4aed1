package captcha

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/JustJay7/ecourts-fetcher/pkg/logger"
)

const (
	twoCaptchaURL  = "https://2captcha.com"
	antiCaptchaURL = "https://api.anti-captcha.com"

	defaultPollInterval = 3 * time.Second
	defaultMaxPolls     = 30
)

// TwoCaptcha classifies images with the 2captcha.com recognition service
type TwoCaptcha struct {
	APIKey       string
	BaseURL      string
	PollInterval time.Duration
	MaxPolls     int

	http   *resty.Client
	logger *logger.Logger
}

type twoCaptchaResponse struct {
	Status  int    `json:"status"`
	Request string `json:"request"`
}

// NewTwoCaptcha creates a 2captcha classifier
func NewTwoCaptcha(apiKey string, log *logger.Logger) *TwoCaptcha {
	if log == nil {
		log = logger.Nop()
	}
	return &TwoCaptcha{
		APIKey:       apiKey,
		BaseURL:      twoCaptchaURL,
		PollInterval: defaultPollInterval,
		MaxPolls:     defaultMaxPolls,
		http:         resty.New().SetTimeout(30 * time.Second),
		logger:       log,
	}
}

func (s *TwoCaptcha) Classify(ctx context.Context, img []byte) (string, error) {
	res, err := s.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"key":    s.APIKey,
			"method": "base64",
			"body":   base64.StdEncoding.EncodeToString(img),
			"json":   "1",
		}).
		Post(s.BaseURL + "/in.php")
	if err != nil {
		return "", fmt.Errorf("failed to submit to 2captcha: %w", err)
	}

	var submitResp twoCaptchaResponse
	if err := json.Unmarshal(res.Body(), &submitResp); err != nil {
		return "", fmt.Errorf("failed to decode 2captcha response: %w", err)
	}
	if submitResp.Status != 1 {
		return "", fmt.Errorf("2captcha submission failed: %s", submitResp.Request)
	}

	captchaID := submitResp.Request
	s.logger.Debug("Submitted captcha to 2captcha", "id", captchaID)

	for i := 0; i < s.MaxPolls; i++ {
		if err := wait(ctx, s.PollInterval); err != nil {
			return "", err
		}

		res, err := s.http.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"key":    s.APIKey,
				"action": "get",
				"id":     captchaID,
				"json":   "1",
			}).
			Get(s.BaseURL + "/res.php")
		if err != nil {
			continue
		}

		var resultResp twoCaptchaResponse
		if err := json.Unmarshal(res.Body(), &resultResp); err != nil {
			continue
		}
		if resultResp.Status == 1 {
			return resultResp.Request, nil
		}
		if resultResp.Request != "CAPCHA_NOT_READY" {
			return "", fmt.Errorf("2captcha error: %s", resultResp.Request)
		}
	}

	return "", fmt.Errorf("2captcha: %w", ErrTimeout)
}

// AntiCaptcha classifies images with the anti-captcha.com service
type AntiCaptcha struct {
	APIKey       string
	BaseURL      string
	PollInterval time.Duration
	MaxPolls     int

	http   *resty.Client
	logger *logger.Logger
}

type antiCaptchaTask struct {
	Type string `json:"type"`
	Body string `json:"body"`
}

type antiCaptchaCreateRequest struct {
	ClientKey string          `json:"clientKey"`
	Task      antiCaptchaTask `json:"task"`
}

type antiCaptchaCreateResponse struct {
	ErrorID          int    `json:"errorId"`
	ErrorDescription string `json:"errorDescription"`
	TaskID           int    `json:"taskId"`
}

type antiCaptchaResultRequest struct {
	ClientKey string `json:"clientKey"`
	TaskID    int    `json:"taskId"`
}

type antiCaptchaResultResponse struct {
	ErrorID          int    `json:"errorId"`
	ErrorDescription string `json:"errorDescription"`
	Status           string `json:"status"`
	Solution         struct {
		Text string `json:"text"`
	} `json:"solution"`
}

// NewAntiCaptcha creates an anti-captcha classifier
func NewAntiCaptcha(apiKey string, log *logger.Logger) *AntiCaptcha {
	if log == nil {
		log = logger.Nop()
	}
	return &AntiCaptcha{
		APIKey:       apiKey,
		BaseURL:      antiCaptchaURL,
		PollInterval: defaultPollInterval,
		MaxPolls:     defaultMaxPolls,
		http:         resty.New().SetTimeout(30 * time.Second),
		logger:       log,
	}
}

func (s *AntiCaptcha) Classify(ctx context.Context, img []byte) (string, error) {
	var created antiCaptchaCreateResponse
	_, err := s.http.R().
		SetContext(ctx).
		SetBody(antiCaptchaCreateRequest{
			ClientKey: s.APIKey,
			Task: antiCaptchaTask{
				Type: "ImageToTextTask",
				Body: base64.StdEncoding.EncodeToString(img),
			},
		}).
		SetResult(&created).
		ForceContentType("application/json").
		Post(s.BaseURL + "/createTask")
	if err != nil {
		return "", fmt.Errorf("failed to submit to anti-captcha: %w", err)
	}
	if created.ErrorID != 0 {
		return "", fmt.Errorf("anti-captcha error %d: %s", created.ErrorID, created.ErrorDescription)
	}

	s.logger.Debug("Submitted captcha to anti-captcha", "task", created.TaskID)

	for i := 0; i < s.MaxPolls; i++ {
		if err := wait(ctx, s.PollInterval); err != nil {
			return "", err
		}

		var result antiCaptchaResultResponse
		_, err := s.http.R().
			SetContext(ctx).
			SetBody(antiCaptchaResultRequest{ClientKey: s.APIKey, TaskID: created.TaskID}).
			SetResult(&result).
			ForceContentType("application/json").
			Post(s.BaseURL + "/getTaskResult")
		if err != nil {
			continue
		}
		if result.ErrorID != 0 {
			return "", fmt.Errorf("anti-captcha error %d: %s", result.ErrorID, result.ErrorDescription)
		}
		if result.Status == "ready" {
			return result.Solution.Text, nil
		}
	}

	return "", fmt.Errorf("anti-captcha: %w", ErrTimeout)
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
