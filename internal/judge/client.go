package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gide/internal/language"
	appErr "gide/pkg/errors"
	"gide/pkg/utils/logger"

	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://judge0-ce.p.rapidapi.com"
	DefaultAPIHost = "judge0-ce.p.rapidapi.com"
	DefaultTimeout = 10 * time.Second

	apiKeyHeader  = "X-RapidAPI-Key"
	apiHostHeader = "X-RapidAPI-Host"

	maxErrorBody = 512
)

// ClientConfig holds connection settings for the judge API.
type ClientConfig struct {
	BaseURL string        `yaml:"baseURL"`
	APIKey  string        `yaml:"apiKey"`
	APIHost string        `yaml:"apiHost"`
	Timeout time.Duration `yaml:"timeout"`
}

// Client talks to a Judge0-compatible submissions API.
type Client struct {
	baseURL    string
	apiKey     string
	apiHost    string
	httpClient *http.Client
	languages  *language.Registry
}

// NewClient creates a client. A nil registry means language.Builtin().
func NewClient(cfg ClientConfig, languages *language.Registry) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if languages == nil {
		languages = language.Builtin()
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		apiHost:    cfg.APIHost,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		languages:  languages,
	}
}

type submissionBody struct {
	SourceCode string `json:"source_code"`
	LanguageID int    `json:"language_id"`
	Stdin      string `json:"stdin"`
}

// Submit creates a submission. An unregistered language fails with
// LanguageNotSupported before any request is sent.
func (c *Client) Submit(ctx context.Context, req Request) (Handle, error) {
	lang, ok := c.languages.Lookup(req.Language)
	if !ok {
		return Handle{}, appErr.UnsupportedLanguage(req.Language)
	}
	body, err := json.Marshal(submissionBody{
		SourceCode: req.SourceCode,
		LanguageID: lang.JudgeID,
		Stdin:      req.Stdin,
	})
	if err != nil {
		return Handle{}, appErr.Wrapf(err, appErr.InternalServerError, "encode submission failed")
	}

	data, err := c.do(ctx, http.MethodPost, "/submissions", body)
	if err != nil {
		logger.Error(ctx, "submit code failed", zap.String("language", lang.Name), zap.Error(err))
		return Handle{}, err
	}
	var handle Handle
	if err := json.Unmarshal(data, &handle); err != nil {
		return Handle{}, appErr.Wrapf(err, appErr.JudgeResponseInvalid, "decode submission token failed")
	}
	if handle.Token == "" {
		return Handle{}, appErr.New(appErr.JudgeResponseInvalid).WithMessage("judge returned an empty token")
	}
	return handle, nil
}

// Fetch reads the current state of a submission.
func (c *Client) Fetch(ctx context.Context, handle Handle) (Result, error) {
	if handle.Token == "" {
		return Result{}, appErr.ValidationError("token", "required")
	}
	data, err := c.do(ctx, http.MethodGet, "/submissions/"+url.PathEscape(handle.Token), nil)
	if err != nil {
		logger.Error(ctx, "get submission result failed", zap.String("token", handle.Token), zap.Error(err))
		return Result{}, err
	}
	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return Result{}, appErr.Wrapf(err, appErr.JudgeResponseInvalid, "decode submission result failed")
	}
	if result.Token == "" {
		result.Token = handle.Token
	}
	return result, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}

	query := url.Values{}
	query.Set("base64_encoded", "false")
	query.Set("fields", "*")
	target := fmt.Sprintf("%s%s?%s", c.baseURL, path, query.Encode())

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.ExecutionTransportFailed, "build request failed")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}
	if c.apiHost != "" {
		req.Header.Set(apiHostHeader, c.apiHost)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.ExecutionTransportFailed, "judge request failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.ExecutionTransportFailed, "read judge response failed")
	}
	logger.Debug(ctx, "judge request completed",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		code := appErr.ExecutionTransportFailed
		if resp.StatusCode == http.StatusTooManyRequests {
			// RapidAPI quota or Judge0 queue limit.
			code = appErr.TooManyRequests
		}
		return nil, appErr.Newf(code, "judge responded with HTTP %d: %s", resp.StatusCode, truncate(string(data), maxErrorBody)).
			WithDetail("http_status", resp.StatusCode)
	}
	return data, nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
