package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/net/http2"

	"github.com/mediavault-app/mediavault/internal/config"
	"github.com/mediavault-app/mediavault/internal/events"
	"github.com/mediavault-app/mediavault/internal/models"
)

// HTTPClient handles HTTP communication with the vault server.
type HTTPClient struct {
	client    *http.Client
	baseURL   string
	userAgent string
	token     string
	logger    *events.Logger

	// Retry configuration
	maxRetries int
	retryDelay time.Duration
}

// NewHTTPClient creates an HTTP client.
func NewHTTPClient(cfg *config.APIConfig, logger *events.Logger) *HTTPClient {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			NextProtos: []string{"h2", "http/1.1"},
		},
	}

	if err := http2.ConfigureTransport(transport); err != nil {
		logger.WithError(err).Warn("Failed to configure HTTP/2")
	}

	return &HTTPClient{
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		baseURL:    cfg.BaseURL,
		userAgent:  cfg.UserAgent,
		maxRetries: cfg.MaxRetries,
		retryDelay: time.Second,
		logger:     logger.WithField("component", "http_client"),
	}
}

// SetToken sets the session token.
func (c *HTTPClient) SetToken(token string) {
	c.token = token
}

// GetToken returns the current session token.
func (c *HTTPClient) GetToken() string {
	return c.token
}

// PostJSON sends a JSON POST request.
func (c *HTTPClient) PostJSON(ctx context.Context, path string, payload interface{}) (map[string]interface{}, error) {
	url := c.baseURL + path

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	c.logger.WithFields(map[string]interface{}{
		"method": "POST",
		"url":    url,
		"size":   len(body),
	}).Debug("Sending request")

	var resp *http.Response
	err = c.retry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", c.userAgent)
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err = c.client.Do(req)
		if err != nil {
			return fmt.Errorf("execute request: %w", err)
		}

		if isRetryable(resp.StatusCode) {
			respBody, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return fmt.Errorf("server error %d: %s", resp.StatusCode, respBody)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	c.logger.WithFields(map[string]interface{}{
		"status": resp.StatusCode,
		"size":   len(respBody),
	}).Debug("Received response")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.apiError(resp.StatusCode, respBody)
	}

	var result map[string]interface{}
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, &result); err != nil {
			return nil, fmt.Errorf("parse response: %w", err)
		}
	}

	return result, nil
}

// FetchMedia downloads a media or thumbnail resource. The path carries
// any signature as query parameters; it is never logged in full.
func (c *HTTPClient) FetchMedia(ctx context.Context, path string) ([]byte, error) {
	url := c.baseURL + path

	var data []byte
	err := c.retry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}

		req.Header.Set("User-Agent", c.userAgent)
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("execute request: %w", err)
		}
		defer resp.Body.Close()

		if isRetryable(resp.StatusCode) {
			return fmt.Errorf("server error %d", resp.StatusCode)
		}

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			return c.apiError(resp.StatusCode, body)
		}

		data, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read media: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	c.logger.WithField("size", len(data)).Debug("Fetched media")

	return data, nil
}

// PutMedia uploads raw media bytes.
func (c *HTTPClient) PutMedia(ctx context.Context, path string, data []byte, contentType string) error {
	url := c.baseURL + path

	return c.retry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, "PUT", url, bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}

		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		req.Header.Set("User-Agent", c.userAgent)
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("execute request: %w", err)
		}
		defer resp.Body.Close()

		if isRetryable(resp.StatusCode) {
			return fmt.Errorf("server error %d", resp.StatusCode)
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			body, _ := io.ReadAll(resp.Body)
			return c.apiError(resp.StatusCode, body)
		}

		return nil
	})
}

// apiError converts a non-2xx response into a typed error.
func (c *HTTPClient) apiError(status int, body []byte) error {
	var apiErr models.APIError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Message != "" {
		apiErr.StatusCode = status
		return &apiErr
	}
	return fmt.Errorf("HTTP %d: %s", status, body)
}

// retry executes a function with exponential backoff.
func (c *HTTPClient) retry(ctx context.Context, fn func() error) error {
	var lastErr error
	delay := c.retryDelay

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.WithFields(map[string]interface{}{
				"attempt": attempt,
				"delay":   delay,
			}).Debug("Retrying request")

			select {
			case <-time.After(delay):
				delay *= 2
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err

		if !isRetryableError(err) {
			return err
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// isRetryable checks if an HTTP status code is retryable.
func isRetryable(status int) bool {
	return status == http.StatusTooManyRequests ||
		(status >= 500 && status < 600)
}

// isRetryableError checks if an error is retryable. Typed API errors
// are final responses; everything else is treated as transient.
func isRetryableError(err error) bool {
	var apiErr *models.APIError
	return !errors.As(err, &apiErr)
}
