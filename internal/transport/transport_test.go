package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediavault-app/mediavault/internal/config"
	"github.com/mediavault-app/mediavault/internal/events"
	"github.com/mediavault-app/mediavault/internal/models"
)

func testAPIConfig(baseURL string) *config.APIConfig {
	return &config.APIConfig{
		BaseURL:    baseURL,
		Timeout:    5 * time.Second,
		MaxRetries: 2,
		UserAgent:  "mediavault-test/1.0",
	}
}

func TestPostJSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/vault/sign-url", r.URL.Path)
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "res-1", body["resource_id"])

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"signature": "abc"})
	}))
	defer ts.Close()

	client := NewHTTPClient(testAPIConfig(ts.URL), events.NewNopLogger())
	client.SetToken("tok-1")

	resp, err := client.PostJSON(context.Background(), "/vault/sign-url",
		map[string]string{"resource_id": "res-1"})
	require.NoError(t, err)
	assert.Equal(t, "abc", resp["signature"])
}

func TestPostJSONAPIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(models.APIError{
			Code:    models.ErrCodeCapability,
			Message: "access denied",
		})
	}))
	defer ts.Close()

	client := NewHTTPClient(testAPIConfig(ts.URL), events.NewNopLogger())

	_, err := client.PostJSON(context.Background(), "/media/x", nil)
	require.Error(t, err)

	var apiErr *models.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, models.ErrCodeCapability, apiErr.Code)
}

func TestFetchMedia(t *testing.T) {
	payload := []byte{0x00, 0x01, 0xFF, 0xFE}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/media/res-9", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("decrypt"))
		assert.Equal(t, "sig-1", r.URL.Query().Get("sig"))
		w.Write(payload)
	}))
	defer ts.Close()

	client := NewHTTPClient(testAPIConfig(ts.URL), events.NewNopLogger())

	data, err := client.FetchMedia(context.Background(), "/media/res-9?decrypt=true&sig=sig-1")
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestFetchMediaRetriesServerErrors(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer ts.Close()

	cfg := testAPIConfig(ts.URL)
	client := NewHTTPClient(cfg, events.NewNopLogger())
	client.retryDelay = 10 * time.Millisecond

	data, err := client.FetchMedia(context.Background(), "/media/r")
	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), data)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestFetchMediaDeniedIsNotRetried(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(models.APIError{
			Code:    models.ErrCodeCapability,
			Message: "access denied",
		})
	}))
	defer ts.Close()

	client := NewHTTPClient(testAPIConfig(ts.URL), events.NewNopLogger())
	client.retryDelay = 10 * time.Millisecond

	_, err := client.FetchMedia(context.Background(), "/media/r")
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestRetryWithBackoff(t *testing.T) {
	attempts := 0
	start := time.Now()

	client := &HTTPClient{
		maxRetries: 3,
		retryDelay: 50 * time.Millisecond,
		logger:     events.NewNopLogger(),
	}

	err := client.retry(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary error")
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)
	// Delays 50ms then 100ms.
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}

func TestRetryContextCancellation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()

	attempts := 0
	client := &HTTPClient{
		maxRetries: 5,
		retryDelay: 60 * time.Millisecond,
		logger:     events.NewNopLogger(),
	}

	err := client.retry(ctx, func() error {
		attempts++
		return errors.New("error")
	})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.LessOrEqual(t, attempts, 2)
}

func TestRetryMaxAttemptsExceeded(t *testing.T) {
	attempts := 0
	client := &HTTPClient{
		maxRetries: 2,
		retryDelay: 5 * time.Millisecond,
		logger:     events.NewNopLogger(),
	}

	err := client.retry(context.Background(), func() error {
		attempts++
		return errors.New("persistent error")
	})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "max retries exceeded")
	assert.Equal(t, 3, attempts)
}

func TestIsRetryableStatus(t *testing.T) {
	tests := []struct {
		status    int
		retryable bool
	}{
		{200, false},
		{400, false},
		{401, false},
		{403, false},
		{404, false},
		{429, true},
		{500, true},
		{503, true},
		{504, true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.retryable, isRetryable(tt.status), "status %d", tt.status)
	}
}

func TestMockTransportEvents(t *testing.T) {
	mock := NewMockTransport()
	mock.Events = []models.VaultEvent{
		{Type: models.EventVaultLocked, At: time.Now()},
	}

	ch, err := mock.StreamEvents(context.Background())
	require.NoError(t, err)

	event := <-ch
	assert.Equal(t, models.EventVaultLocked, event.Type)

	require.NoError(t, mock.Close())
	_, open := <-ch
	assert.False(t, open)
}
