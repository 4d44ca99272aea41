package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mediavault-app/mediavault/internal/models"
)

// MockTransport provides a mock implementation for testing.
type MockTransport struct {
	mu sync.Mutex

	// Response configuration
	PostResponses map[string]interface{}
	MediaData     map[string][]byte
	Events        []models.VaultEvent

	// Error injection
	PostError   error
	MediaError  error
	StreamError error

	// Request tracking
	PostRequests  []PostRequest
	MediaRequests []string
	PutRequests   []PutRequest

	// State
	token     string
	eventChan chan models.VaultEvent
	closed    bool
}

// PostRequest tracks POST requests.
type PostRequest struct {
	Path    string
	Payload interface{}
}

// PutRequest tracks media uploads.
type PutRequest struct {
	Path        string
	Data        []byte
	ContentType string
}

// NewMockTransport creates a mock transport.
func NewMockTransport() *MockTransport {
	return &MockTransport{
		PostResponses: make(map[string]interface{}),
		MediaData:     make(map[string][]byte),
		PostRequests:  []PostRequest{},
		MediaRequests: []string{},
	}
}

// PostJSON mocks HTTP POST.
func (m *MockTransport) PostJSON(ctx context.Context, path string, payload interface{}) (map[string]interface{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.PostRequests = append(m.PostRequests, PostRequest{
		Path:    path,
		Payload: payload,
	})

	if m.PostError != nil {
		return nil, m.PostError
	}

	if resp, ok := m.PostResponses[path]; ok {
		if mapResp, ok := resp.(map[string]interface{}); ok {
			return mapResp, nil
		}

		data, _ := json.Marshal(resp)
		var result map[string]interface{}
		_ = json.Unmarshal(data, &result)
		return result, nil
	}

	return nil, fmt.Errorf("no mock response for %s", path)
}

// FetchMedia mocks media download.
func (m *MockTransport) FetchMedia(ctx context.Context, path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.MediaRequests = append(m.MediaRequests, path)

	if m.MediaError != nil {
		return nil, m.MediaError
	}

	if data, ok := m.MediaData[path]; ok {
		return data, nil
	}

	return nil, fmt.Errorf("media not found: %s", path)
}

// PutMedia mocks media upload.
func (m *MockTransport) PutMedia(ctx context.Context, path string, data []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.PutRequests = append(m.PutRequests, PutRequest{
		Path:        path,
		Data:        append([]byte(nil), data...),
		ContentType: contentType,
	})

	return m.MediaError
}

// StreamEvents mocks the event stream.
func (m *MockTransport) StreamEvents(ctx context.Context) (<-chan models.VaultEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.StreamError != nil {
		return nil, m.StreamError
	}

	m.eventChan = make(chan models.VaultEvent, len(m.Events)+1)
	for _, event := range m.Events {
		m.eventChan <- event
	}

	return m.eventChan, nil
}

// EmitEvent pushes an event to an open stream.
func (m *MockTransport) EmitEvent(event models.VaultEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.eventChan != nil && !m.closed {
		m.eventChan <- event
	}
}

// SetToken mocks token setting.
func (m *MockTransport) SetToken(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
}

// GetToken returns the current token.
func (m *MockTransport) GetToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// Close mocks connection closing.
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.closed {
		m.closed = true
		if m.eventChan != nil {
			close(m.eventChan)
		}
	}

	return nil
}

// AddPostResponse adds a mock POST response.
func (m *MockTransport) AddPostResponse(path string, response interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PostResponses[path] = response
}

// AddMedia adds mock media bytes for a path.
func (m *MockTransport) AddMedia(path string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MediaData[path] = data
}
