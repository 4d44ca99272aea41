package client

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediavault-app/mediavault/internal/config"
	"github.com/mediavault-app/mediavault/internal/events"
	"github.com/mediavault-app/mediavault/internal/models"
	"github.com/mediavault-app/mediavault/internal/transport"
)

func newTestClient(t *testing.T) (*Client, *transport.MockTransport) {
	t.Helper()

	mock := transport.NewMockTransport()
	c := NewWithTransport(config.DefaultConfig(), mock, events.NewNopLogger())
	return c, mock
}

func signResponse(signature string, ttl time.Duration) map[string]interface{} {
	return map[string]interface{}{
		"signature":  signature,
		"expires_at": time.Now().Add(ttl).Format(time.RFC3339Nano),
	}
}

func TestMediaURLContainsOnlySignatureAndID(t *testing.T) {
	c, mock := newTestClient(t)
	mock.AddPostResponse("/vault/sign-url", signResponse("sig-m", 5*time.Minute))

	u, err := c.Media.MediaURL(context.Background(), "res-1")
	require.NoError(t, err)

	assert.Equal(t, "/media/res-1?decrypt=true&sig=sig-m", u)

	// No credential-shaped material in the URL.
	for _, needle := range []string{"passphrase", "key", "token", "session"} {
		assert.NotContains(t, strings.ToLower(u), needle)
	}
}

func TestThumbnailURL(t *testing.T) {
	c, mock := newTestClient(t)
	mock.AddPostResponse("/vault/sign-url", signResponse("sig-t", 5*time.Minute))

	u, err := c.Media.ThumbnailURL(context.Background(), "res-1", "small")
	require.NoError(t, err)
	assert.Equal(t, "/media/res-1/thumbnail?decrypt=true&sig=sig-t&size=small", u)

	// Default size.
	u, err = c.Media.ThumbnailURL(context.Background(), "res-1", "")
	require.NoError(t, err)
	assert.Contains(t, u, "size=medium")

	_, err = c.Media.ThumbnailURL(context.Background(), "res-1", "giant")
	assert.Error(t, err)
}

func TestMediatorCachesCapabilities(t *testing.T) {
	c, mock := newTestClient(t)
	mock.AddPostResponse("/vault/sign-url", signResponse("sig-1", 5*time.Minute))

	_, err := c.Media.MediaURL(context.Background(), "res-1")
	require.NoError(t, err)
	_, err = c.Media.MediaURL(context.Background(), "res-1")
	require.NoError(t, err)

	// Second call served from cache.
	assert.Len(t, mock.PostRequests, 1)

	// A different variant signs again.
	_, err = c.Media.ThumbnailURL(context.Background(), "res-1", "small")
	require.NoError(t, err)
	assert.Len(t, mock.PostRequests, 2)
}

func TestMediatorReissuesInsideSkew(t *testing.T) {
	c, mock := newTestClient(t)

	// Respond with a token that is already inside the 60s refresh skew.
	mock.AddPostResponse("/vault/sign-url", signResponse("sig-short", 30*time.Second))

	_, err := c.Media.MediaURL(context.Background(), "res-1")
	require.NoError(t, err)
	_, err = c.Media.MediaURL(context.Background(), "res-1")
	require.NoError(t, err)

	// The cached token never qualifies, so both calls hit the server.
	assert.Len(t, mock.PostRequests, 2)
}

func TestSignResponseWithoutExpiryIsRejected(t *testing.T) {
	c, mock := newTestClient(t)

	// A signature with no usable expiry must not be cached with an
	// invented lifetime; the response is malformed.
	mock.AddPostResponse("/vault/sign-url", map[string]interface{}{
		"signature": "sig-x",
	})

	_, err := c.Media.MediaURL(context.Background(), "res-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expires_at")
	assert.Equal(t, 0, c.Cache.Len())

	mock.AddPostResponse("/vault/sign-url", map[string]interface{}{
		"signature":  "sig-x",
		"expires_at": "not a timestamp",
	})

	_, err = c.Media.MediaURL(context.Background(), "res-1")
	require.Error(t, err)
	assert.Equal(t, 0, c.Cache.Len())
}

func TestFetchMedia(t *testing.T) {
	c, mock := newTestClient(t)
	mock.AddPostResponse("/vault/sign-url", signResponse("sig-f", 5*time.Minute))
	mock.AddMedia("/media/res-1?decrypt=true&sig=sig-f", []byte("decrypted bytes"))

	data, err := c.Media.FetchMedia(context.Background(), "res-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("decrypted bytes"), data)
}

func TestUnlockStoresSession(t *testing.T) {
	c, mock := newTestClient(t)
	mock.AddPostResponse("/vault/unlock", map[string]interface{}{"session": "tok-9"})

	require.NoError(t, c.Unlock(context.Background(), "secret"))
	assert.Equal(t, "tok-9", mock.GetToken())
}

func TestLockClearsCacheAndSession(t *testing.T) {
	c, mock := newTestClient(t)
	mock.AddPostResponse("/vault/unlock", map[string]interface{}{"session": "tok-9"})
	mock.AddPostResponse("/vault/sign-url", signResponse("sig-l", 5*time.Minute))
	mock.AddPostResponse("/vault/lock", map[string]interface{}{})

	require.NoError(t, c.Unlock(context.Background(), "secret"))
	_, err := c.Media.MediaURL(context.Background(), "res-1")
	require.NoError(t, err)
	require.Equal(t, 1, c.Cache.Len())

	require.NoError(t, c.Lock(context.Background()))
	assert.Equal(t, 0, c.Cache.Len())
	assert.Empty(t, mock.GetToken())
}

func TestUpload(t *testing.T) {
	c, mock := newTestClient(t)

	require.NoError(t, c.Upload(context.Background(), "res-1", []byte("bytes"), "image/png"))
	require.Len(t, mock.PutRequests, 1)
	assert.Equal(t, "/media/res-1", mock.PutRequests[0].Path)
	assert.Equal(t, "image/png", mock.PutRequests[0].ContentType)

	require.NoError(t, c.UploadThumbnail(context.Background(), "res-1", "small", []byte("t")))
	require.Len(t, mock.PutRequests, 2)
	assert.Equal(t, "/media/res-1/thumbnail?size=small", mock.PutRequests[1].Path)
}

func TestRemoteLockEventClearsCache(t *testing.T) {
	c, mock := newTestClient(t)
	mock.AddPostResponse("/vault/sign-url", signResponse("sig-e", 5*time.Minute))

	_, err := c.Media.MediaURL(context.Background(), "res-1")
	require.NoError(t, err)
	require.Equal(t, 1, c.Cache.Len())

	mock.Events = []models.VaultEvent{
		{Type: models.EventVaultLocked, At: time.Now()},
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = c.WatchEvents(context.Background())
	}()

	// Close ends the stream after the queued event is delivered.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, mock.Close())
	<-done

	assert.Equal(t, 0, c.Cache.Len())
}
