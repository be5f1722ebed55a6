package cache

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"roastery/config"
	"roastery/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// revalidateRecorder captures revalidation requests for assertions.
type revalidateRecorder struct {
	mu       sync.Mutex
	requests []revalidateRequest
	auth     []string
	status   int
}

func (r *revalidateRecorder) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var payload revalidateRequest
		_ = json.NewDecoder(req.Body).Decode(&payload)

		r.mu.Lock()
		r.requests = append(r.requests, payload)
		r.auth = append(r.auth, req.Header.Get("Authorization"))
		status := r.status
		r.mu.Unlock()

		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
	}
}

func (r *revalidateRecorder) recorded() []revalidateRequest {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]revalidateRequest(nil), r.requests...)
}

func revalidateConfig(endpoint string) *config.Config {
	cfg := &config.Config{}
	cfg.Revalidate.Endpoint = endpoint
	cfg.Revalidate.Secret = "test-secret"
	cfg.Revalidate.Tags = []string{"products", "catalog"}
	cfg.Revalidate.Paths = []string{"/", "/products"}
	cfg.Revalidate.RequestTimeout = time.Second

	return cfg
}

func TestTagInvalidator_PostsEveryTag(t *testing.T) {
	recorder := &revalidateRecorder{}
	server := httptest.NewServer(recorder.handler())
	t.Cleanup(server.Close)

	inv := NewTagInvalidator(revalidateConfig(server.URL), testLogger())
	require.Equal(t, "tag", inv.Name())

	require.NoError(t, inv.Invalidate(context.Background()))

	requests := recorder.recorded()
	require.Len(t, requests, 2)
	assert.Equal(t, "products", requests[0].Tag)
	assert.Equal(t, "catalog", requests[1].Tag)
	assert.Equal(t, "Bearer test-secret", recorder.auth[0])
}

func TestPathInvalidator_PostsEveryPath(t *testing.T) {
	recorder := &revalidateRecorder{}
	server := httptest.NewServer(recorder.handler())
	t.Cleanup(server.Close)

	inv := NewPathInvalidator(revalidateConfig(server.URL), testLogger())
	require.Equal(t, "path", inv.Name())

	require.NoError(t, inv.Invalidate(context.Background()))

	requests := recorder.recorded()
	require.Len(t, requests, 2)
	assert.Equal(t, "/", requests[0].Path)
	assert.Equal(t, "/products", requests[1].Path)
}

func TestTagInvalidator_ReportsEndpointFailure(t *testing.T) {
	recorder := &revalidateRecorder{status: http.StatusInternalServerError}
	server := httptest.NewServer(recorder.handler())
	t.Cleanup(server.Close)

	inv := NewTagInvalidator(revalidateConfig(server.URL), testLogger())

	err := inv.Invalidate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
	// Every tag is still attempted despite failures.
	assert.Len(t, recorder.recorded(), 2)
}

func TestMemoryCache_SetGetFlush(t *testing.T) {
	c := NewMemoryCache()

	_, ok := c.Get()
	assert.False(t, ok, "cold cache misses")

	catalog := []entity.Product{{SKU: "A", Name: "Product A"}}
	c.Set(catalog)

	cached, ok := c.Get()
	require.True(t, ok)
	require.Len(t, cached, 1)

	// The cache hands out copies, not its own slice.
	cached[0].Name = "Mutated"
	again, ok := c.Get()
	require.True(t, ok)
	assert.Equal(t, "Product A", again[0].Name)

	c.Flush()
	_, ok = c.Get()
	assert.False(t, ok)
}

func TestMemoryInvalidator_FlushesCache(t *testing.T) {
	c := NewMemoryCache()
	c.Set([]entity.Product{{SKU: "A"}})

	inv := NewMemoryInvalidator(c)
	require.Equal(t, "memory", inv.Name())
	require.NoError(t, inv.Invalidate(context.Background()))

	_, ok := c.Get()
	assert.False(t, ok)
}
