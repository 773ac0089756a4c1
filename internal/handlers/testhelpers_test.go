package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"lms-companion-api/internal/admin"
	"lms-companion-api/internal/persist"
	"lms-companion-api/internal/querycache"
	"lms-companion-api/internal/realtime"
	"lms-companion-api/internal/scorm"
	"lms-companion-api/internal/testutil"
	"lms-companion-api/internal/upstream"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

// stubUpstream answers every request with a success envelope.
func stubUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": []any{}})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestHandlers(t *testing.T) *Handlers {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)

	cache := querycache.New(querycache.Options{})
	tokens := admin.NewTokenService()

	return &Handlers{
		Client:    upstream.NewClient(stubUpstream(t).URL, cache, tokens),
		Cache:     cache,
		Admin:     tokens,
		Hub:       realtime.NewHub(),
		Registry:  scorm.NewRegistry(),
		Snapshots: persist.NewStore(db, "v1", 24*time.Hour),
		DB:        db,
	}
}

// newClientFor points a handler set at a different upstream stub.
func newClientFor(t *testing.T, baseURL string, h *Handlers) *upstream.Client {
	t.Helper()
	return upstream.NewClient(baseURL, h.Cache, h.Admin)
}

// captureClient records hub broadcasts for assertions.
type captureClient struct {
	mu       sync.Mutex
	messages [][]byte
}

func (c *captureClient) Send(message []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, message)
	return true
}

func (c *captureClient) Close() {}

func (c *captureClient) events(t *testing.T) []realtime.Event {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]realtime.Event, 0, len(c.messages))
	for _, m := range c.messages {
		var event realtime.Event
		require.NoError(t, json.Unmarshal(m, &event))
		out = append(out, event)
	}
	return out
}
