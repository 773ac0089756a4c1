package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"lms-companion-api/internal/admin"
	"lms-companion-api/internal/querycache"

	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *querycache.Cache, *admin.TokenService) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cache := querycache.New(querycache.Options{})
	tokens := admin.NewTokenService()
	c := NewClient(srv.URL, cache, tokens)
	// Keep retries fast in tests
	c.readPolicy.BaseDelay = time.Millisecond
	c.writePolicy.BaseDelay = time.Millisecond
	return c, cache, tokens
}

func writeEnvelope(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data})
}

func TestListCourses_SecondReadServedFromCache(t *testing.T) {
	var calls int32
	c, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeEnvelope(w, []Course{{ID: "c-1", Title: "Intro"}})
	}))

	courses, err := c.ListCourses(context.Background())
	require.NoError(t, err)
	require.Len(t, courses, 1)
	require.Equal(t, "Intro", courses[0].Title)

	courses, err = c.ListCourses(context.Background())
	require.NoError(t, err)
	require.Len(t, courses, 1)
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestRead_ClientErrorSurfacesWithoutRetry(t *testing.T) {
	var calls int32
	c, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "no such course"})
	}))

	_, err := c.GetCourse(context.Background(), "missing")
	require.Error(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusNotFound, statusErr.Status)
	require.Equal(t, "no such course", statusErr.Message)
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestRead_TransientErrorRetriedTwice(t *testing.T) {
	var calls int32
	c, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := c.ListCourses(context.Background())
	require.Error(t, err)
	// Initial attempt plus exactly 2 retries
	require.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestRead_TransientThenSuccess(t *testing.T) {
	var calls int32
	c, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeEnvelope(w, []Course{{ID: "c-1"}})
	}))

	courses, err := c.ListCourses(context.Background())
	require.NoError(t, err)
	require.Len(t, courses, 1)
	require.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestEnvelope_FailureFlagBecomesError(t *testing.T) {
	c, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "quota exceeded"})
	}))

	_, err := c.ListCourses(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "quota exceeded")
}

func TestMutation_InvalidatesCachedReads(t *testing.T) {
	var listCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/courses", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		atomic.AddInt32(&listCalls, 1)
		writeEnvelope(w, []Course{{ID: "c-1"}})
	})
	mux.HandleFunc("/api/courses/c-1/enroll", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeEnvelope(w, map[string]any{"enrolled": true})
	})
	c, _, _ := newTestClient(t, mux)

	_, err := c.ListCourses(context.Background())
	require.NoError(t, err)
	_, err = c.ListCourses(context.Background())
	require.NoError(t, err)
	require.Equal(t, int32(1), atomic.LoadInt32(&listCalls))

	require.NoError(t, c.EnrollCourse(context.Background(), "c-1"))

	_, err = c.ListCourses(context.Background())
	require.NoError(t, err)
	require.Equal(t, int32(2), atomic.LoadInt32(&listCalls))
}

func TestMutation_RetriesAtMostOnce(t *testing.T) {
	var calls int32
	c, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))

	err := c.EnrollCourse(context.Background(), "c-1")
	require.Error(t, err)
	require.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestAdminScoped_RequiresElevation(t *testing.T) {
	var calls int32
	var gotAuth atomic.Value
	c, _, tokens := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		gotAuth.Store(r.Header.Get("Authorization"))
		writeEnvelope(w, []CourseException{})
	}))

	_, err := c.ListCourseExceptions(context.Background(), "c-1")
	require.ErrorIs(t, err, ErrNotElevated)
	require.Equal(t, int32(0), atomic.LoadInt32(&calls))

	require.NoError(t, tokens.Elevate("admin-tok", 900))
	_, err = c.ListCourseExceptions(context.Background(), "c-1")
	require.NoError(t, err)
	require.Equal(t, "Bearer admin-tok", gotAuth.Load())
}

func TestNextAdaptiveQuestion_PassThroughNotCached(t *testing.T) {
	var calls int32
	c, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		writeEnvelope(w, AdaptiveQuestion{ID: fmt.Sprintf("q-%d", n), Prompt: "?"})
	}))

	req := NextQuestionRequest{SessionID: "s-1"}
	first, err := c.NextAdaptiveQuestion(context.Background(), req)
	require.NoError(t, err)
	second, err := c.NextAdaptiveQuestion(context.Background(), req)
	require.NoError(t, err)

	require.Equal(t, int32(2), atomic.LoadInt32(&calls))
	require.NotEqual(t, first.ID, second.ID)
}

func TestFetch_OfflineFailsFastWithoutCache(t *testing.T) {
	c, cache, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, []Course{{ID: "c-1"}})
	}))

	_, err := c.ListCourses(context.Background())
	require.NoError(t, err)

	cache.SetOnline(false)

	// Cached read still servable
	courses, err := c.ListCourses(context.Background())
	require.NoError(t, err)
	require.Len(t, courses, 1)

	// Uncached read fails fast
	_, err = c.GetCourse(context.Background(), "c-2")
	require.True(t, errors.Is(err, querycache.ErrOffline))
}
