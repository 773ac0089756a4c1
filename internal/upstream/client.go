package upstream

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

	"lms-companion-api/internal/admin"
	"lms-companion-api/internal/querycache"
	"lms-companion-api/internal/retry"
)

// envelope is the upstream JSON response shape for every entity operation.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message,omitempty"`
}

// Client talks to the LMS REST API, running reads through the query cache
// with the read retry policy and mutations through the write retry policy
// followed by cache invalidation.
type Client struct {
	baseURL string
	httpc   *http.Client
	cache   *querycache.Cache
	admin   *admin.TokenService

	readPolicy  retry.Policy
	writePolicy retry.Policy
}

// NewClient builds a client. adminSvc supplies the bearer token for
// admin-scoped calls.
func NewClient(baseURL string, cache *querycache.Cache, adminSvc *admin.TokenService) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: 15 * time.Second},
		cache:   cache,
		admin:   adminSvc,
		readPolicy: retry.Policy{
			MaxRetries: 2,
			BaseDelay:  time.Second,
			MaxDelay:   30 * time.Second,
			RetryIf:    Retryable,
		},
		// Mutations retry once on any failure; no status short-circuit.
		writePolicy: retry.Policy{
			MaxRetries: 1,
			BaseDelay:  time.Second,
			MaxDelay:   30 * time.Second,
		},
	}
}

// do performs one HTTP exchange and unwraps the envelope. Non-2xx statuses
// become StatusError here; nothing downstream inspects raw responses.
func (c *Client) do(ctx context.Context, method, path string, body any, elevated bool) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if elevated {
		token, ok := c.admin.Token()
		if !ok {
			return nil, ErrNotElevated
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var env envelope
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Best effort: surface the envelope message when the error body
		// still follows the shape.
		message := ""
		if json.Unmarshal(raw, &env) == nil {
			message = env.Message
		}
		return nil, &StatusError{Status: resp.StatusCode, Message: message}
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("upstream: decoding response: %w", err)
	}
	if !env.Success {
		message := env.Message
		if message == "" {
			message = "request not successful"
		}
		return nil, fmt.Errorf("upstream: %s", message)
	}
	return env.Data, nil
}

// getCached runs a read through the cache. The fetch passed to the cache
// already carries the read retry policy, so a cache hit costs no retries
// and a miss retries per policy.
func (c *Client) getCached(ctx context.Context, op string, params any, path string, elevated bool, out any) error {
	fp := querycache.Fingerprint(op, params)
	data, err := c.cache.Fetch(ctx, fp, func(ctx context.Context) (json.RawMessage, error) {
		var data json.RawMessage
		err := retry.Do(ctx, c.readPolicy, func(ctx context.Context) error {
			d, err := c.do(ctx, http.MethodGet, path, nil, elevated)
			if err != nil {
				return err
			}
			data = d
			return nil
		})
		return data, err
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

// mutate runs a write through the write retry policy, then invalidates the
// affected cached operations.
func (c *Client) mutate(ctx context.Context, method, path string, body any, elevated bool, invalidateOps ...string) (json.RawMessage, error) {
	var data json.RawMessage
	err := retry.Do(ctx, c.writePolicy, func(ctx context.Context) error {
		d, err := c.do(ctx, method, path, body, elevated)
		if err != nil {
			return err
		}
		data = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, op := range invalidateOps {
		c.cache.InvalidateOp(op)
	}
	return data, nil
}

// SubscribeRead registers a front-end component's interest in a cached read
// so stale entries refresh on mount and on refetch triggers.
func (c *Client) SubscribeRead(op string, params any, path string, elevated bool) string {
	fp := querycache.Fingerprint(op, params)
	c.cache.Subscribe(fp, func(ctx context.Context) (json.RawMessage, error) {
		var data json.RawMessage
		err := retry.Do(ctx, c.readPolicy, func(ctx context.Context) error {
			d, err := c.do(ctx, http.MethodGet, path, nil, elevated)
			if err != nil {
				return err
			}
			data = d
			return nil
		})
		return data, err
	})
	return fp
}

// Ping checks upstream reachability for the connectivity monitor.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &StatusError{Status: resp.StatusCode}
	}
	return nil
}

// Cached entity reads.

const (
	OpListCourses     = "courses.list"
	OpGetCourse       = "courses.get"
	OpListExceptions  = "exceptions.list"
	OpListUnits       = "units.list"
	OpListCredentials = "credentials.list"
	OpGetMatching     = "matching.get"
)

// ListCourses returns the catalog.
func (c *Client) ListCourses(ctx context.Context) ([]Course, error) {
	var courses []Course
	err := c.getCached(ctx, OpListCourses, nil, "/api/courses", false, &courses)
	return courses, err
}

// GetCourse returns one course.
func (c *Client) GetCourse(ctx context.Context, id string) (*Course, error) {
	var course Course
	path := "/api/courses/" + url.PathEscape(id)
	if err := c.getCached(ctx, OpGetCourse, id, path, false, &course); err != nil {
		return nil, err
	}
	return &course, nil
}

// ListCourseExceptions returns a course's exceptions. Admin scoped.
func (c *Client) ListCourseExceptions(ctx context.Context, courseID string) ([]CourseException, error) {
	var exceptions []CourseException
	path := "/api/courses/" + url.PathEscape(courseID) + "/exceptions"
	err := c.getCached(ctx, OpListExceptions, courseID, path, true, &exceptions)
	return exceptions, err
}

// ListLearningUnits returns a course's lessons.
func (c *Client) ListLearningUnits(ctx context.Context, courseID string) ([]LearningUnit, error) {
	var units []LearningUnit
	path := "/api/courses/" + url.PathEscape(courseID) + "/units"
	err := c.getCached(ctx, OpListUnits, courseID, path, false, &units)
	return units, err
}

// ListCredentials returns a learner's issued credentials.
func (c *Client) ListCredentials(ctx context.Context, learnerID string) ([]Credential, error) {
	var credentials []Credential
	path := "/api/learners/" + url.PathEscape(learnerID) + "/credentials"
	err := c.getCached(ctx, OpListCredentials, learnerID, path, false, &credentials)
	return credentials, err
}

// GetMatchingExercise returns one matching exercise.
func (c *Client) GetMatchingExercise(ctx context.Context, id string) (*MatchingExercise, error) {
	var exercise MatchingExercise
	path := "/api/matching/" + url.PathEscape(id)
	if err := c.getCached(ctx, OpGetMatching, id, path, false, &exercise); err != nil {
		return nil, err
	}
	return &exercise, nil
}

// NextAdaptiveQuestion is a pass-through call: the adaptive state lives
// server-side, so caching would replay stale questions. Read retry policy
// still applies.
func (c *Client) NextAdaptiveQuestion(ctx context.Context, req NextQuestionRequest) (*AdaptiveQuestion, error) {
	var question AdaptiveQuestion
	var data json.RawMessage
	err := retry.Do(ctx, c.readPolicy, func(ctx context.Context) error {
		d, err := c.do(ctx, http.MethodPost, "/api/adaptive/next", req, false)
		if err != nil {
			return err
		}
		data = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &question); err != nil {
		return nil, err
	}
	return &question, nil
}

// Mutations.

// EnrollCourse enrolls the learner and invalidates the catalog reads.
func (c *Client) EnrollCourse(ctx context.Context, courseID string) error {
	path := "/api/courses/" + url.PathEscape(courseID) + "/enroll"
	_, err := c.mutate(ctx, http.MethodPost, path, nil, false, OpListCourses, OpGetCourse)
	return err
}

// CompleteUnit reports a lesson completion and invalidates the unit list.
func (c *Client) CompleteUnit(ctx context.Context, unitID string) error {
	path := "/api/units/" + url.PathEscape(unitID) + "/complete"
	_, err := c.mutate(ctx, http.MethodPost, path, nil, false, OpListUnits)
	return err
}

// ReportScore forwards a lesson score from the content bridge.
func (c *Client) ReportScore(ctx context.Context, unitID string, score float64) error {
	path := "/api/units/" + url.PathEscape(unitID) + "/score"
	body := map[string]float64{"score": score}
	_, err := c.mutate(ctx, http.MethodPost, path, body, false)
	return err
}

// CreateCourseException grants an exception. Admin scoped.
func (c *Client) CreateCourseException(ctx context.Context, req CreateExceptionRequest) (*CourseException, error) {
	data, err := c.mutate(ctx, http.MethodPost, "/api/exceptions", req, true, OpListExceptions)
	if err != nil {
		return nil, err
	}
	var exception CourseException
	if err := json.Unmarshal(data, &exception); err != nil {
		return nil, err
	}
	return &exception, nil
}

// DeleteCourseException revokes an exception. Admin scoped.
func (c *Client) DeleteCourseException(ctx context.Context, id string) error {
	path := "/api/exceptions/" + url.PathEscape(id)
	_, err := c.mutate(ctx, http.MethodDelete, path, nil, true, OpListExceptions)
	return err
}

// IssueCredential issues a certificate. Admin scoped.
func (c *Client) IssueCredential(ctx context.Context, req IssueCredentialRequest) (*Credential, error) {
	data, err := c.mutate(ctx, http.MethodPost, "/api/credentials", req, true, OpListCredentials)
	if err != nil {
		return nil, err
	}
	var credential Credential
	if err := json.Unmarshal(data, &credential); err != nil {
		return nil, err
	}
	return &credential, nil
}

// SubmitMatchingAttempt grades an attempt.
func (c *Client) SubmitMatchingAttempt(ctx context.Context, attempt MatchingAttempt) (*MatchingResult, error) {
	data, err := c.mutate(ctx, http.MethodPost, "/api/matching/attempts", attempt, false)
	if err != nil {
		return nil, err
	}
	var result MatchingResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
