package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"compliance_notifier/internal/app"
	"compliance_notifier/internal/infra/config"
	"compliance_notifier/internal/infra/database"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	calls int
}

func (r *fakeRunner) Run(ctx context.Context) *app.RunSummary {
	r.calls++
	return &app.RunSummary{RunID: "run-test", Errors: []string{}}
}

type fakeOperators struct {
	tokens  map[string]string
	failAll bool
}

func (o *fakeOperators) GetEmailByToken(ctx context.Context, token string) (string, error) {
	if o.failAll {
		return "", fmt.Errorf("connection refused")
	}
	email, ok := o.tokens[token]
	if !ok {
		return "", database.ErrOperatorNotFound
	}
	return email, nil
}

type fakePinger struct {
	err error
}

func (p *fakePinger) PingContext(ctx context.Context) error { return p.err }

func newTestServer(cronSecret string, runner *fakeRunner, operators *fakeOperators) *Server {
	cfg := &config.AppConfig{
		CronSecret:     cronSecret,
		InternalDomain: "compliance.test",
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return NewServer(cfg, runner, operators, &fakePinger{}, l.WithField("component", "test"))
}

func doRun(s *Server, mutate func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/jobs/run", nil)
	if mutate != nil {
		mutate(req)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestRunAcceptsCronSecret(t *testing.T) {
	runner := &fakeRunner{}
	s := newTestServer("s3cret", runner, &fakeOperators{})

	rec := doRun(s, func(r *http.Request) {
		r.Header.Set("X-Cron-Secret", "s3cret")
	})

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, runner.calls)

	var summary app.RunSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, "run-test", summary.RunID)
}

func TestRunRejectsMissingCredentials(t *testing.T) {
	runner := &fakeRunner{}
	s := newTestServer("s3cret", runner, &fakeOperators{})

	rec := doRun(s, func(r *http.Request) {
		r.Header.Set("User-Agent", "curl/8.5.0")
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, runner.calls)
}

func TestRunRejectsWrongSecret(t *testing.T) {
	runner := &fakeRunner{}
	s := newTestServer("s3cret", runner, &fakeOperators{})

	rec := doRun(s, func(r *http.Request) {
		r.Header.Set("X-Cron-Secret", "guess")
		r.Header.Set("User-Agent", "curl/8.5.0")
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, runner.calls)
}

func TestRunAcceptsInternalOperator(t *testing.T) {
	runner := &fakeRunner{}
	ops := &fakeOperators{tokens: map[string]string{"tok-1": "casey@compliance.test"}}
	s := newTestServer("s3cret", runner, ops)

	rec := doRun(s, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer tok-1")
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, runner.calls)
}

func TestRunRejectsOperatorOutsideInternalDomain(t *testing.T) {
	runner := &fakeRunner{}
	ops := &fakeOperators{tokens: map[string]string{"tok-1": "casey@elsewhere.test"}}
	s := newTestServer("s3cret", runner, ops)

	rec := doRun(s, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer tok-1")
	})

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Zero(t, runner.calls)
}

func TestRunRejectsUnknownToken(t *testing.T) {
	runner := &fakeRunner{}
	s := newTestServer("s3cret", runner, &fakeOperators{})

	rec := doRun(s, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer nope")
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, runner.calls)
}

func TestRunOperatorLookupFailureIsServerError(t *testing.T) {
	runner := &fakeRunner{}
	s := newTestServer("s3cret", runner, &fakeOperators{failAll: true})

	rec := doRun(s, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer tok-1")
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Zero(t, runner.calls)
}

func TestRunAllowsCronOriginOnlyWithoutSecret(t *testing.T) {
	// httptest requests carry no User-Agent, which is exactly the pg_net
	// signature.
	runner := &fakeRunner{}
	s := newTestServer("", runner, &fakeOperators{})
	rec := doRun(s, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, runner.calls)

	// Once a secret is configured the origin marker alone is not enough.
	runner = &fakeRunner{}
	s = newTestServer("s3cret", runner, &fakeOperators{})
	rec = doRun(s, func(r *http.Request) {
		r.Header.Set("User-Agent", "pg_net/0.8")
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, runner.calls)
}

func TestHealthz(t *testing.T) {
	s := newTestServer("s3cret", &fakeRunner{}, &fakeOperators{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestHealthzDegradedWhenDatabaseUnreachable(t *testing.T) {
	cfg := &config.AppConfig{CronSecret: "s3cret"}
	l := logrus.New()
	l.SetOutput(io.Discard)
	s := NewServer(cfg, &fakeRunner{}, &fakeOperators{}, &fakePinger{err: fmt.Errorf("no route to host")}, l.WithField("component", "test"))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"degraded"`)
}
