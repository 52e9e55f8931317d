package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio/internal/config"
	"portfolio/internal/database"
	"portfolio/internal/domain"
	"portfolio/internal/logging"
	"portfolio/internal/repository"
	"portfolio/internal/services"
)

type fakeSubmitter struct {
	mu     sync.Mutex
	forms  []services.ContactForm
	result services.SubmitResult
	panics bool
}

func (f *fakeSubmitter) Submit(_ context.Context, form services.ContactForm) services.SubmitResult {
	f.mu.Lock()
	f.forms = append(f.forms, form)
	f.mu.Unlock()
	if f.panics {
		panic("boom")
	}
	return f.result
}

func newTestRouter(t *testing.T, sub Submitter, ping PingFunc) (http.Handler, *FlashStore) {
	t.Helper()
	flash := NewFlashStore("test-secret", false)
	h, err := NewHandler(sub, flash, ping, SiteInfo{ServiceName: "Portfolio", OwnerName: "Jane Doe", SiteURL: "https://jane.example.com"}, logging.Discard())
	require.NoError(t, err)
	return NewRouter(h, true, logging.Discard()), flash
}

func postContact(t *testing.T, router http.Handler, values url.Values) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec.Result()
}

func findCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func followToIndex(t *testing.T, router http.Handler, resp *http.Response) (string, *http.Response) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if c := findCookie(resp, flashCookieName); c != nil {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec.Body.String(), rec.Result()
}

func validValues() url.Values {
	return url.Values{
		"name":    {"Ann"},
		"email":   {"a@x.com"},
		"subject": {"Hi"},
		"message": {"Hello"},
	}
}

func TestContact_SuccessRedirectsWithFlash(t *testing.T) {
	sub := &fakeSubmitter{result: services.SubmitResult{Outcome: services.OutcomeOK, SubmissionID: 1}}
	router, _ := newTestRouter(t, sub, nil)

	resp := postContact(t, router, validValues())

	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/#contact", resp.Header.Get("Location"))
	require.Len(t, sub.forms, 1)
	assert.Equal(t, services.ContactForm{Name: "Ann", Email: "a@x.com", Subject: "Hi", Message: "Hello"}, sub.forms[0])

	body, indexResp := followToIndex(t, router, resp)
	assert.Contains(t, body, "flash-success")
	assert.Contains(t, body, services.MessageSuccess)

	cleared := findCookie(indexResp, flashCookieName)
	require.NotNil(t, cleared)
	assert.Negative(t, cleared.MaxAge)
}

func TestContact_SeverityPerOutcome(t *testing.T) {
	cases := []struct {
		outcome  services.Outcome
		severity string
		message  string
	}{
		{services.OutcomeNotifyFailed, "warning", services.MessageNotifyWarn},
		{services.OutcomeValidationFailed, "error", services.MessageValidation},
		{services.OutcomePersistenceFailed, "error", services.MessageGeneric},
		{services.OutcomeUnexpected, "error", services.MessageGeneric},
	}
	for _, tc := range cases {
		t.Run(tc.outcome.String(), func(t *testing.T) {
			router, _ := newTestRouter(t, &fakeSubmitter{result: services.SubmitResult{Outcome: tc.outcome}}, nil)

			resp := postContact(t, router, validValues())
			require.Equal(t, http.StatusSeeOther, resp.StatusCode)

			body, _ := followToIndex(t, router, resp)
			assert.Contains(t, body, "flash-"+tc.severity)
			assert.Contains(t, body, tc.message)
		})
	}
}

func TestContact_PanicStillRedirects(t *testing.T) {
	router, _ := newTestRouter(t, &fakeSubmitter{panics: true}, nil)

	resp := postContact(t, router, validValues())

	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	body, _ := followToIndex(t, router, resp)
	assert.Contains(t, body, "flash-error")
	assert.Contains(t, body, services.MessageGeneric)
}

func TestContact_RealPipelineRejectsMissingField(t *testing.T) {
	svc := services.NewContactService(nil, nil, logging.Discard())
	router, _ := newTestRouter(t, svc, nil)

	values := validValues()
	values.Set("message", "")
	resp := postContact(t, router, values)

	body, _ := followToIndex(t, router, resp)
	assert.Contains(t, body, services.MessageValidation)
}

func TestIndex_NoFlash(t *testing.T) {
	router, _ := newTestRouter(t, &fakeSubmitter{}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), `id="contact"`)
	assert.Contains(t, rec.Body.String(), "Jane Doe")
	assert.NotContains(t, rec.Body.String(), `role="alert"`)
}

func TestIndex_TamperedFlashIgnored(t *testing.T) {
	router, _ := newTestRouter(t, &fakeSubmitter{}, nil)
	other := NewFlashStore("another-secret", false)
	rec := httptest.NewRecorder()
	require.NoError(t, other.Set(rec, Flash{Severity: "success", Message: "forged"}))

	body, _ := followToIndex(t, router, rec.Result())

	assert.NotContains(t, body, "forged")
}

func TestHealth(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		router, _ := newTestRouter(t, &fakeSubmitter{}, func(context.Context) error { return nil })
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		var body HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, HealthResponse{Status: "healthy", Service: "Portfolio"}, body)
	})

	t.Run("store down", func(t *testing.T) {
		router, _ := newTestRouter(t, &fakeSubmitter{}, func(context.Context) error { return errors.New("connection refused") })
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), `"unhealthy"`)
	})
}

func TestRouter_MetricsAndStatic(t *testing.T) {
	router, _ := newTestRouter(t, &fakeSubmitter{}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/js/site.js", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "contact-form")
	assert.Contains(t, rec.Body.String(), "valid email address")
}

func TestRouter_SecurityHeadersAndRequestID(t *testing.T) {
	router, _ := newTestRouter(t, &fakeSubmitter{}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestFlashStore_Expired(t *testing.T) {
	store := NewFlashStore("secret", false)
	store.now = func() time.Time { return time.Now().Add(-time.Hour) }
	rec := httptest.NewRecorder()
	require.NoError(t, store.Set(rec, Flash{Severity: "success", Message: "old"}))

	store.now = time.Now
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(findCookie(rec.Result(), flashCookieName))

	_, ok := store.Pop(httptest.NewRecorder(), req)
	assert.False(t, ok)
}

func TestContact_ClientDisconnectStillSaves(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portfolio.db")
	db, err := database.Open(config.DatabaseConfig{URL: "sqlite:///" + path, Backend: config.BackendGorm}, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	email := services.NewEmailService(config.EmailConfig{}, logging.Discard())
	svc := services.NewContactService(repository.NewGormContactRepository(db), email, logging.Discard())
	router, _ := newTestRouter(t, svc, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(validValues().Encode())).WithContext(ctx)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	var count int64
	require.NoError(t, db.Model(&domain.ContactSubmission{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	body, _ := followToIndex(t, router, rec.Result())
	assert.Contains(t, body, services.MessageNotifyWarn)
}

func TestFlashStore_SecureFlag(t *testing.T) {
	for _, secure := range []bool{false, true} {
		rec := httptest.NewRecorder()
		require.NoError(t, NewFlashStore("secret", secure).Set(rec, Flash{Severity: "success", Message: "ok"}))
		c := findCookie(rec.Result(), flashCookieName)
		require.NotNil(t, c)
		assert.Equal(t, secure, c.Secure)
		assert.True(t, c.HttpOnly)
	}
}
