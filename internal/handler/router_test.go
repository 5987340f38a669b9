package handler

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/studylog/internal/middleware"
	"github.com/hitoshi/studylog/internal/model"
)

// stubSessionFinder はmiddleware.SessionFinderのテスト用実装。
type stubSessionFinder struct {
	sessions map[string]*model.Session
}

func (s *stubSessionFinder) FindByID(ctx context.Context, id string) (*model.Session, error) {
	return s.sessions[id], nil
}

// stubHealthChecker はHealthCheckerのテスト用実装。
type stubHealthChecker struct {
	err error
}

func (s *stubHealthChecker) PingContext(ctx context.Context) error { return s.err }

func testRouterDeps(finder *stubSessionFinder) *RouterDeps {
	var buf bytes.Buffer
	return &RouterDeps{
		SessionFinder: finder,
		RateLimiter: middleware.NewRateLimiter(middleware.RateLimiterConfig{
			GeneralRate:     rate.Limit(1000),
			GeneralBurst:    1000,
			LoginRate:       rate.Limit(1000),
			LoginBurst:      1000,
			CleanupInterval: time.Hour,
		}),
		CSRFConfig: middleware.CSRFConfig{},
		Logger:     slog.New(slog.NewJSONHandler(&buf, nil)),

		AuthService: &stubAuthService{
			loginFunc: func(ctx context.Context, username, password string) (*model.Session, error) {
				return &model.Session{ID: "new-session", Username: username, Data: map[string]string{}}, nil
			},
			signupFunc: func(ctx context.Context, username, password string) (*model.Session, error) {
				return &model.Session{ID: "new-session", Username: username, Data: map[string]string{}}, nil
			},
		},
		AuthConfig: AuthHandlerConfig{SessionMaxAge: 3600},

		TimerService:   &stubTimerService{stopErr: model.NewNoActiveTimerError()},
		RecordLister:   &stubRecordLister{},
		SessionUpdater: &stubSessionUpdater{},
		Sanitizer:      passthroughSanitizer{},
	}
}

func TestRouter_UnauthenticatedDashboard_RedirectsToLogin(t *testing.T) {
	deps := testRouterDeps(&stubSessionFinder{sessions: map[string]*model.Session{}})
	defer deps.RateLimiter.Stop()
	router := NewRouter(deps)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/login" {
		t.Errorf("Location = %q, want /login", loc)
	}
}

func TestRouter_AuthenticatedDashboard_Renders(t *testing.T) {
	finder := &stubSessionFinder{sessions: map[string]*model.Session{
		"s1": {ID: "s1", Username: "alice", Data: map[string]string{}},
	}}
	deps := testRouterDeps(finder)
	defer deps.RateLimiter.Stop()
	router := NewRouter(deps)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "s1"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "alice") {
		t.Error("dashboard not rendered for authenticated user")
	}
}

func TestRouter_LoginPage_IsPublic(t *testing.T) {
	deps := testRouterDeps(&stubSessionFinder{sessions: map[string]*model.Session{}})
	defer deps.RateLimiter.Stop()
	router := NewRouter(deps)

	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestRouter_PostLogin_RequiresCSRFToken(t *testing.T) {
	deps := testRouterDeps(&stubSessionFinder{sessions: map[string]*model.Session{}})
	defer deps.RateLimiter.Stop()
	router := NewRouter(deps)

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader("username=alice&password=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403 without CSRF token", rec.Code)
	}
}

func TestRouter_PostLogin_WithCSRFToken_Succeeds(t *testing.T) {
	deps := testRouterDeps(&stubSessionFinder{sessions: map[string]*model.Session{}})
	defer deps.RateLimiter.Stop()
	router := NewRouter(deps)

	form := "username=alice&password=secret123&csrf_token=tok"
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: "tok"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if _, found := sessionCookieValue(rec.Result()); !found {
		t.Error("session cookie not set after login")
	}
}

func TestRouter_Health_OK(t *testing.T) {
	deps := testRouterDeps(&stubSessionFinder{sessions: map[string]*model.Session{}})
	deps.HealthChecker = &stubHealthChecker{}
	defer deps.RateLimiter.Stop()
	router := NewRouter(deps)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body := rec.Body.String(); body != "ok" {
		t.Errorf("body = %q, want ok", body)
	}
}

func TestRouter_Health_StorageDown_Returns503(t *testing.T) {
	deps := testRouterDeps(&stubSessionFinder{sessions: map[string]*model.Session{}})
	deps.HealthChecker = &stubHealthChecker{err: errors.New("connection refused")}
	defer deps.RateLimiter.Stop()
	router := NewRouter(deps)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestRouter_Health_NilChecker_ReportsProcessAlive(t *testing.T) {
	deps := testRouterDeps(&stubSessionFinder{sessions: map[string]*model.Session{}})
	defer deps.RateLimiter.Stop()
	router := NewRouter(deps)

	// CSVストレージ構成ではHealthCheckerがnil
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestRouter_RandomColor_RequiresAuthentication(t *testing.T) {
	deps := testRouterDeps(&stubSessionFinder{sessions: map[string]*model.Session{}})
	defer deps.RateLimiter.Stop()
	router := NewRouter(deps)

	req := httptest.NewRequest(http.MethodGet, "/get_random_color", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
}

func TestRouter_SecurityHeaders_AppliedToAllResponses(t *testing.T) {
	deps := testRouterDeps(&stubSessionFinder{sessions: map[string]*model.Session{}})
	defer deps.RateLimiter.Stop()
	router := NewRouter(deps)

	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
}

func TestRouter_LoginRateLimit_Returns429WhenExceeded(t *testing.T) {
	deps := testRouterDeps(&stubSessionFinder{sessions: map[string]*model.Session{}})
	deps.RateLimiter.Stop()
	deps.RateLimiter = middleware.NewRateLimiter(middleware.RateLimiterConfig{
		GeneralRate:     rate.Limit(1000),
		GeneralBurst:    1000,
		LoginRate:       rate.Limit(1),
		LoginBurst:      1,
		CleanupInterval: time.Hour,
	})
	defer deps.RateLimiter.Stop()
	router := NewRouter(deps)

	send := func() *httptest.ResponseRecorder {
		form := "username=alice&password=x&csrf_token=tok"
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.RemoteAddr = "198.51.100.1:50000"
		req.AddCookie(&http.Cookie{Name: "csrf_token", Value: "tok"})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	if rec := send(); rec.Code != http.StatusSeeOther {
		t.Fatalf("first request: status = %d, want 303", rec.Code)
	}
	if rec := send(); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: status = %d, want 429", rec.Code)
	}
}
