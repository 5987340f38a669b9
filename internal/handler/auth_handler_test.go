package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/hitoshi/studylog/internal/middleware"
	"github.com/hitoshi/studylog/internal/model"
)

func postForm(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestLoginPage_RendersForm(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{}, &stubTimerService{}, nil, AuthHandlerConfig{})

	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	rec := httptest.NewRecorder()
	h.LoginPage(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `action="/login"`) {
		t.Error("login form not rendered")
	}
	if !strings.Contains(body, `name="csrf_token"`) {
		t.Error("CSRF hidden field not rendered")
	}
}

func TestLogin_Success_SetsCookieAndRedirects(t *testing.T) {
	service := &stubAuthService{
		loginFunc: func(ctx context.Context, username, password string) (*model.Session, error) {
			if username != "alice" || password != "secret123" {
				t.Errorf("Login called with %q/%q", username, password)
			}
			return &model.Session{ID: "session-abc", Username: "alice", Data: map[string]string{}}, nil
		},
	}
	h := NewAuthHandler(service, &stubTimerService{}, nil, AuthHandlerConfig{SessionMaxAge: 3600})

	form := url.Values{"username": {"alice"}, "password": {"secret123"}}
	rec := httptest.NewRecorder()
	h.Login(rec, postForm("/login", form))

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/" {
		t.Errorf("Location = %q, want /", loc)
	}

	value, found := sessionCookieValue(rec.Result())
	if !found {
		t.Fatal("session cookie not set")
	}
	if value != "session-abc" {
		t.Errorf("session cookie = %q, want session-abc", value)
	}
}

func TestLogin_InvalidCredentials_RerendersFormWithMessage(t *testing.T) {
	service := &stubAuthService{
		loginFunc: func(ctx context.Context, username, password string) (*model.Session, error) {
			return nil, model.NewInvalidCredentialsError()
		},
	}
	h := NewAuthHandler(service, &stubTimerService{}, nil, AuthHandlerConfig{})

	form := url.Values{"username": {"alice"}, "password": {"wrong"}}
	rec := httptest.NewRecorder()
	h.Login(rec, postForm("/login", form))

	// リダイレクトせず200でフォームを再表示する
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "ユーザー名またはパスワードが違います。") {
		t.Error("error message not rendered")
	}
	// 入力したユーザー名は再表示される
	if !strings.Contains(body, `value="alice"`) {
		t.Error("username not preserved in form")
	}
	if _, found := sessionCookieValue(rec.Result()); found {
		t.Error("session cookie must not be set on failed login")
	}
}

func TestSignup_Success_AutoLoginAndRedirect(t *testing.T) {
	service := &stubAuthService{
		signupFunc: func(ctx context.Context, username, password string) (*model.Session, error) {
			return &model.Session{ID: "session-new", Username: username, Data: map[string]string{}}, nil
		},
	}
	h := NewAuthHandler(service, &stubTimerService{}, nil, AuthHandlerConfig{SessionMaxAge: 3600})

	form := url.Values{"username": {"bob"}, "password": {"secret123"}}
	rec := httptest.NewRecorder()
	h.Signup(rec, postForm("/signup", form))

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/" {
		t.Errorf("Location = %q, want /", loc)
	}
	if _, found := sessionCookieValue(rec.Result()); !found {
		t.Fatal("session cookie not set after signup")
	}
}

func TestSignup_DuplicateUsername_RerendersFormWithMessage(t *testing.T) {
	service := &stubAuthService{
		signupFunc: func(ctx context.Context, username, password string) (*model.Session, error) {
			return nil, model.NewUsernameExistsError(username)
		},
	}
	h := NewAuthHandler(service, &stubTimerService{}, nil, AuthHandlerConfig{})

	form := url.Values{"username": {"alice"}, "password": {"secret123"}}
	rec := httptest.NewRecorder()
	h.Signup(rec, postForm("/signup", form))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "既に使われています") {
		t.Error("duplicate username message not rendered")
	}
}

func TestLogout_StopsTimerAndClearsCookie(t *testing.T) {
	service := &stubAuthService{}
	timer := &stubTimerService{
		stopRecord: &model.StudyRecord{Subject: "数学", DurationMinutes: 30},
	}
	h := NewAuthHandler(service, timer, nil, AuthHandlerConfig{})

	session := &model.Session{ID: "s1", Username: "alice", Data: map[string]string{}}
	req := httptest.NewRequest(http.MethodGet, "/logout", nil)
	req = req.WithContext(middleware.ContextWithSession(req.Context(), session))
	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/login" {
		t.Errorf("Location = %q, want /login", loc)
	}

	// ログアウト前に進行中タイマーが停止される
	if timer.stopped != 1 {
		t.Errorf("timer.Stop called %d times, want 1", timer.stopped)
	}
	if len(service.loggedOut) != 1 || service.loggedOut[0] != "s1" {
		t.Errorf("Logout called with %v, want [s1]", service.loggedOut)
	}

	// Cookieがクリアされる（MaxAge < 0）
	var cleared bool
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == "session_id" && cookie.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("session cookie not cleared")
	}
}

func TestLogout_NoActiveTimer_StillLogsOut(t *testing.T) {
	service := &stubAuthService{}
	timer := &stubTimerService{stopErr: model.NewNoActiveTimerError()}
	h := NewAuthHandler(service, timer, nil, AuthHandlerConfig{})

	session := &model.Session{ID: "s1", Username: "alice", Data: map[string]string{}}
	req := httptest.NewRequest(http.MethodGet, "/logout", nil)
	req = req.WithContext(middleware.ContextWithSession(req.Context(), session))
	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if len(service.loggedOut) != 1 {
		t.Error("session was not destroyed")
	}
}

func TestLogout_NoSession_RedirectsToLogin(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{}, &stubTimerService{}, nil, AuthHandlerConfig{})

	req := httptest.NewRequest(http.MethodGet, "/logout", nil)
	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/login" {
		t.Errorf("Location = %q, want /login", loc)
	}
}
