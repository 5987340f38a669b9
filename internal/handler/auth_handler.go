package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/studylog/internal/middleware"
	"github.com/hitoshi/studylog/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Signup(ctx context.Context, username, password string) (*model.Session, error)
	Login(ctx context.Context, username, password string) (*model.Session, error)
	Logout(ctx context.Context, sessionID string) error
}

// AuthMetricsRecorder は認証イベントのメトリクス記録インターフェース。
type AuthMetricsRecorder interface {
	RecordLogin()
	RecordSignup()
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler はログイン・サインアップ・ログアウトのHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	timer   TimerServiceInterface
	metrics AuthMetricsRecorder // nil可
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
// timerはログアウト時の暗黙的なタイマー停止に使用する。metricsはnilでよい。
func NewAuthHandler(service AuthServiceInterface, timer TimerServiceInterface, metrics AuthMetricsRecorder, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		timer:   timer,
		metrics: metrics,
		config:  config,
	}
}

// authPageView はログイン・サインアップページのテンプレートデータ。
type authPageView struct {
	Flash     string
	Username  string // 入力再表示用
	CSRFToken string
}

// LoginPage はログインフォームを表示する。
// GET /login
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	renderHTML(w, "login.html", authPageView{
		CSRFToken: middleware.CSRFTokenFromContext(r.Context()),
	})
}

// Login は認証情報を検証しセッションを発行する。
// 認証に失敗した場合はリダイレクトせず、メッセージ付きでフォームを再表示する。
// POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")

	session, err := h.service.Login(r.Context(), username, password)
	if err != nil {
		var appErr *model.AppError
		if errors.As(err, &appErr) {
			renderHTML(w, "login.html", authPageView{
				Flash:     appErr.Message,
				Username:  username,
				CSRFToken: middleware.CSRFTokenFromContext(r.Context()),
			})
			return
		}
		slog.Error("login failed", slog.String("error", err.Error()))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordLogin()
	}

	h.setSessionCookie(w, session.ID)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// SignupPage はサインアップフォームを表示する。
// GET /signup
func (h *AuthHandler) SignupPage(w http.ResponseWriter, r *http.Request) {
	renderHTML(w, "signup.html", authPageView{
		CSRFToken: middleware.CSRFTokenFromContext(r.Context()),
	})
}

// Signup は新規ユーザーを登録し、そのままログインさせる。
// ユーザー名重複時はアカウントを作成せず、メッセージ付きでフォームを再表示する。
// POST /signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")

	session, err := h.service.Signup(r.Context(), username, password)
	if err != nil {
		var appErr *model.AppError
		if errors.As(err, &appErr) {
			renderHTML(w, "signup.html", authPageView{
				Flash:     appErr.Message,
				Username:  username,
				CSRFToken: middleware.CSRFTokenFromContext(r.Context()),
			})
			return
		}
		slog.Error("signup failed", slog.String("error", err.Error()))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordSignup()
	}

	h.setSessionCookie(w, session.ID)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout はセッションを破棄しログインページへ戻す。
// タイマーが動いている場合は先に停止して記録を書き込む
// （セッション終了で進行中の区間が黙って失われることはない）。
// GET /logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session, err := middleware.SessionFromContext(r.Context())
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	// 進行中タイマーの暗黙的な停止。Idleの場合のNO_ACTIVE_TIMERは無視する。
	if _, err := h.timer.Stop(r.Context(), session); err != nil {
		var appErr *model.AppError
		if !errors.As(err, &appErr) || appErr.Code != model.ErrCodeNoActiveTimer {
			slog.Error("failed to stop timer on logout",
				slog.String("username", session.Username),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := h.service.Logout(r.Context(), session.ID); err != nil {
		slog.Error("failed to logout", slog.String("error", err.Error()))
		// ログアウト失敗してもCookieはクリアする
	}

	h.clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// setSessionCookie はセッションCookieを設定する（HTTP Only）。
func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookie はセッションCookieをクリアする。
func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
