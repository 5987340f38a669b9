package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/studylog/internal/middleware"
	"github.com/hitoshi/studylog/internal/model"
	"github.com/hitoshi/studylog/internal/stats"
)

// 集計窓のデフォルトと上限。ダッシュボードの?days=パラメータに適用する。
const (
	defaultWindowDays = 7
	maxWindowDays     = 366
)

// TimerServiceInterface はタイマー操作のサービスインターフェース。
type TimerServiceInterface interface {
	Start(ctx context.Context, session *model.Session, subject string) error
	Stop(ctx context.Context, session *model.Session) (*model.StudyRecord, error)
	Current(session *model.Session) (subject string, startedAt time.Time, running bool)
}

// RecordLister は学習記録の読み取りインターフェース。
// repository.RecordRepositoryの部分集合として定義する。
type RecordLister interface {
	ListByUsername(ctx context.Context, username string) ([]model.StudyRecord, error)
}

// SubjectSanitizer は教科名入力のサニタイズインターフェース。
type SubjectSanitizer interface {
	Sanitize(subject string) string
}

// StudyHandler はダッシュボードとタイマー操作のHTTPハンドラー。
type StudyHandler struct {
	timer     TimerServiceInterface
	records   RecordLister
	sessions  SessionDataUpdater
	sanitizer SubjectSanitizer
}

// NewStudyHandler はStudyHandlerを生成する。
func NewStudyHandler(timer TimerServiceInterface, records RecordLister, sessions SessionDataUpdater, sanitizer SubjectSanitizer) *StudyHandler {
	return &StudyHandler{
		timer:     timer,
		records:   records,
		sessions:  sessions,
		sanitizer: sanitizer,
	}
}

// dashboardView はダッシュボードのテンプレートデータ。
type dashboardView struct {
	Username       string
	Flashes        []string
	TodayRecords   []model.StudyRecord
	Subjects       []string
	IsStudying     bool
	CurrentSubject string
	StartTime      string
	Window         stats.TimeRangeStats
	WindowDays     int
	CSRFToken      string
}

// Dashboard は今日の学習記録・教科一覧・タイマー状態・直近N日集計を表示する。
// 記録は呼び出しごとにストアから再読み込みする（キャッシュしない）。
// GET /?days=N
func (h *StudyHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	session, err := middleware.SessionFromContext(r.Context())
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	records, err := h.records.ListByUsername(r.Context(), session.Username)
	if err != nil {
		slog.Error("failed to load study records",
			slog.String("username", session.Username),
			slog.String("error", err.Error()),
		)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	now := time.Now()
	days := windowDays(r.URL.Query().Get("days"))

	view := dashboardView{
		Username:     session.Username,
		Flashes:      popFlashes(r.Context(), h.sessions, session),
		TodayRecords: stats.Today(records, now),
		Subjects:     stats.Subjects(records),
		Window:       stats.TimeRange(records, days, now),
		WindowDays:   days,
		CSRFToken:    middleware.CSRFTokenFromContext(r.Context()),
	}

	if subject, startedAt, running := h.timer.Current(session); running {
		view.IsStudying = true
		view.CurrentSubject = subject
		view.StartTime = startedAt.Format(model.TimeLayout)
	}

	renderHTML(w, "index.html", view)
}

// StartStudy はタイマーを開始する。
// 教科名はURLクエリパラメータを優先し（既存教科のクリック用）、
// なければフォームフィールドから取得する（手入力用）。
// 教科名が空の場合はタイマーを開始せず、メッセージを添えてダッシュボードへ戻る。
// GET|POST /start_study
func (h *StudyHandler) StartStudy(w http.ResponseWriter, r *http.Request) {
	session, err := middleware.SessionFromContext(r.Context())
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	subject := r.URL.Query().Get("subject")
	if subject == "" && r.Method == http.MethodPost {
		subject = r.PostFormValue("subject")
	}
	subject = h.sanitizer.Sanitize(subject)

	if err := h.timer.Start(r.Context(), session, subject); err != nil {
		var appErr *model.AppError
		if errors.As(err, &appErr) {
			pushFlash(r.Context(), h.sessions, session, appErr.Message)
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		slog.Error("failed to start timer", slog.String("error", err.Error()))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pushFlash(r.Context(), h.sessions, session, fmt.Sprintf("%s の学習を開始しました。", subject))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// EndStudy はタイマーを停止し、学習記録を1件書き込む。
// タイマーが動いていない場合は何も書き込まず、その旨をメッセージで知らせる。
// GET /end_study
func (h *StudyHandler) EndStudy(w http.ResponseWriter, r *http.Request) {
	session, err := middleware.SessionFromContext(r.Context())
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	record, err := h.timer.Stop(r.Context(), session)
	if err != nil {
		var appErr *model.AppError
		if errors.As(err, &appErr) {
			pushFlash(r.Context(), h.sessions, session, appErr.Message)
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		slog.Error("failed to stop timer", slog.String("error", err.Error()))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pushFlash(r.Context(), h.sessions, session,
		fmt.Sprintf("%s の学習を終了しました（%.2f分）。", record.Subject, record.DurationMinutes))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// subjectView は教科詳細ページのテンプレートデータ。
type subjectView struct {
	Username  string
	Stats     stats.SubjectStats
	CSRFToken string
}

// SubjectDetail は1教科の集計と記録一覧を表示する。
// GET /subject/{name}
func (h *StudyHandler) SubjectDetail(w http.ResponseWriter, r *http.Request) {
	session, err := middleware.SessionFromContext(r.Context())
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	name := chi.URLParam(r, "name")
	if decoded, err := url.PathUnescape(name); err == nil {
		name = decoded
	}

	records, err := h.records.ListByUsername(r.Context(), session.Username)
	if err != nil {
		slog.Error("failed to load study records",
			slog.String("username", session.Username),
			slog.String("error", err.Error()),
		)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	renderHTML(w, "subject.html", subjectView{
		Username:  session.Username,
		Stats:     stats.ForSubject(records, name),
		CSRFToken: middleware.CSRFTokenFromContext(r.Context()),
	})
}

// windowDays は?days=パラメータを解釈する。不正値・範囲外はデフォルトに丸める。
func windowDays(raw string) int {
	if raw == "" {
		return defaultWindowDays
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days < 1 || days > maxWindowDays {
		return defaultWindowDays
	}
	return days
}
