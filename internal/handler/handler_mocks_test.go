package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/studylog/internal/model"
)

// stubAuthService はAuthServiceInterfaceのテスト用実装。
type stubAuthService struct {
	signupFunc func(ctx context.Context, username, password string) (*model.Session, error)
	loginFunc  func(ctx context.Context, username, password string) (*model.Session, error)
	logoutFunc func(ctx context.Context, sessionID string) error

	loggedOut []string
}

func (s *stubAuthService) Signup(ctx context.Context, username, password string) (*model.Session, error) {
	return s.signupFunc(ctx, username, password)
}

func (s *stubAuthService) Login(ctx context.Context, username, password string) (*model.Session, error) {
	return s.loginFunc(ctx, username, password)
}

func (s *stubAuthService) Logout(ctx context.Context, sessionID string) error {
	s.loggedOut = append(s.loggedOut, sessionID)
	if s.logoutFunc != nil {
		return s.logoutFunc(ctx, sessionID)
	}
	return nil
}

// stubTimerService はTimerServiceInterfaceのテスト用実装。
type stubTimerService struct {
	startErr   error
	stopRecord *model.StudyRecord
	stopErr    error

	subject   string
	startedAt time.Time
	running   bool

	started []string
	stopped int
}

func (s *stubTimerService) Start(ctx context.Context, session *model.Session, subject string) error {
	if s.startErr != nil {
		return s.startErr
	}
	s.started = append(s.started, subject)
	return nil
}

func (s *stubTimerService) Stop(ctx context.Context, session *model.Session) (*model.StudyRecord, error) {
	s.stopped++
	if s.stopErr != nil {
		return nil, s.stopErr
	}
	return s.stopRecord, nil
}

func (s *stubTimerService) Current(session *model.Session) (string, time.Time, bool) {
	return s.subject, s.startedAt, s.running
}

// stubRecordLister はRecordListerのテスト用実装。
type stubRecordLister struct {
	records []model.StudyRecord
	err     error
}

func (s *stubRecordLister) ListByUsername(ctx context.Context, username string) ([]model.StudyRecord, error) {
	return s.records, s.err
}

// stubSessionUpdater はSessionDataUpdaterのテスト用実装。
type stubSessionUpdater struct {
	updates int
	err     error
}

func (s *stubSessionUpdater) UpdateData(ctx context.Context, id string, data map[string]string) error {
	s.updates++
	return s.err
}

// passthroughSanitizer は入力をそのまま返すSubjectSanitizer。
type passthroughSanitizer struct{}

func (passthroughSanitizer) Sanitize(subject string) string { return subject }

// sessionCookieValue はレスポンスのセッションCookieの値を返す。未設定の場合は空文字列。
func sessionCookieValue(resp *http.Response) (value string, found bool) {
	for _, cookie := range resp.Cookies() {
		if cookie.Name == "session_id" {
			return cookie.Value, true
		}
	}
	return "", false
}
