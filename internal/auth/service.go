// Package auth はパスワード認証とセッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/hitoshi/studylog/internal/model"
	"github.com/hitoshi/studylog/internal/repository"
)

// usernamePattern はユーザー名に許可する文字種を定める。
// ユーザー名はファイル名の一部になるため、パス区切り文字等を含められない。
var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// RecordStoreInitializer はサインアップ時にユーザーの記録ストアを
// 初期化するインターフェース。CSVストレージでのみ必要となる。
type RecordStoreInitializer interface {
	EnsureStore(ctx context.Context, username string) error
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	credRepo    repository.CredentialRepository
	sessionRepo repository.SessionRepository
	storeInit   RecordStoreInitializer // nil可
	config      ServiceConfig
}

// NewService はServiceを生成する。
// storeInitはサインアップ時の記録ストア初期化が不要な構成ではnilでよい。
func NewService(
	credRepo repository.CredentialRepository,
	sessionRepo repository.SessionRepository,
	storeInit RecordStoreInitializer,
	config ServiceConfig,
) *Service {
	return &Service{
		credRepo:    credRepo,
		sessionRepo: sessionRepo,
		storeInit:   storeInit,
		config:      config,
	}
}

// Signup は新規ユーザーを登録し、そのままログインセッションを発行する。
// ユーザー名の重複チェックはリポジトリのCreateが原子的に行う。
// 登録成功時はユーザーの記録ストアも初期化する。
func (s *Service) Signup(ctx context.Context, username, password string) (*model.Session, error) {
	if !usernamePattern.MatchString(username) {
		return nil, model.NewInvalidUsernameError()
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}
	if err := s.credRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	if s.storeInit != nil {
		if err := s.storeInit.EnsureStore(ctx, username); err != nil {
			return nil, fmt.Errorf("failed to initialize record store: %w", err)
		}
	}

	slog.Info("new user created", slog.String("username", username))

	return s.createSession(ctx, username)
}

// Login は認証情報を検証し、ログインセッションを発行する。
// ユーザーが存在しない場合とパスワード不一致の場合を区別しない。
func (s *Service) Login(ctx context.Context, username, password string) (*model.Session, error) {
	user, err := s.credRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil || !VerifyPassword(user.PasswordHash, password) {
		return nil, model.NewInvalidCredentialsError()
	}

	slog.Info("user logged in", slog.String("username", username))

	return s.createSession(ctx, username)
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user logged out", slog.String("session_id", sessionID))
	return nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, username string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	session := &model.Session{
		ID:        sessionID,
		Username:  username,
		Data:      map[string]string{},
		ExpiresAt: time.Now().Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: time.Now(),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
