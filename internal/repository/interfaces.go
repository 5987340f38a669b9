// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/studylog/internal/model"
)

// CredentialRepository は認証情報の永続化インターフェース。
type CredentialRepository interface {
	// FindByUsername は指定ユーザー名のユーザーを取得する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// Create はユーザーを作成する。存在確認と挿入を単一の書き込み権の下で
	// 行い、ユーザー名が既に存在する場合はmodel.AppError(USERNAME_EXISTS)を返す。
	Create(ctx context.Context, user *model.User) error
}

// RecordRepository は学習記録の永続化インターフェース。
// 記録は追記専用で、更新・削除は提供しない。
type RecordRepository interface {
	// Append は指定ユーザーの記録ストアに1件追記する。
	Append(ctx context.Context, username string, record *model.StudyRecord) error

	// ListByUsername は指定ユーザーの全記録を追記順で返す。
	// ストアが未作成の場合は空スライスを返す（エラーにしない）。
	ListByUsername(ctx context.Context, username string) ([]model.StudyRecord, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れ・未存在の場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// UpdateData はセッションのKVデータを丸ごと置き換える。
	UpdateData(ctx context.Context, id string, data map[string]string) error
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUsername は指定ユーザーの全セッションを削除する。
	DeleteByUsername(ctx context.Context, username string) error
}
