package repository

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/hitoshi/studylog/internal/model"
)

const usersFileName = "users.csv"

// usersHeader は認証情報ファイルのヘッダー行。
var usersHeader = []string{"username", "password_hash"}

// CSVCredentialRepo はカンマ区切りテキストファイルを使用した認証情報リポジトリ。
// 全ユーザーで1つの共有ファイル（users.csv）を使用する。
// 書き込みは単一のミューテックスで直列化され、Createは存在確認と追記を
// ロック下で行うため、同一プロセス内でユーザー名が重複することはない。
type CSVCredentialRepo struct {
	path string
	mu   sync.Mutex
}

// NewCSVCredentialRepo はCSVCredentialRepoを生成する。
// dataDirとヘッダー行のみのusers.csvが存在しない場合は作成する。
func NewCSVCredentialRepo(dataDir string) (*CSVCredentialRepo, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	path := filepath.Join(dataDir, usersFileName)
	if err := ensureCSVFile(path, usersHeader); err != nil {
		return nil, err
	}

	return &CSVCredentialRepo{path: path}, nil
}

// FindByUsername は指定ユーザー名のユーザーを取得する。見つからない場合はnilを返す。
// ファイル全体の線形走査を行う。
func (r *CSVCredentialRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findLocked(username)
}

// Create はユーザーを1行追記する。
// 存在確認と追記を同一ロック内で行い、重複時はUSERNAME_EXISTSを返す。
func (r *CSVCredentialRepo) Create(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, err := r.findLocked(user.Username)
	if err != nil {
		return err
	}
	if existing != nil {
		return model.NewUsernameExistsError(user.Username)
	}

	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open users file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{user.Username, user.PasswordHash}); err != nil {
		return fmt.Errorf("failed to write user row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush user row: %w", err)
	}

	return nil
}

// findLocked はロック保持を前提にファイルを走査する。
func (r *CSVCredentialRepo) findLocked(username string) (*model.User, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open users file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read users file: %w", err)
	}

	// 先頭行はヘッダー
	for i, row := range rows {
		if i == 0 || len(row) < 2 {
			continue
		}
		if row[0] == username {
			return &model.User{Username: row[0], PasswordHash: row[1]}, nil
		}
	}

	return nil, nil
}

// ensureCSVFile はファイルが存在しない場合にヘッダー行のみのファイルを作成する。
func ensureCSVFile(path string, header []string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write header to %s: %w", path, err)
	}
	w.Flush()
	return w.Error()
}

// compile-time interface check
var _ CredentialRepository = (*CSVCredentialRepo)(nil)
