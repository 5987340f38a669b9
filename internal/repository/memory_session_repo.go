package repository

import (
	"context"
	"sync"
	"time"

	"github.com/hitoshi/studylog/internal/model"
)

// MemorySessionRepo はプロセス内メモリを使用したセッションリポジトリ。
// CSVストレージ構成で使用する。セッションは揮発性で、プロセス再起動で失われる
// （進行中タイマーはセッション消滅とともに失われる仕様）。
type MemorySessionRepo struct {
	mu       sync.RWMutex
	sessions map[string]*model.Session
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewMemorySessionRepo はMemorySessionRepoを生成する。
// バックグラウンドで期限切れセッションの定期削除を開始する。
func NewMemorySessionRepo(cleanupInterval time.Duration) *MemorySessionRepo {
	r := &MemorySessionRepo{
		sessions: make(map[string]*model.Session),
		stopCh:   make(chan struct{}),
	}
	go r.cleanupLoop(cleanupInterval)
	return r
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。
func (r *MemorySessionRepo) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
}

// Create はセッションを作成する。
func (r *MemorySessionRepo) Create(ctx context.Context, session *model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = cloneSession(session)
	return nil
}

// FindByID は指定IDのセッションを取得する。期限切れ・未存在の場合はnilを返す。
func (r *MemorySessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[id]
	if !ok || time.Now().After(session.ExpiresAt) {
		return nil, nil
	}
	return cloneSession(session), nil
}

// UpdateData はセッションのKVデータを丸ごと置き換える。
// セッションが存在しない場合は何もしない（期限切れ直後の書き込みを許容する）。
func (r *MemorySessionRepo) UpdateData(ctx context.Context, id string, data map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[id]
	if !ok {
		return nil
	}
	session.Data = cloneData(data)
	return nil
}

// DeleteByID は指定IDのセッションを削除する。
func (r *MemorySessionRepo) DeleteByID(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

// DeleteByUsername は指定ユーザーの全セッションを削除する。
func (r *MemorySessionRepo) DeleteByUsername(ctx context.Context, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, session := range r.sessions {
		if session.Username == username {
			delete(r.sessions, id)
		}
	}
	return nil
}

// Count は現在保持しているセッション数を返す。テストおよびメトリクス用。
func (r *MemorySessionRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// cleanupLoop はバックグラウンドで期限切れセッションを定期的に削除する。
func (r *MemorySessionRepo) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.cleanup()
		case <-r.stopCh:
			return
		}
	}
}

// cleanup は期限切れセッションを全て削除する。
func (r *MemorySessionRepo) cleanup() {
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()
	for id, session := range r.sessions {
		if now.After(session.ExpiresAt) {
			delete(r.sessions, id)
		}
	}
}

// cloneSession は呼び出し元とストア間でmapを共有しないための複製を返す。
func cloneSession(s *model.Session) *model.Session {
	copied := *s
	copied.Data = cloneData(s.Data)
	return &copied
}

func cloneData(data map[string]string) map[string]string {
	cloned := make(map[string]string, len(data))
	for k, v := range data {
		cloned[k] = v
	}
	return cloned
}

// compile-time interface check
var _ SessionRepository = (*MemorySessionRepo)(nil)
