package repository

import (
	"context"
	"testing"
	"time"

	"github.com/hitoshi/studylog/internal/model"
)

func newMemoryTestSession(id, username string, ttl time.Duration) *model.Session {
	return &model.Session{
		ID:        id,
		Username:  username,
		Data:      map[string]string{},
		ExpiresAt: time.Now().Add(ttl),
		CreatedAt: time.Now(),
	}
}

func TestMemorySessionRepo_CreateAndFind(t *testing.T) {
	repo := NewMemorySessionRepo(time.Hour)
	defer repo.Stop()
	ctx := context.Background()

	session := newMemoryTestSession("s1", "alice", time.Hour)
	if err := repo.Create(ctx, session); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	got, err := repo.FindByID(ctx, "s1")
	if err != nil {
		t.Fatalf("FindByID returned error: %v", err)
	}
	if got == nil || got.Username != "alice" {
		t.Fatalf("FindByID = %+v, want session for alice", got)
	}
}

func TestMemorySessionRepo_FindByID_Expired_ReturnsNil(t *testing.T) {
	repo := NewMemorySessionRepo(time.Hour)
	defer repo.Stop()
	ctx := context.Background()

	session := newMemoryTestSession("s1", "alice", -time.Minute)
	if err := repo.Create(ctx, session); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	got, err := repo.FindByID(ctx, "s1")
	if err != nil {
		t.Fatalf("FindByID returned error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for expired session, got %+v", got)
	}
}

func TestMemorySessionRepo_FindByID_ReturnsCopy(t *testing.T) {
	repo := NewMemorySessionRepo(time.Hour)
	defer repo.Stop()
	ctx := context.Background()

	if err := repo.Create(ctx, newMemoryTestSession("s1", "alice", time.Hour)); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	first, err := repo.FindByID(ctx, "s1")
	if err != nil {
		t.Fatalf("FindByID returned error: %v", err)
	}
	// 取得したセッションを書き換えてもストア側には影響しない
	first.Data["key"] = "modified"

	second, err := repo.FindByID(ctx, "s1")
	if err != nil {
		t.Fatalf("FindByID returned error: %v", err)
	}
	if _, ok := second.Data["key"]; ok {
		t.Error("mutation on returned session leaked into store")
	}
}

func TestMemorySessionRepo_UpdateData_ReplacesData(t *testing.T) {
	repo := NewMemorySessionRepo(time.Hour)
	defer repo.Stop()
	ctx := context.Background()

	if err := repo.Create(ctx, newMemoryTestSession("s1", "alice", time.Hour)); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	data := map[string]string{"current_subject": "数学"}
	if err := repo.UpdateData(ctx, "s1", data); err != nil {
		t.Fatalf("UpdateData returned error: %v", err)
	}

	got, err := repo.FindByID(ctx, "s1")
	if err != nil {
		t.Fatalf("FindByID returned error: %v", err)
	}
	if got.Data["current_subject"] != "数学" {
		t.Errorf("Data = %v, want current_subject=数学", got.Data)
	}
}

func TestMemorySessionRepo_UpdateData_UnknownID_IsNoop(t *testing.T) {
	repo := NewMemorySessionRepo(time.Hour)
	defer repo.Stop()

	if err := repo.UpdateData(context.Background(), "missing", map[string]string{"k": "v"}); err != nil {
		t.Errorf("UpdateData on unknown ID returned error: %v", err)
	}
}

func TestMemorySessionRepo_DeleteByID(t *testing.T) {
	repo := NewMemorySessionRepo(time.Hour)
	defer repo.Stop()
	ctx := context.Background()

	if err := repo.Create(ctx, newMemoryTestSession("s1", "alice", time.Hour)); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if err := repo.DeleteByID(ctx, "s1"); err != nil {
		t.Fatalf("DeleteByID returned error: %v", err)
	}

	got, err := repo.FindByID(ctx, "s1")
	if err != nil {
		t.Fatalf("FindByID returned error: %v", err)
	}
	if got != nil {
		t.Errorf("session still present after delete: %+v", got)
	}
}

func TestMemorySessionRepo_DeleteByUsername_RemovesAllUserSessions(t *testing.T) {
	repo := NewMemorySessionRepo(time.Hour)
	defer repo.Stop()
	ctx := context.Background()

	for _, id := range []string{"a1", "a2"} {
		if err := repo.Create(ctx, newMemoryTestSession(id, "alice", time.Hour)); err != nil {
			t.Fatalf("Create returned error: %v", err)
		}
	}
	if err := repo.Create(ctx, newMemoryTestSession("b1", "bob", time.Hour)); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if err := repo.DeleteByUsername(ctx, "alice"); err != nil {
		t.Fatalf("DeleteByUsername returned error: %v", err)
	}

	if repo.Count() != 1 {
		t.Errorf("Count = %d, want 1", repo.Count())
	}
	got, err := repo.FindByID(ctx, "b1")
	if err != nil {
		t.Fatalf("FindByID returned error: %v", err)
	}
	if got == nil {
		t.Error("bob's session was deleted")
	}
}

func TestMemorySessionRepo_CleanupRemovesExpiredSessions(t *testing.T) {
	repo := NewMemorySessionRepo(time.Hour)
	defer repo.Stop()
	ctx := context.Background()

	if err := repo.Create(ctx, newMemoryTestSession("live", "alice", time.Hour)); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if err := repo.Create(ctx, newMemoryTestSession("dead", "alice", -time.Minute)); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	repo.cleanup()

	if repo.Count() != 1 {
		t.Errorf("Count after cleanup = %d, want 1", repo.Count())
	}
}
