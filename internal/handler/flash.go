package handler

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hitoshi/studylog/internal/model"
)

// flashKey はセッションデータ内でフラッシュメッセージを保持するキー。
// 値はJSON配列としてエンコードされた文字列リスト。
const flashKey = "flash"

// SessionDataUpdater はセッションKVデータの更新インターフェース。
// repository.SessionRepositoryの部分集合として定義する。
type SessionDataUpdater interface {
	UpdateData(ctx context.Context, id string, data map[string]string) error
}

// pushFlash はセッションに表示待ちメッセージを1件積む。
// フラッシュの失敗はページ遷移を妨げないため、ログに記録するだけにする。
func pushFlash(ctx context.Context, updater SessionDataUpdater, session *model.Session, message string) {
	var messages []string
	if raw, ok := session.Data[flashKey]; ok {
		// 壊れている場合は捨てて積み直す
		_ = json.Unmarshal([]byte(raw), &messages)
	}
	messages = append(messages, message)

	encoded, err := json.Marshal(messages)
	if err != nil {
		slog.Error("failed to encode flash messages", slog.String("error", err.Error()))
		return
	}
	session.Data[flashKey] = string(encoded)

	if err := updater.UpdateData(ctx, session.ID, session.Data); err != nil {
		slog.Error("failed to persist flash messages", slog.String("error", err.Error()))
	}
}

// popFlashes はセッションの表示待ちメッセージを全件取り出して消す。
func popFlashes(ctx context.Context, updater SessionDataUpdater, session *model.Session) []string {
	raw, ok := session.Data[flashKey]
	if !ok {
		return nil
	}

	var messages []string
	_ = json.Unmarshal([]byte(raw), &messages)

	delete(session.Data, flashKey)
	if err := updater.UpdateData(ctx, session.ID, session.Data); err != nil {
		slog.Error("failed to clear flash messages", slog.String("error", err.Error()))
	}

	return messages
}
