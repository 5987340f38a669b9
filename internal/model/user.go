// Package model はドメインモデルを定義する。
package model

import "time"

// 時刻・日付の保存フォーマット。
// 文字列としての辞書順が時系列順と一致するフォーマットを使用する。
const (
	TimeLayout = "2006-01-02 15:04:05"
	DateLayout = "2006-01-02"
)

// User はサービス利用ユーザーを表す。
// usernameが一意キー。作成後に更新・削除されることはない。
type User struct {
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Session はユーザーのログインセッションを表す。
// Dataはセッション単位のKVストアで、フラッシュメッセージと
// 進行中タイマーの状態を保持する。
type Session struct {
	ID        string
	Username  string
	Data      map[string]string
	ExpiresAt time.Time
	CreatedAt time.Time
}
