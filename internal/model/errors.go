package model

import "fmt"

// AppError はユーザーに提示するエラーを表す。
// フラッシュメッセージとしてそのままMessageを表示できる形式を持つ。
type AppError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, timer, system
}

// Error はerrorインターフェースを実装する。
func (e *AppError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUsernameExists     = "USERNAME_EXISTS"
	ErrCodeInvalidUsername    = "INVALID_USERNAME"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeEmptySubject       = "EMPTY_SUBJECT"
	ErrCodeNoActiveTimer      = "NO_ACTIVE_TIMER"
)

// NewUsernameExistsError はユーザー名重複エラーを生成する。
func NewUsernameExistsError(username string) *AppError {
	return &AppError{
		Code:     ErrCodeUsernameExists,
		Message:  fmt.Sprintf("ユーザー名 %s は既に使われています。", username),
		Category: "auth",
	}
}

// NewInvalidUsernameError はユーザー名形式エラーを生成する。
func NewInvalidUsernameError() *AppError {
	return &AppError{
		Code:     ErrCodeInvalidUsername,
		Message:  "ユーザー名には英数字と . _ - のみ使用できます（64文字まで）。",
		Category: "validation",
	}
}

// NewInvalidCredentialsError は認証失敗エラーを生成する。
// ユーザー名の存在有無を区別しない。
func NewInvalidCredentialsError() *AppError {
	return &AppError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "ユーザー名またはパスワードが違います。",
		Category: "auth",
	}
}

// NewEmptySubjectError は教科名未入力エラーを生成する。
func NewEmptySubjectError() *AppError {
	return &AppError{
		Code:     ErrCodeEmptySubject,
		Message:  "教科名を入力してください。",
		Category: "validation",
	}
}

// NewNoActiveTimerError は進行中タイマーなしエラーを生成する。
func NewNoActiveTimerError() *AppError {
	return &AppError{
		Code:     ErrCodeNoActiveTimer,
		Message:  "進行中の学習記録がありません。",
		Category: "timer",
	}
}
