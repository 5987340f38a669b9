// Package security はアプリケーションのセキュリティ機能を提供する。
//
// SubjectSanitizer はユーザーが自由入力する教科名をサニタイズし、
// 保存前にHTMLタグを除去する。教科名はダッシュボードや教科詳細ページに
// そのまま表示されるため、許可リストなし（全タグ除去）のポリシーを使う。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// SubjectSanitizer は教科名のサニタイズ機能のインターフェースを定義する。
type SubjectSanitizer interface {
	// Sanitize は教科名からHTMLタグを除去し、前後の空白を取り除いて返す。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(subject string) string
}

// subjectSanitizer はSubjectSanitizerの実装。
// bluemondayのStrictPolicyを保持し、スレッドセーフにサニタイズ処理を行う。
type subjectSanitizer struct {
	policy *bluemonday.Policy
}

// NewSubjectSanitizer はSubjectSanitizerの新しいインスタンスを生成する。
// StrictPolicyは全てのタグと属性を除去する。
func NewSubjectSanitizer() *subjectSanitizer {
	return &subjectSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は教科名からHTMLタグを除去し、前後の空白を取り除いて返す。
// StrictPolicyはテキストをエンティティ化するため、テンプレート側の
// 二重エスケープを避けるようアンエスケープして平文に戻す。
func (s *subjectSanitizer) Sanitize(subject string) string {
	cleaned := s.policy.Sanitize(subject)
	return strings.TrimSpace(html.UnescapeString(cleaned))
}
