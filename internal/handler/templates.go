// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"bytes"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
)

//go:embed templates/*.html
var templatesFS embed.FS

// templates は埋め込みテンプレートを起動時に1回パースした結果。
var templates = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

// renderHTML はテンプレートを実行してHTMLレスポンスを書き込む。
// 実行エラー時は中途半端な出力を避けるため、バッファに書いてから送出する。
func renderHTML(w http.ResponseWriter, name string, data any) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		slog.Error("failed to render template",
			slog.String("template", name),
			slog.String("error", err.Error()),
		)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := buf.WriteTo(w); err != nil {
		slog.Error("failed to write response", slog.String("error", err.Error()))
	}
}
