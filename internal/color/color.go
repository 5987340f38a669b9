// Package color は教科表示用のランダムなパステルカラーを生成する。
package color

import (
	"fmt"
	"math/rand/v2"
)

// Color はHSL形式の色とその上に載せる文字色の組を表す。
type Color struct {
	Color     string `json:"color"`      // 例: "hsl(210, 60%, 80%)"
	TextColor string `json:"text_color"` // "black" または "white"
}

// RandomPastel は柔らかい色合いのランダムカラーを生成する。
// 色相は0〜360、彩度は50〜70%、明度は70〜85%の範囲から選ぶ。
// 明度が75%を超える場合は黒文字、それ以外は白文字を組み合わせる。
func RandomPastel() Color {
	hue := rand.IntN(361)
	saturation := 50 + rand.IntN(21)
	lightness := 70 + rand.IntN(16)

	textColor := "white"
	if lightness > 75 {
		textColor = "black"
	}

	return Color{
		Color:     fmt.Sprintf("hsl(%d, %d%%, %d%%)", hue, saturation, lightness),
		TextColor: textColor,
	}
}
