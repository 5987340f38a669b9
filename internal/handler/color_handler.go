package handler

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/studylog/internal/color"
)

// RandomColor は教科表示用のランダムなパステルカラーをJSONで返す。
// GET /get_random_color
func RandomColor(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(color.RandomPastel())
}
