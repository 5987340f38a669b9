package color

import (
	"encoding/json"
	"fmt"
	"testing"
)

func TestRandomPastel_ValuesWithinRange(t *testing.T) {
	for i := 0; i < 1000; i++ {
		c := RandomPastel()

		var hue, saturation, lightness int
		if _, err := fmt.Sscanf(c.Color, "hsl(%d, %d%%, %d%%)", &hue, &saturation, &lightness); err != nil {
			t.Fatalf("failed to parse color %q: %v", c.Color, err)
		}

		if hue < 0 || hue > 360 {
			t.Errorf("hue = %d, want 0..360", hue)
		}
		if saturation < 50 || saturation > 70 {
			t.Errorf("saturation = %d, want 50..70", saturation)
		}
		if lightness < 70 || lightness > 85 {
			t.Errorf("lightness = %d, want 70..85", lightness)
		}

		// 明度75%超は黒文字、それ以外は白文字
		want := "white"
		if lightness > 75 {
			want = "black"
		}
		if c.TextColor != want {
			t.Errorf("TextColor = %q for lightness %d, want %q", c.TextColor, lightness, want)
		}
	}
}

func TestColor_JSONShape(t *testing.T) {
	c := Color{Color: "hsl(210, 60%, 80%)", TextColor: "black"}

	data, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}

	var decoded map[string]string
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if decoded["color"] != "hsl(210, 60%, 80%)" {
		t.Errorf("color = %q, want hsl(210, 60%%, 80%%)", decoded["color"])
	}
	if decoded["text_color"] != "black" {
		t.Errorf("text_color = %q, want black", decoded["text_color"])
	}
}
