package sanitize

import (
	"math"
	"strconv"
	"strings"

	"github.com/fairwaylab/swinggate/internal/models"
)

// Annotation projects a loose annotation object onto the allow-listed
// Annotation fields. Unknown keys are dropped by construction, text and
// type go through Text, color fields through Color, and numeric fields
// coerce anything non-finite or non-numeric to 0.
func Annotation(raw map[string]any) models.Annotation {
	a := models.Annotation{
		Type:        Text(stringField(raw, "type")),
		Left:        numberField(raw, "left"),
		Top:         numberField(raw, "top"),
		Width:       numberField(raw, "width"),
		Height:      numberField(raw, "height"),
		X1:          numberField(raw, "x1"),
		Y1:          numberField(raw, "y1"),
		X2:          numberField(raw, "x2"),
		Y2:          numberField(raw, "y2"),
		Radius:      numberField(raw, "radius"),
		Angle:       numberField(raw, "angle"),
		ScaleX:      numberField(raw, "scaleX"),
		ScaleY:      numberField(raw, "scaleY"),
		StrokeWidth: numberField(raw, "strokeWidth"),
		FontSize:    numberField(raw, "fontSize"),
		Text:        Text(stringField(raw, "text")),
	}
	if _, ok := raw["stroke"]; ok {
		a.Stroke = Color(stringField(raw, "stroke"))
	}
	if _, ok := raw["fill"]; ok {
		a.Fill = Color(stringField(raw, "fill"))
	}
	return a
}

// Annotations projects a slice of loose annotation objects.
func Annotations(raw []map[string]any) []models.Annotation {
	if len(raw) == 0 {
		return nil
	}
	out := make([]models.Annotation, 0, len(raw))
	for _, r := range raw {
		out = append(out, Annotation(r))
	}
	return out
}

func stringField(raw map[string]any, key string) string {
	s, _ := raw[key].(string)
	return s
}

// numberField mirrors the editor's Number() coercion: missing keys,
// non-numeric values, NaN and infinities all become 0.
func numberField(raw map[string]any, key string) float64 {
	switch v := raw[key].(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0
		}
		return v
	case int:
		return float64(v)
	case string:
		x, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || math.IsNaN(x) || math.IsInf(x, 0) {
			return 0
		}
		return x
	default:
		return 0
	}
}
