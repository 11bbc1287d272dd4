package render

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
)

// Option defaults.
const (
	DefaultTheme           = "default"
	DefaultWidth           = 2000
	DefaultHeight          = 1400
	DefaultScale           = 3.0
	DefaultBackgroundColor = "#ffffff"
	DefaultFontFamily      = "B Yekan,San Francisco, Vazirmatn, Tahoma, sans-serif"
	DefaultFontSize        = "16px"

	// MaxDimension bounds width and height; larger values keep the default.
	MaxDimension = 20000
)

var knownThemes = map[string]bool{
	"default": true,
	"forest":  true,
	"dark":    true,
	"neutral": true,
	"base":    true,
}

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3,4}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)

// Options are the caller-tunable render parameters.
type Options struct {
	Theme           string  `json:"theme"`
	Width           int     `json:"width"`
	Height          int     `json:"height"`
	Scale           float64 `json:"scale"`
	BackgroundColor string  `json:"backgroundColor"`
	FontFamily      string  `json:"fontFamily"`
	FontSize        string  `json:"fontSize"`
	RoughStyle      bool    `json:"roughStyle"`
	CurveTension    float64 `json:"curveTension"`
}

// DefaultOptions returns the options used for absent or invalid fields.
func DefaultOptions() Options {
	return Options{
		Theme:           DefaultTheme,
		Width:           DefaultWidth,
		Height:          DefaultHeight,
		Scale:           DefaultScale,
		BackgroundColor: DefaultBackgroundColor,
		FontFamily:      DefaultFontFamily,
		FontSize:        DefaultFontSize,
	}
}

// ParseOptions coerces loosely typed request options. It never fails: any
// field that is missing or cannot be coerced keeps its default.
func ParseOptions(raw any) Options {
	opts := DefaultOptions()

	m, ok := raw.(map[string]any)
	if !ok {
		return opts
	}

	if s, ok := m["theme"].(string); ok {
		if t := strings.ToLower(strings.TrimSpace(s)); knownThemes[t] {
			opts.Theme = t
		}
	}
	if n, ok := dimension(m["width"]); ok {
		opts.Width = n
	}
	if n, ok := dimension(m["height"]); ok {
		opts.Height = n
	}
	if n, ok := toFloat(m["scale"]); ok && n > 0 {
		opts.Scale = n
	}
	if n, ok := toFloat(m["curveTension"]); ok {
		opts.CurveTension = n
	}
	if s, ok := m["backgroundColor"].(string); ok && IsValidColor(s) {
		opts.BackgroundColor = strings.TrimSpace(s)
	}
	if s, ok := m["fontFamily"].(string); ok {
		if f := sanitizeCSSValue(s); f != "" {
			opts.FontFamily = f
		}
	}
	if size, ok := fontSize(m["fontSize"]); ok {
		opts.FontSize = size
	}
	opts.RoughStyle = IsTruthy(m["roughStyle"])

	return opts
}

// IsValidColor reports whether s is a hex colour, "transparent" or a CSS
// colour name.
func IsValidColor(s string) bool {
	s = strings.TrimSpace(s)
	if hexColor.MatchString(s) {
		return true
	}
	name := strings.ToLower(s)
	if name == "transparent" {
		return true
	}
	_, ok := colornames.Map[name]
	return ok
}

// IsTruthy reports whether a loosely typed flag value means true.
func IsTruthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t == 1
	case int:
		return t == 1
	case int64:
		return t == 1
	case json.Number:
		n, err := t.Float64()
		return err == nil && n == 1
	case string:
		s := strings.TrimSpace(strings.ToLower(t))
		return s == "1" || s == "true" || s == "yes" || s == "on"
	default:
		return false
	}
}

// toFloat accepts JSON numbers and numeric strings. NaN and infinities are
// rejected.
func toFloat(v any) (float64, bool) {
	var n float64
	switch t := v.(type) {
	case float64:
		n = t
	case int:
		n = float64(t)
	case int64:
		n = float64(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		n = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		n = f
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

// dimension accepts values in [1, MaxDimension], truncated to an int.
func dimension(v any) (int, bool) {
	n, ok := toFloat(v)
	if !ok || n < 1 || n > MaxDimension {
		return 0, false
	}
	return int(n), true
}

func fontSize(v any) (string, bool) {
	if s, ok := v.(string); ok {
		s = sanitizeCSSValue(s)
		if s == "" {
			return "", false
		}
		if _, err := strconv.ParseFloat(s, 64); err == nil {
			return s + "px", true
		}
		return s, true
	}
	if n, ok := toFloat(v); ok && n > 0 {
		return fmt.Sprintf("%spx", strconv.FormatFloat(n, 'f', -1, 64)), true
	}
	return "", false
}

// sanitizeCSSValue drops characters that could end a CSS declaration or
// string and trims the result.
func sanitizeCSSValue(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '{', '}', ';', '<', '>', '\\', '"', '\'', '\n', '\r':
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}
