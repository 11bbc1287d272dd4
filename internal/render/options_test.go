package render

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseOptionsDefaults(t *testing.T) {
	testCases := []struct {
		name string
		raw  any
	}{
		{name: "nil", raw: nil},
		{name: "empty object", raw: map[string]any{}},
		{name: "not an object", raw: "wide please"},
		{name: "array", raw: []any{1, 2}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, DefaultOptions(), ParseOptions(tc.raw))
		})
	}
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	require.Equal(t, "default", opts.Theme)
	require.Equal(t, 2000, opts.Width)
	require.Equal(t, 1400, opts.Height)
	require.Equal(t, 3.0, opts.Scale)
	require.Equal(t, "#ffffff", opts.BackgroundColor)
	require.Equal(t, "B Yekan,San Francisco, Vazirmatn, Tahoma, sans-serif", opts.FontFamily)
	require.Equal(t, "16px", opts.FontSize)
	require.False(t, opts.RoughStyle)
	require.Equal(t, 0.0, opts.CurveTension)
}

func TestParseOptions(t *testing.T) {
	testCases := []struct {
		name     string
		raw      map[string]any
		expected func(*Options)
	}{
		{
			name:     "valid theme",
			raw:      map[string]any{"theme": "Dark"},
			expected: func(o *Options) { o.Theme = "dark" },
		},
		{
			name:     "unknown theme",
			raw:      map[string]any{"theme": "solarized"},
			expected: func(o *Options) {},
		},
		{
			name: "numeric dimensions",
			raw:  map[string]any{"width": 800.0, "height": 600.0, "scale": 1.5},
			expected: func(o *Options) {
				o.Width, o.Height, o.Scale = 800, 600, 1.5
			},
		},
		{
			name: "string dimensions",
			raw:  map[string]any{"width": "1024", "height": " 768 ", "scale": "2"},
			expected: func(o *Options) {
				o.Width, o.Height, o.Scale = 1024, 768, 2
			},
		},
		{
			name: "json numbers",
			raw:  map[string]any{"width": json.Number("640"), "curveTension": json.Number("0.25")},
			expected: func(o *Options) {
				o.Width, o.CurveTension = 640, 0.25
			},
		},
		{
			name:     "non-positive dimensions fall back",
			raw:      map[string]any{"width": 0.0, "height": -5.0, "scale": 0.0},
			expected: func(o *Options) {},
		},
		{
			name:     "oversized dimensions fall back",
			raw:      map[string]any{"width": json.Number("1e20"), "height": "1e300"},
			expected: func(o *Options) {},
		},
		{
			name:     "dimensions beyond int32 fall back",
			raw:      map[string]any{"width": 3e9, "height": json.Number("3000000000")},
			expected: func(o *Options) {},
		},
		{
			name: "largest dimension is kept",
			raw:  map[string]any{"width": float64(MaxDimension), "height": "20000.9"},
			expected: func(o *Options) {
				o.Width = MaxDimension
			},
		},
		{
			name:     "garbage dimensions fall back",
			raw:      map[string]any{"width": "wide", "height": true, "scale": "NaN"},
			expected: func(o *Options) {},
		},
		{
			name:     "hex colour",
			raw:      map[string]any{"backgroundColor": "#1e1e2e"},
			expected: func(o *Options) { o.BackgroundColor = "#1e1e2e" },
		},
		{
			name:     "named colour",
			raw:      map[string]any{"backgroundColor": "white"},
			expected: func(o *Options) { o.BackgroundColor = "white" },
		},
		{
			name:     "transparent",
			raw:      map[string]any{"backgroundColor": "transparent"},
			expected: func(o *Options) { o.BackgroundColor = "transparent" },
		},
		{
			name:     "injection attempt in colour",
			raw:      map[string]any{"backgroundColor": "red; } body { display:none"},
			expected: func(o *Options) {},
		},
		{
			name:     "font family is sanitized",
			raw:      map[string]any{"fontFamily": `Inter'; } .x { color: red`},
			expected: func(o *Options) { o.FontFamily = "Inter  .x  color: red" },
		},
		{
			name:     "blank font family",
			raw:      map[string]any{"fontFamily": " ;; "},
			expected: func(o *Options) {},
		},
		{
			name:     "numeric font size",
			raw:      map[string]any{"fontSize": 18.0},
			expected: func(o *Options) { o.FontSize = "18px" },
		},
		{
			name:     "numeric string font size",
			raw:      map[string]any{"fontSize": "14"},
			expected: func(o *Options) { o.FontSize = "14px" },
		},
		{
			name:     "font size with unit",
			raw:      map[string]any{"fontSize": "1.2em"},
			expected: func(o *Options) { o.FontSize = "1.2em" },
		},
		{
			name:     "rough style bool",
			raw:      map[string]any{"roughStyle": true},
			expected: func(o *Options) { o.RoughStyle = true },
		},
		{
			name:     "rough style string",
			raw:      map[string]any{"roughStyle": "on"},
			expected: func(o *Options) { o.RoughStyle = true },
		},
		{
			name:     "rough style false string",
			raw:      map[string]any{"roughStyle": "false"},
			expected: func(o *Options) {},
		},
		{
			name:     "negative curve tension is kept",
			raw:      map[string]any{"curveTension": -0.5},
			expected: func(o *Options) { o.CurveTension = -0.5 },
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			expected := DefaultOptions()
			tc.expected(&expected)
			require.Equal(t, expected, ParseOptions(tc.raw))
		})
	}
}

func TestParseOptionsDimensionsStayPositive(t *testing.T) {
	for _, v := range []any{1e20, json.Number("1e20"), "1e300", 3e9, 1e15, "-1e300", 0.5} {
		opts := ParseOptions(map[string]any{"width": v, "height": v})
		require.Greater(t, opts.Width, 0, "%#v", v)
		require.LessOrEqual(t, opts.Width, MaxDimension, "%#v", v)
		require.Greater(t, opts.Height, 0, "%#v", v)
		require.LessOrEqual(t, opts.Height, MaxDimension, "%#v", v)
	}
}

func TestIsValidColor(t *testing.T) {
	for _, c := range []string{"#fff", "#FFFF", "#a1b2c3", "#a1b2c3d4", "red", "DarkSlateGray", "transparent"} {
		require.True(t, IsValidColor(c), c)
	}
	for _, c := range []string{"", "#ff", "#gggggg", "not-a-colour", "rgb(0,0,0)", "#12345"} {
		require.False(t, IsValidColor(c), c)
	}
}

func TestIsTruthy(t *testing.T) {
	for _, v := range []any{true, 1.0, 1, int64(1), json.Number("1"), "1", "TRUE", " yes ", "on"} {
		require.True(t, IsTruthy(v), "%#v", v)
	}
	for _, v := range []any{false, 0.0, 2, "", "no", "off", nil, map[string]any{}} {
		require.False(t, IsTruthy(v), "%#v", v)
	}
}
