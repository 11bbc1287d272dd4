package render

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildDefaults(t *testing.T) {
	b := NewConfigBuilder([]string{"--no-sandbox"})
	cfg := b.Build(ParseOptions(map[string]any{}))

	require.Equal(t, "default", cfg.Theme)
	require.Equal(t, DefaultFontFamily, cfg.ThemeVariables.FontFamily)
	require.Equal(t, "16px", cfg.ThemeVariables.FontSize)
	require.Equal(t, "#e0e7ff", cfg.ThemeVariables.PrimaryColor)
	require.Equal(t, "#333333", cfg.ThemeVariables.PrimaryTextColor)
	require.Equal(t, "#4a90e2", cfg.ThemeVariables.PrimaryBorderColor)
	require.Equal(t, "#666666", cfg.ThemeVariables.LineColor)
	require.Equal(t, "#f0f0f0", cfg.ThemeVariables.SecondaryColor)
	require.Equal(t, "#f8f8f8", cfg.ThemeVariables.TertiaryColor)

	require.True(t, cfg.Flowchart.HTMLLabels)
	require.Equal(t, "basis", cfg.Flowchart.Curve)
	require.Equal(t, 20, cfg.Flowchart.DiagramPadding)
	require.False(t, cfg.Flowchart.UseMaxWidth)
	require.Equal(t, 50, cfg.Flowchart.NodeSpacing)
	require.Equal(t, 80, cfg.Flowchart.RankSpacing)
	require.Equal(t, 0.0, cfg.Flowchart.CurveTension)

	require.Equal(t, "TB", cfg.ER.LayoutDirection)
	require.Equal(t, 15, cfg.ER.EntityPadding)

	require.Equal(t, 50, cfg.Sequence.DiagramMarginX)
	require.Equal(t, 30, cfg.Sequence.DiagramMarginY)
	require.Equal(t, 50, cfg.Sequence.ActorMargin)
	require.Equal(t, 150, cfg.Sequence.Width)
	require.Equal(t, 65, cfg.Sequence.Height)

	require.Equal(t, []string{"--no-sandbox"}, cfg.PuppeteerConfig.Args)

	require.Contains(t, cfg.ThemeCSS, "background-color: #ffffff;")
	require.Contains(t, cfg.ThemeCSS, "stroke-width: 1.5px;")
	require.Contains(t, cfg.ThemeCSS, "font-family: 'B Yekan', sans-serif;")
	require.NotContains(t, cfg.ThemeCSS, "subtle-float")
	require.NotContains(t, cfg.ThemeCSS, "rough-line")
}

func TestBuildRoughStyle(t *testing.T) {
	b := NewConfigBuilder(nil)
	opts := DefaultOptions()
	opts.RoughStyle = true
	opts.BackgroundColor = "#fdf6e3"
	opts.FontFamily = " Vazirmatn , Tahoma"

	css := b.Build(opts).ThemeCSS

	require.Contains(t, css, "background-color: #fdf6e3;")
	require.Contains(t, css, "stroke-width: 2px;")
	require.Contains(t, css, "stroke-width: 2.5px;")
	require.Contains(t, css, "filter: url(#rough-paper);")
	require.Contains(t, css, "filter: url(#rough-line);")
	require.Contains(t, css, "@keyframes subtle-float")
	require.Contains(t, css, "font-family: 'Vazirmatn', sans-serif;")
}

func TestBuildCarriesOptions(t *testing.T) {
	b := NewConfigBuilder([]string{"--no-sandbox", "--disable-gpu"})
	opts := ParseOptions(map[string]any{
		"theme":        "forest",
		"fontSize":     "20px",
		"curveTension": 0.4,
	})
	cfg := b.Build(opts)

	require.Equal(t, "forest", cfg.Theme)
	require.Equal(t, "20px", cfg.ThemeVariables.FontSize)
	require.Equal(t, 0.4, cfg.Flowchart.CurveTension)
	require.Equal(t, []string{"--no-sandbox", "--disable-gpu"}, cfg.PuppeteerConfig.Args)
}

func TestBuildIsPure(t *testing.T) {
	args := []string{"--no-sandbox"}
	b := NewConfigBuilder(args)
	args[0] = "--mutated"

	first := b.Build(DefaultOptions())
	first.PuppeteerConfig.Args[0] = "--also-mutated"
	second := b.Build(DefaultOptions())

	require.Equal(t, []string{"--no-sandbox"}, second.PuppeteerConfig.Args)
	require.Equal(t, []string{"--no-sandbox"}, b.LaunchArgs())
}

func TestBuildSerializesMermaidKeys(t *testing.T) {
	cfg := NewConfigBuilder([]string{"--no-sandbox"}).Build(DefaultOptions())
	raw, err := json.Marshal(cfg)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	for _, key := range []string{"theme", "themeVariables", "themeCSS", "flowchart", "er", "sequence", "puppeteerConfig"} {
		require.Contains(t, doc, key)
	}
	puppeteer := doc["puppeteerConfig"].(map[string]any)
	require.Equal(t, []any{"--no-sandbox"}, puppeteer["args"])
	require.True(t, strings.Contains(string(raw), `"htmlLabels":true`))
}
