package render

import (
	_ "embed"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"mermaidrender/internal/contracts/mmdc"
)

//go:embed theme.css.tmpl
var themeCSSSource string

var themeCSS = template.Must(template.New("theme.css").Funcs(sprig.TxtFuncMap()).Parse(themeCSSSource))

// Fixed palette written into every config.
const (
	primaryColor       = "#e0e7ff"
	primaryTextColor   = "#333333"
	primaryBorderColor = "#4a90e2"
	lineColor          = "#666666"
	secondaryColor     = "#f0f0f0"
	tertiaryColor      = "#f8f8f8"
)

// ConfigBuilder turns Options into the renderer's config document. The launch
// arguments are fixed at construction and shared by every build.
type ConfigBuilder struct {
	launchArgs []string
}

// NewConfigBuilder returns a builder embedding launchArgs into every config.
func NewConfigBuilder(launchArgs []string) *ConfigBuilder {
	return &ConfigBuilder{launchArgs: append([]string(nil), launchArgs...)}
}

// LaunchArgs returns a copy of the configured launch arguments.
func (b *ConfigBuilder) LaunchArgs() []string {
	return append([]string(nil), b.launchArgs...)
}

// Build returns the config document for opts. It is pure and never fails.
func (b *ConfigBuilder) Build(opts Options) mmdc.Config {
	return mmdc.Config{
		Theme: opts.Theme,
		ThemeVariables: mmdc.ThemeVariables{
			FontFamily:         opts.FontFamily,
			FontSize:           opts.FontSize,
			PrimaryColor:       primaryColor,
			PrimaryTextColor:   primaryTextColor,
			PrimaryBorderColor: primaryBorderColor,
			LineColor:          lineColor,
			SecondaryColor:     secondaryColor,
			TertiaryColor:      tertiaryColor,
		},
		ThemeCSS: buildThemeCSS(opts),
		Flowchart: mmdc.Flowchart{
			HTMLLabels:     true,
			Curve:          "basis",
			DiagramPadding: 20,
			UseMaxWidth:    false,
			NodeSpacing:    50,
			RankSpacing:    80,
			CurveTension:   opts.CurveTension,
		},
		ER: mmdc.ER{
			LayoutDirection: "TB",
			EntityPadding:   15,
		},
		Sequence: mmdc.Sequence{
			DiagramMarginX: 50,
			DiagramMarginY: 30,
			ActorMargin:    50,
			Width:          150,
			Height:         65,
		},
		PuppeteerConfig: mmdc.PuppeteerConfig{
			Args: b.LaunchArgs(),
		},
	}
}

// buildThemeCSS renders the stylesheet. Options are validated before they
// get here, so an execution error only drops the custom styling.
func buildThemeCSS(opts Options) string {
	var sb strings.Builder
	if err := themeCSS.Execute(&sb, opts); err != nil {
		return ""
	}
	return sb.String()
}
