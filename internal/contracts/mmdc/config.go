// Package mmdc describes the JSON configuration file handed to the Mermaid CLI
// with -c. Field names follow the CLI's mermaid config schema.
package mmdc

// Config is the document written to a job's config path.
type Config struct {
	Theme           string          `json:"theme"`
	ThemeVariables  ThemeVariables  `json:"themeVariables"`
	ThemeCSS        string          `json:"themeCSS"`
	Flowchart       Flowchart       `json:"flowchart"`
	ER              ER              `json:"er"`
	Sequence        Sequence        `json:"sequence"`
	PuppeteerConfig PuppeteerConfig `json:"puppeteerConfig"`
}

// ThemeVariables override the palette of the selected theme.
type ThemeVariables struct {
	FontFamily         string `json:"fontFamily"`
	FontSize           string `json:"fontSize"`
	PrimaryColor       string `json:"primaryColor"`
	PrimaryTextColor   string `json:"primaryTextColor"`
	PrimaryBorderColor string `json:"primaryBorderColor"`
	LineColor          string `json:"lineColor"`
	SecondaryColor     string `json:"secondaryColor"`
	TertiaryColor      string `json:"tertiaryColor"`
}

// Flowchart holds flowchart layout settings.
type Flowchart struct {
	HTMLLabels     bool    `json:"htmlLabels"`
	Curve          string  `json:"curve"`
	DiagramPadding int     `json:"diagramPadding"`
	UseMaxWidth    bool    `json:"useMaxWidth"`
	NodeSpacing    int     `json:"nodeSpacing"`
	RankSpacing    int     `json:"rankSpacing"`
	CurveTension   float64 `json:"curveTension"`
}

// ER holds entity-relationship layout settings.
type ER struct {
	LayoutDirection string `json:"layoutDirection"`
	EntityPadding   int    `json:"entityPadding"`
}

// Sequence holds sequence diagram layout settings.
type Sequence struct {
	DiagramMarginX int `json:"diagramMarginX"`
	DiagramMarginY int `json:"diagramMarginY"`
	ActorMargin    int `json:"actorMargin"`
	Width          int `json:"width"`
	Height         int `json:"height"`
}

// PuppeteerConfig is passed through to the CLI's headless browser.
type PuppeteerConfig struct {
	Args []string `json:"args"`
}
