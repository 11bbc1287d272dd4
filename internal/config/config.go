// Package config holds the process start-up options of the render service.
// Options are parsed once at entry from flags and environment variables and
// then passed explicitly to every component that needs them.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
)

// DefaultLaunchArgs is used when --puppeteer-args is not given.
const DefaultLaunchArgs = "--no-sandbox"

// Storage providers for the output archive.
const (
	StorageNone    = "none"
	StorageLocalFS = "localfs"
	StorageGDrive  = "gdrive"
)

// Opts is the full set of start-up options.
type Opts struct {
	Port          int           `long:"port" env:"PORT" description:"Port to serve HTTP on" default:"3000"`
	PuppeteerArgs string        `long:"puppeteer-args" env:"PUPPETEER_ARGS" description:"Comma-separated launch arguments for the renderer's headless browser" default:"--no-sandbox"`
	RendererCmd   string        `long:"renderer-command" env:"RENDERER_COMMAND" description:"Renderer executable and leading arguments" default:"npx mmdc"`
	RenderTimeout time.Duration `long:"render-timeout" env:"RENDER_TIMEOUT" description:"Kill the renderer after this long (0 disables)" default:"2m"`
	MaxConcurrent int           `long:"max-concurrent-renders" env:"MAX_CONCURRENT_RENDERS" description:"Maximum renders running at once (0 is unlimited)" default:"0"`
	MaxBodyBytes  int64         `long:"max-body-bytes" env:"MAX_BODY_BYTES" description:"Maximum accepted request body size" default:"1048576"`
	RateLimit     float64       `long:"rate-limit" env:"RATE_LIMIT" description:"Render requests per second (0 is unlimited)" default:"0"`
	RateBurst     int           `long:"rate-burst" env:"RATE_BURST" description:"Render request burst size" default:"10"`
	CORSOrigins   string        `long:"cors-allowed-origins" env:"CORS_ALLOWED_ORIGINS" description:"Comma-separated allowed CORS origins, * for any"`

	TempDir   string `long:"temp-dir" env:"TEMP_DIR" description:"Directory for per-request render artifacts" default:"temp"`
	PublicDir string `long:"public-dir" env:"PUBLIC_DIR" description:"Directory served at /" default:"public"`
	OutputDir string `long:"output-dir" env:"OUTPUT_DIR" description:"Root of the local output archive" default:"output"`

	InputExt  string `long:"input-ext" env:"INPUT_EXT" description:"Extension of diagram source files" default:".mmd"`
	ConfigExt string `long:"config-ext" env:"CONFIG_EXT" description:"Extension of renderer config files" default:".json"`
	OutputExt string `long:"output-ext" env:"OUTPUT_EXT" description:"Extension of rendered images" default:".png"`

	HTTP     HTTPOpts     `group:"HTTP" namespace:"http" env-namespace:"HTTP"`
	Log      LogOpts      `group:"Logging" namespace:"log" env-namespace:"LOG"`
	Metrics  MetricsOpts  `group:"Metrics" namespace:"metrics" env-namespace:"METRICS"`
	Redis    RedisOpts    `group:"Redis" namespace:"redis" env-namespace:"REDIS"`
	Postgres PostgresOpts `group:"Postgres" namespace:"postgres" env-namespace:"POSTGRES"`
	Storage  StorageOpts  `group:"Storage" namespace:"storage" env-namespace:"STORAGE"`
}

// HTTPOpts holds HTTP server options.
type HTTPOpts struct {
	ReadTimeout     time.Duration `long:"read-timeout" env:"READ_TIMEOUT" description:"HTTP read timeout" default:"30s"`
	WriteTimeout    time.Duration `long:"write-timeout" env:"WRITE_TIMEOUT" description:"HTTP write timeout, covers the render" default:"5m"`
	IdleTimeout     time.Duration `long:"idle-timeout" env:"IDLE_TIMEOUT" description:"HTTP idle timeout" default:"120s"`
	ShutdownTimeout time.Duration `long:"shutdown-timeout" env:"SHUTDOWN_TIMEOUT" description:"How long to wait for graceful stop" default:"30s"`
}

// LogOpts holds logging options.
type LogOpts struct {
	Level  string `long:"level" env:"LEVEL" description:"Minimum log level" default:"info"`
	Format string `long:"format" env:"FORMAT" description:"json or text" default:"json"`
	Source bool   `long:"source" env:"SOURCE" description:"Add source file and line to logs"`
}

// MetricsOpts holds Prometheus options.
type MetricsOpts struct {
	Disable bool   `long:"disable" env:"DISABLE" description:"Do not expose Prometheus metrics"`
	Path    string `long:"path" env:"PATH" description:"Path of the metrics endpoint" default:"/metrics"`
}

// RedisOpts configures the render cache. An empty address disables it.
type RedisOpts struct {
	Addr     string        `long:"addr" env:"ADDR" description:"Redis address (host:port); empty disables the render cache"`
	Password string        `long:"password" env:"PASSWORD" description:"Redis password"`
	DB       int           `long:"db" env:"DB" description:"Redis database" default:"0"`
	CacheTTL time.Duration `long:"cache-ttl" env:"CACHE_TTL" description:"Lifetime of cached renders" default:"24h"`
}

// PostgresOpts configures render history. An empty URL disables it.
type PostgresOpts struct {
	URL string `long:"url" env:"URL" description:"Postgres connection URL; empty disables render history"`
}

// StorageOpts configures the output archive.
type StorageOpts struct {
	Provider       string `long:"provider" env:"PROVIDER" description:"none, localfs or gdrive" default:"none"`
	GDriveClientID string `long:"gdrive-client-id" env:"GDRIVE_CLIENT_ID" description:"Google OAuth client id"`
	GDriveSecret   string `long:"gdrive-client-secret" env:"GDRIVE_CLIENT_SECRET" description:"Google OAuth client secret"`
	GDriveToken    string `long:"gdrive-refresh-token" env:"GDRIVE_REFRESH_TOKEN" description:"Google OAuth refresh token"`
	GDriveFolderID string `long:"gdrive-folder-id" env:"GDRIVE_FOLDER_ID" description:"Drive folder receiving archived renders"`
}

// Load parses args (without the program name) and the environment.
func Load(args []string) (*Opts, error) {
	opts := &Opts{}
	parser := flags.NewParser(opts, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

// IsHelp reports whether err is the result of -h/--help.
func IsHelp(err error) bool {
	return flags.WroteHelp(err)
}

// IsFlagError reports whether err came from the flag parser, which has
// already printed it.
func IsFlagError(err error) bool {
	var ferr *flags.Error
	return errors.As(err, &ferr)
}

// Validate checks option combinations that flags alone cannot express.
func (o *Opts) Validate() error {
	if o.Port <= 0 || o.Port > 65535 {
		return fmt.Errorf("invalid port %d", o.Port)
	}
	if len(o.RendererCommand()) == 0 {
		return fmt.Errorf("renderer command is empty")
	}
	if o.RenderTimeout < 0 {
		return fmt.Errorf("render timeout must not be negative")
	}
	if o.MaxConcurrent < 0 {
		return fmt.Errorf("max concurrent renders must not be negative")
	}
	if o.MaxBodyBytes <= 0 {
		return fmt.Errorf("max body bytes must be positive")
	}
	for name, ext := range map[string]string{"input": o.InputExt, "config": o.ConfigExt, "output": o.OutputExt} {
		if !strings.HasPrefix(ext, ".") || strings.ContainsAny(ext, `/\`) {
			return fmt.Errorf("invalid %s extension %q", name, ext)
		}
	}
	switch o.Storage.Provider {
	case StorageNone, StorageLocalFS:
	case StorageGDrive:
		if o.Storage.GDriveClientID == "" || o.Storage.GDriveSecret == "" || o.Storage.GDriveToken == "" {
			return fmt.Errorf("gdrive storage requires client id, client secret and refresh token")
		}
	default:
		return fmt.Errorf("unknown storage provider %q", o.Storage.Provider)
	}
	return nil
}

// LaunchArgs splits --puppeteer-args on commas. An empty value falls back to
// the default sandbox flag.
func (o *Opts) LaunchArgs() []string {
	return SplitCSV(o.PuppeteerArgs, DefaultLaunchArgs)
}

// RendererCommand splits the configured renderer command on whitespace.
func (o *Opts) RendererCommand() []string {
	return strings.Fields(o.RendererCmd)
}

// AllowedOrigins returns the configured CORS origins.
func (o *Opts) AllowedOrigins() []string {
	return SplitCSV(o.CORSOrigins, "")
}

// Addr is the listen address of the HTTP server.
func (o *Opts) Addr() string {
	return fmt.Sprintf(":%d", o.Port)
}

// EnsureDirs creates the temp, public and output directories if absent.
func (o *Opts) EnsureDirs() error {
	for _, dir := range []string{o.TempDir, o.PublicDir, o.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return nil
}

// SplitCSV splits a comma-separated list, trimming blanks. An empty result
// falls back to def split the same way.
func SplitCSV(value, def string) []string {
	out := splitTrim(value)
	if len(out) == 0 {
		out = splitTrim(def)
	}
	return out
}

func splitTrim(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
