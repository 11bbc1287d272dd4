package render

import (
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// Artifact prefixes.
const (
	inputPrefix  = "input"
	configPrefix = "config"
	outputPrefix = "output"
)

// Extensions of the three job artifacts.
type Extensions struct {
	Input  string
	Config string
	Output string
}

// DefaultExtensions returns .mmd, .json and .png.
func DefaultExtensions() Extensions {
	return Extensions{Input: ".mmd", Config: ".json", Output: ".png"}
}

// Namer allocates jobs with unique artifact paths under one directory.
type Namer struct {
	dir string
	ext Extensions
}

// NewNamer returns a namer placing artifacts in dir.
func NewNamer(dir string, ext Extensions) *Namer {
	return &Namer{dir: dir, ext: ext}
}

// Dir returns the artifact directory.
func (n *Namer) Dir() string { return n.dir }

// Extensions returns the artifact extensions.
func (n *Namer) Extensions() Extensions { return n.ext }

// NewJob allocates a job. Tokens are UUIDv7, so paths of concurrent jobs
// never collide.
func (n *Namer) NewJob() *Job {
	token := newToken()

	return &Job{
		ID:         token,
		InputPath:  n.path(inputPrefix, token, n.ext.Input),
		ConfigPath: n.path(configPrefix, token, n.ext.Config),
		OutputPath: n.path(outputPrefix, token, n.ext.Output),
	}
}

func newToken() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return id.String()
}

func (n *Namer) path(prefix, token, ext string) string {
	return filepath.Join(n.dir, prefix+"_"+token+ext)
}

// Job is one render request's set of temporary artifacts.
type Job struct {
	ID         string
	InputPath  string
	ConfigPath string
	OutputPath string

	cleanupOnce sync.Once
	cleanupErr  error
}

// Paths returns the input, config and output paths.
func (j *Job) Paths() []string {
	return []string{j.InputPath, j.ConfigPath, j.OutputPath}
}
