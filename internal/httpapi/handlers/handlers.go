package handlers

import (
	"context"

	"mermaidrender/internal/models"
	"mermaidrender/internal/pkg/logger"
	"mermaidrender/internal/ports"
	"mermaidrender/internal/render"
)

// RenderStore reads and prunes render history.
type RenderStore interface {
	List(ctx context.Context, status string, limit int) ([]models.Render, error)
	Get(ctx context.Context, id string) (*models.Render, error)
	Delete(ctx context.Context, id string) error
}

// Deps are the handler collaborators. Renders and Storage are nil when
// history or the archive are disabled.
type Deps struct {
	Processor    *render.Processor
	Renders      RenderStore
	Storage      ports.StorageProvider
	Checks       []Check
	MaxBodyBytes int64
	Log          *logger.Logger
}

type Handler struct {
	processor    *render.Processor
	renders      RenderStore
	storage      ports.StorageProvider
	checks       []Check
	maxBodyBytes int64
	log          *logger.Logger
}

func New(d Deps) *Handler {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	return &Handler{
		processor:    d.Processor,
		renders:      d.Renders,
		storage:      d.Storage,
		checks:       d.Checks,
		maxBodyBytes: d.MaxBodyBytes,
		log:          log.WithComponent("http"),
	}
}

// Log is the handler logger, shared with the error-returning wrappers.
func (h *Handler) Log() *logger.Logger { return h.log }
