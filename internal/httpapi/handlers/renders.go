package handlers

import (
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"mermaidrender/internal/httpkit"
	"mermaidrender/internal/models"
	"mermaidrender/internal/pkg/errors"
	"mermaidrender/internal/repositories"
)

const defaultListLimit = 50

// ListRenders returns recent history, newest first.
func (h *Handler) ListRenders(w http.ResponseWriter, r *http.Request) error {
	if h.renders == nil {
		return errors.NotFound("resource", "renders")
	}

	limit := defaultListLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return errors.Validation("limit must be a positive integer").WithField("limit", raw)
		}
		limit = min(n, repositories.MaxListLimit)
	}
	status := strings.TrimSpace(r.URL.Query().Get("status"))

	renders, err := h.renders.List(r.Context(), status, limit)
	if err != nil {
		return errors.Internal(err, "renders.list")
	}

	httpkit.WriteJSON(w, http.StatusOK, map[string]any{"renders": renders})
	return nil
}

func (h *Handler) GetRender(w http.ResponseWriter, r *http.Request) error {
	rec, err := h.lookupRender(r)
	if err != nil {
		return err
	}
	httpkit.WriteJSON(w, http.StatusOK, map[string]any{"render": rec})
	return nil
}

// StreamRender serves an archived image.
func (h *Handler) StreamRender(w http.ResponseWriter, r *http.Request) error {
	rec, err := h.lookupRender(r)
	if err != nil {
		return err
	}
	if h.storage == nil || rec.ObjectKey == "" {
		return errors.NotFound("render content", rec.ID)
	}

	rc, ct, size, err := h.storage.GetObject(r.Context(), rec.ObjectKey)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return errors.NotFound("render content", rec.ID)
		}
		return errors.Internal(err, "renders.get_object").WithField("object_key", rec.ObjectKey)
	}
	defer rc.Close()

	if ct == "" {
		ct = h.processor.ContentType()
	}
	w.Header().Set("Content-Type", ct)
	if size <= 0 {
		size = rec.SizeBytes
	}
	if size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	}
	w.Header().Set(HeaderRenderID, rec.ID)
	if _, err := io.Copy(w, rc); err != nil {
		h.log.FromContext(r.Context()).Warn("render content stream failed", "render_id", rec.ID, "error", err.Error())
	}
	return nil
}

// DeleteRender removes a history row and its archived image.
func (h *Handler) DeleteRender(w http.ResponseWriter, r *http.Request) error {
	rec, err := h.lookupRender(r)
	if err != nil {
		return err
	}

	if h.storage != nil && rec.ObjectKey != "" {
		if err := h.storage.DeleteObject(r.Context(), rec.ObjectKey); err != nil && !errors.Is(err, os.ErrNotExist) {
			return errors.Internal(err, "renders.delete_object").WithField("object_key", rec.ObjectKey)
		}
	}

	if err := h.renders.Delete(r.Context(), rec.ID); err != nil {
		if errors.Is(err, repositories.ErrRenderNotFound) {
			return errors.NotFound("render", rec.ID)
		}
		return errors.Internal(err, "renders.delete")
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *Handler) lookupRender(r *http.Request) (*models.Render, error) {
	id := chi.URLParam(r, "renderId")
	if h.renders == nil {
		return nil, errors.NotFound("render", id)
	}

	rec, err := h.renders.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, repositories.ErrRenderNotFound) {
			return nil, errors.NotFound("render", id)
		}
		return nil, errors.Internal(err, "renders.get")
	}
	return rec, nil
}
