package handlers

import (
	"context"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"mermaidrender/internal/httpkit"
	"mermaidrender/internal/pkg/errors"
	"mermaidrender/internal/render"
)

const (
	HeaderRenderID    = "X-Render-ID"
	HeaderRenderCache = "X-Render-Cache"
)

type renderRequest struct {
	Code    any `json:"code"`
	Options any `json:"options"`
}

// Render renders the posted diagram and streams the image back.
func (h *Handler) Render(w http.ResponseWriter, r *http.Request) error {
	if h.maxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	}

	req, err := decodeRenderRequest(r)
	if err != nil {
		return err
	}

	source, ok := req.Code.(string)
	if !ok || strings.TrimSpace(source) == "" {
		return errors.Validation(errors.MsgMissingCode)
	}

	// The render runs to completion even if the caller goes away, so its
	// files are always cleaned up by the processor rather than abandoned.
	ctx := context.WithoutCancel(r.Context())

	return h.processor.Render(ctx, render.Request{
		Source:  source,
		Options: render.ParseOptions(req.Options),
	}, func(res *render.Result) error {
		hdr := w.Header()
		hdr.Set("Content-Type", res.ContentType)
		hdr.Set("Content-Length", strconv.FormatInt(res.Size, 10))
		hdr.Set("Cache-Control", "no-store")
		hdr.Set(HeaderRenderID, res.RenderID)
		if res.Cached {
			hdr.Set(HeaderRenderCache, "hit")
		} else {
			hdr.Set(HeaderRenderCache, "miss")
		}
		w.WriteHeader(http.StatusOK)
		_, err := io.Copy(w, res.Body)
		return err
	})
}

// decodeRenderRequest accepts a JSON body or a URL-encoded form. Form
// fields other than code become options.
func decodeRenderRequest(r *http.Request) (renderRequest, error) {
	var req renderRequest

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/x-www-form-urlencoded" {
		if err := r.ParseForm(); err != nil {
			return req, errors.WrapWithCode(err, errors.CodeValidation, "render.decode", errors.MsgInvalidBody)
		}
		opts := map[string]any{}
		for key, vals := range r.PostForm {
			if key == "code" || len(vals) == 0 {
				continue
			}
			opts[key] = vals[0]
		}
		if code, ok := r.PostForm["code"]; ok && len(code) > 0 {
			req.Code = code[0]
		}
		req.Options = opts
		return req, nil
	}

	if err := httpkit.DecodeJSON(r, &req); err != nil {
		if errors.Is(err, io.EOF) {
			// Empty body: nothing to render.
			return req, nil
		}
		return req, errors.WrapWithCode(err, errors.CodeValidation, "render.decode", errors.MsgInvalidBody)
	}
	return req, nil
}
