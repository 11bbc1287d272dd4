// Package render turns diagram source into an image by orchestrating one
// temporary job per request: build the renderer config, write the job's
// files, run the renderer, hand the image to the caller and clean up.
package render

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"mime"
	"os"
	"path"
	"strconv"
	"time"

	"golang.org/x/sync/semaphore"

	"mermaidrender/internal/contracts/mmdc"
	"mermaidrender/internal/models"
	"mermaidrender/internal/pkg/errors"
	"mermaidrender/internal/pkg/logger"
	"mermaidrender/internal/ports"
	"mermaidrender/internal/render/renderer"
)

const (
	defaultContentType = "image/png"
	recordTimeout      = 5 * time.Second
	archiveTimeout     = 30 * time.Second
)

// Cache stores rendered images by input hash.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte) error
}

// History records the outcome of every render.
type History interface {
	Record(ctx context.Context, rec *models.Render) error
}

// Archive keeps a copy of every rendered image.
type Archive interface {
	PutObject(ctx context.Context, in ports.PutObjectInput) (ports.PutObjectOutput, error)
}

// Deps are the processor's collaborators. Cache, History and Archive are
// optional.
type Deps struct {
	Builder       *ConfigBuilder
	Namer         *Namer
	Renderer      renderer.Client
	Cache         Cache
	History       History
	Archive       Archive
	MaxConcurrent int
	Log           *logger.Logger
}

// Request is a validated render request.
type Request struct {
	Source  string
	Options Options
}

// Result is handed to the DeliverFunc once the image exists.
type Result struct {
	RenderID    string
	ContentType string
	Size        int64
	Cached      bool
	Body        io.Reader
}

// DeliverFunc streams a result to the caller. Its error is logged only: by
// the time it runs the response may already be partially written.
type DeliverFunc func(res *Result) error

type Processor struct {
	builder     *ConfigBuilder
	namer       *Namer
	renderer    renderer.Client
	cache       Cache
	history     History
	archive     Archive
	sem         *semaphore.Weighted
	contentType string
	log         *logger.Logger
}

func New(d Deps) *Processor {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}

	contentType := mime.TypeByExtension(d.Namer.Extensions().Output)
	if contentType == "" {
		contentType = defaultContentType
	}

	p := &Processor{
		builder:     d.Builder,
		namer:       d.Namer,
		renderer:    d.Renderer,
		cache:       d.Cache,
		history:     d.History,
		archive:     d.Archive,
		contentType: contentType,
		log:         log.WithComponent("render"),
	}
	if d.MaxConcurrent > 0 {
		p.sem = semaphore.NewWeighted(int64(d.MaxConcurrent))
	}
	return p
}

// ContentType is the media type of rendered images.
func (p *Processor) ContentType() string { return p.contentType }

// Render runs one request end to end. A returned error means nothing was
// delivered; its public message is safe to send to the caller. Every job's
// files are removed before Render returns, on every path.
func (p *Processor) Render(ctx context.Context, req Request, deliver DeliverFunc) error {
	start := time.Now()
	cfg := p.builder.Build(req.Options)
	inv := renderer.Invocation{
		BackgroundColor: req.Options.BackgroundColor,
		Width:           req.Options.Width,
		Height:          req.Options.Height,
		Scale:           req.Options.Scale,
		LaunchArgs:      cfg.PuppeteerConfig.Args,
	}
	rec := &models.Render{
		RequestID:  logger.RequestIDFromContext(ctx),
		Theme:      req.Options.Theme,
		Width:      req.Options.Width,
		Height:     req.Options.Height,
		Scale:      req.Options.Scale,
		SourceHash: hashString(req.Source),
	}

	var key string
	if p.cache != nil {
		key = CacheKey(req.Source, cfg, inv, p.namer.Extensions().Output)
		if data, ok := p.lookup(ctx, key); ok {
			rec.ID = newToken()
			rec.Cached = true
			rec.SizeBytes = int64(len(data))
			outcome := p.deliver(ctx, deliver, &Result{
				RenderID:    rec.ID,
				ContentType: p.contentType,
				Size:        int64(len(data)),
				Cached:      true,
				Body:        bytes.NewReader(data),
			}, OutcomeCached)
			p.finish(ctx, rec, outcome, nil, start)
			return nil
		}
	}

	if p.sem != nil {
		if err := p.sem.Acquire(ctx, 1); err != nil {
			return errors.Internal(err, "render.acquire")
		}
		defer p.sem.Release(1)
	}

	job := p.namer.NewJob()
	rec.ID = job.ID
	ctx = logger.ContextWithJobID(ctx, job.ID)
	log := p.log.FromContext(ctx)
	defer job.Cleanup(log)

	log.Debug("render job allocated", "input", job.InputPath, "output", job.OutputPath)

	if err := writeInputs(job, req.Source, cfg); err != nil {
		rerr := errors.Render(err, "render.write_inputs")
		p.finish(ctx, rec, OutcomeFailed, rerr, start)
		return rerr
	}

	inv.InputPath = job.InputPath
	inv.ConfigPath = job.ConfigPath
	inv.OutputPath = job.OutputPath

	if err := p.invoke(ctx, inv); err != nil {
		rerr := errors.Render(err, "render.invoke")
		p.finish(ctx, rec, OutcomeFailed, rerr, start)
		return rerr
	}

	res, closeBody, err := p.openResult(ctx, job, key, rec)
	if err != nil {
		rerr := errors.Render(err, "render.open_output")
		p.finish(ctx, rec, OutcomeFailed, rerr, start)
		return rerr
	}
	defer closeBody()

	outcome := p.deliver(ctx, deliver, res, OutcomeSucceeded)
	p.finish(ctx, rec, outcome, nil, start)
	return nil
}

func (p *Processor) invoke(ctx context.Context, inv renderer.Invocation) error {
	inFlight := getMetrics().inFlight
	inFlight.Inc()
	defer inFlight.Dec()
	return p.renderer.Render(ctx, inv)
}

// openResult exposes the job's output for delivery. When a cache or archive
// is configured the image is read into memory once and shared.
func (p *Processor) openResult(ctx context.Context, job *Job, key string, rec *models.Render) (*Result, func(), error) {
	res := &Result{RenderID: job.ID, ContentType: p.contentType}

	if p.cache == nil && p.archive == nil {
		f, err := os.Open(job.OutputPath)
		if err != nil {
			return nil, nil, err
		}
		info, err := f.Stat()
		if err != nil {
			f.Close()
			return nil, nil, err
		}
		res.Size = info.Size()
		res.Body = f
		rec.SizeBytes = res.Size
		return res, func() { f.Close() }, nil
	}

	data, err := os.ReadFile(job.OutputPath)
	if err != nil {
		return nil, nil, err
	}
	res.Size = int64(len(data))
	res.Body = bytes.NewReader(data)
	rec.SizeBytes = res.Size

	log := p.log.FromContext(ctx)
	if p.cache != nil {
		if err := p.cache.Set(context.WithoutCancel(ctx), key, data); err != nil {
			log.Warn("render cache store failed", "error", err.Error())
		}
	}
	if p.archive != nil {
		rec.ObjectKey = p.store(ctx, job.ID, data)
	}
	return res, func() {}, nil
}

// store uploads the image to the archive and returns its object key, or ""
// when the upload failed.
func (p *Processor) store(ctx context.Context, id string, data []byte) string {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveTimeout)
	defer cancel()

	out, err := p.archive.PutObject(ctx, ports.PutObjectInput{
		ObjectKey:   path.Join("renders", id+p.namer.Extensions().Output),
		ContentType: p.contentType,
		Reader:      bytes.NewReader(data),
		Size:        int64(len(data)),
	})
	if err != nil {
		p.log.FromContext(ctx).Warn("render archive failed", "error", err.Error())
		return ""
	}
	return out.ObjectKey
}

func (p *Processor) lookup(ctx context.Context, key string) ([]byte, bool) {
	data, ok, err := p.cache.Get(ctx, key)
	switch {
	case err != nil:
		getMetrics().cacheLookups.WithLabelValues("error").Inc()
		p.log.FromContext(ctx).Warn("render cache lookup failed", "error", err.Error())
		return nil, false
	case !ok || len(data) == 0:
		getMetrics().cacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	default:
		getMetrics().cacheLookups.WithLabelValues("hit").Inc()
		return data, true
	}
}

func (p *Processor) deliver(ctx context.Context, deliver DeliverFunc, res *Result, outcome string) string {
	if err := deliver(res); err != nil {
		p.log.FromContext(ctx).Warn("render response stream failed",
			"render_id", res.RenderID,
			"error", err.Error(),
		)
		return OutcomeStreamFailed
	}
	return outcome
}

// finish records metrics, a log line and a history row for one request.
func (p *Processor) finish(ctx context.Context, rec *models.Render, outcome string, err error, start time.Time) {
	elapsed := time.Since(start)
	m := getMetrics()
	m.requestsTotal.WithLabelValues(outcome).Inc()
	m.durationSeconds.WithLabelValues(outcome).Observe(elapsed.Seconds())

	rec.Status = outcome
	rec.DurationMS = elapsed.Milliseconds()
	if err != nil {
		rec.ErrorCode = string(errors.GetCode(err))
	}

	log := p.log.FromContext(ctx)
	if err != nil {
		log.Error("render failed", "render_id", rec.ID, "duration_ms", rec.DurationMS, "error", err.Error())
	} else {
		log.Info("render completed",
			"render_id", rec.ID,
			"outcome", outcome,
			"bytes", rec.SizeBytes,
			"duration_ms", rec.DurationMS,
		)
	}

	if p.history == nil {
		return
	}
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if herr := p.history.Record(rctx, rec); herr != nil {
		log.Warn("render history record failed", "render_id", rec.ID, "error", herr.Error())
	}
}

// CacheKey identifies a render by everything that influences its bytes.
func CacheKey(source string, cfg mmdc.Config, inv renderer.Invocation, outputExt string) string {
	h := sha256.New()
	cfgJSON, _ := json.Marshal(cfg)
	for _, part := range []string{
		source,
		string(cfgJSON),
		inv.BackgroundColor,
		strconv.Itoa(inv.Width),
		strconv.Itoa(inv.Height),
		strconv.FormatFloat(inv.Scale, 'f', -1, 64),
		outputExt,
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func hashString(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
