package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"mermaidrender/internal/cache"
	"mermaidrender/internal/config"
	"mermaidrender/internal/httpapi"
	"mermaidrender/internal/httpapi/handlers"
	"mermaidrender/internal/pkg/logger"
	"mermaidrender/internal/pkg/shutdown"
	"mermaidrender/internal/render"
	"mermaidrender/internal/render/renderer"
	"mermaidrender/internal/repositories"
	"mermaidrender/internal/storage"
)

func main() {
	opts, err := config.Load(os.Args[1:])
	if err != nil {
		if config.IsHelp(err) {
			os.Exit(0)
		}
		if !config.IsFlagError(err) {
			fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		}
		os.Exit(2)
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:       opts.Log.Level,
		Format:      opts.Log.Format,
		ServiceName: logger.DefaultServiceName,
		AddSource:   opts.Log.Source,
	})

	command := opts.RendererCommand()
	log.Info("starting mermaid renderer",
		"port", opts.Port,
		"renderer", command,
		"launch_args", opts.LaunchArgs(),
		"render_timeout", opts.RenderTimeout.String(),
	)

	if err := opts.EnsureDirs(); err != nil {
		log.LogFatal("failed to create working directories", err)
	}

	ext := render.Extensions{Input: opts.InputExt, Config: opts.ConfigExt, Output: opts.OutputExt}
	if n, err := render.SweepStale(opts.TempDir, ext, log); err != nil {
		log.Warn("stale artifact sweep failed", "dir", opts.TempDir, "error", err.Error())
	} else if n > 0 {
		log.Info("removed stale render artifacts", "dir", opts.TempDir, "count", n)
	}

	ctx := context.Background()

	// Initialize shutdown manager
	shutdownMgr := shutdown.NewManager(log, opts.HTTP.ShutdownTimeout)

	cli := renderer.NewCLI(command, opts.RenderTimeout, log)
	deps := render.Deps{
		Builder:       render.NewConfigBuilder(opts.LaunchArgs()),
		Namer:         render.NewNamer(opts.TempDir, ext),
		Renderer:      cli,
		MaxConcurrent: opts.MaxConcurrent,
		Log:           log,
	}
	checks := []handlers.Check{
		handlers.ExecutableCheck(cli.Executable()),
		handlers.DirWritableCheck("temp_dir", opts.TempDir),
	}

	// Render cache
	if opts.Redis.Addr != "" {
		log.Info("connecting to Redis", "addr", opts.Redis.Addr)
		rdb := redis.NewClient(&redis.Options{
			Addr:     opts.Redis.Addr,
			Password: opts.Redis.Password,
			DB:       opts.Redis.DB,
		})
		shutdownMgr.Register("redis", func(ctx context.Context) error {
			return rdb.Close()
		})

		rc := cache.NewRedisCache(rdb, opts.Redis.CacheTTL)
		if err := connect(ctx, log, "redis", rc.Ping); err != nil {
			log.LogFatal("failed to ping Redis", err)
		}
		deps.Cache = rc
		checks = append(checks, handlers.PingCheck("redis", rc.Ping))
		log.Info("Redis connected", "cache_ttl", opts.Redis.CacheTTL.String())
	}

	// Render history
	var renders handlers.RenderStore
	if opts.Postgres.URL != "" {
		log.Info("connecting to PostgreSQL")
		pool, err := pgxpool.New(ctx, opts.Postgres.URL)
		if err != nil {
			log.LogFatal("failed to connect to PostgreSQL", err)
		}
		shutdownMgr.RegisterSimple("postgres", pool.Close)

		if err := connect(ctx, log, "postgres", pool.Ping); err != nil {
			log.LogFatal("failed to ping PostgreSQL", err)
		}

		repo := repositories.NewRenderRepository(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			log.LogFatal("failed to prepare render history", err)
		}
		deps.History = repo
		renders = repo
		checks = append(checks, handlers.PingCheck("postgres", pool.Ping))
		log.Info("PostgreSQL connected")
	}

	// Output archive
	sp, err := storage.NewProvider(ctx, opts.Storage, opts.OutputDir)
	if err != nil {
		log.LogFatal("failed to initialize storage provider", err)
	}
	if sp != nil {
		deps.Archive = sp
		log.Info("storage provider initialized", "provider", sp.Provider())
	}

	h := handlers.New(handlers.Deps{
		Processor:    render.New(deps),
		Renders:      renders,
		Storage:      sp,
		Checks:       checks,
		MaxBodyBytes: opts.MaxBodyBytes,
		Log:          log,
	})

	metricsPath := opts.Metrics.Path
	if opts.Metrics.Disable {
		metricsPath = ""
	}

	router := httpapi.NewRouter(httpapi.Deps{
		Handler:        h,
		Log:            log,
		AllowedOrigins: opts.AllowedOrigins(),
		RateLimit:      opts.RateLimit,
		RateBurst:      opts.RateBurst,
		MetricsPath:    metricsPath,
		PublicDir:      opts.PublicDir,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         opts.Addr(),
		Handler:      router,
		ReadTimeout:  opts.HTTP.ReadTimeout,
		WriteTimeout: opts.HTTP.WriteTimeout,
		IdleTimeout:  opts.HTTP.IdleTimeout,
	}

	// Registered last so it drains before the stores close.
	shutdownMgr.Register("http-server", func(ctx context.Context) error {
		log.Info("shutting down HTTP server")
		return server.Shutdown(ctx)
	})

	go func() {
		log.Info("HTTP server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.LogFatal("HTTP server failed", err)
		}
	}()

	if err := shutdownMgr.Wait(ctx); err != nil {
		log.Error("shutdown finished with errors", "error", err.Error())
		os.Exit(1)
	}
}
