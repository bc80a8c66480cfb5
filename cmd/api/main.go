package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"lexicon/api/internal/app"
	"lexicon/api/internal/basex"
	"lexicon/api/internal/cache"
	"lexicon/api/internal/config"
	"lexicon/api/internal/rangemeta"
	"lexicon/api/internal/ranges"
	"lexicon/api/internal/store"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	customStore := store.NewPostgresStore(db)

	canonical := basex.NewClient(cfg.BaseXURL, cfg.BaseXUsername, cfg.BaseXPassword, cfg.BaseXDatabase)
	if err := canonical.Connect(ctx); err != nil {
		// Reads degrade to 503 until the store comes back; no reason to
		// refuse to start.
		log.Printf("WARNING: canonical store unreachable at startup: %v", err)
	}

	meta, err := rangemeta.Load(cfg.RangesMetaPath)
	if err != nil {
		log.Fatalf("range metadata load failed: %v", err)
	}
	if err := meta.Watch(); err != nil {
		log.Printf("WARNING: range metadata watch failed, edits need a restart: %v", err)
	}
	defer meta.Close()

	var rangesCache ranges.Cache
	if strings.TrimSpace(cfg.RedisURL) != "" {
		log.Printf("Using Redis for the merged-ranges cache")
		redisCache, err := cache.NewRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer redisCache.Close()
		rangesCache = redisCache
	} else {
		log.Printf("Using the in-process memory cache")
		rangesCache = ranges.NewMemoryCache()
	}

	engine := ranges.NewService(canonical, customStore, meta, rangesCache)
	service := app.NewService(engine, db, canonical)

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Lexicon ranges API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
