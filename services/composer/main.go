// Copyright (C) 2025 The Elf Authors (elf@bronze-age.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// The composer service exposes search jobs over HTTP: start, monitor,
// pause, abort, and stream results; the active method library and its
// loaded indexes; and an archive of finished searches.
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/cccbr/elf/pkg/logging"
	"github.com/cccbr/elf/pkg/splice"
	"github.com/cccbr/elf/services/composer/jobs"
	"github.com/cccbr/elf/services/composer/observability"
	"github.com/cccbr/elf/services/composer/routes"
	"github.com/cccbr/elf/services/composer/store"
)

// initTracer wires the OTLP trace exporter; tracing is skipped when no
// collector endpoint is configured.
func initTracer() (func(context.Context), error) {
	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint == "" {
		return func(context.Context) {}, nil
	}
	ctx := context.Background()
	conn, err := grpc.NewClient(otelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("composer-service")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

func main() {
	port := os.Getenv("COMPOSER_PORT")
	if port == "" {
		port = "12310"
	}

	logger := logging.New(logging.Config{
		Level:   logging.ParseLevel(os.Getenv("COMPOSER_LOG_LEVEL")),
		Service: "composer",
		JSON:    true,
	})
	defer logger.Close()
	slog.SetDefault(logger.Logger)

	cleanup, err := initTracer()
	if err != nil {
		log.Fatalf("failed to setup the OTLP tracer: %v", err)
	}
	defer cleanup(context.Background())

	metrics := observability.InitMetrics()

	var archive *store.Store
	dataDir := os.Getenv("COMPOSER_DATA_DIR")
	if dataDir == "" {
		dataDir = "data/searches"
	}
	archive, err = store.Open(dataDir)
	if err != nil {
		slog.Warn("search archive unavailable; results will not persist", "error", err)
		archive = nil
	} else {
		defer archive.Close()
	}

	library := splice.NewLibrary()
	tables := splice.NewTables()
	manager := jobs.NewManager(library, tables, archive, metrics, logger.Logger)

	// The 40320-node table build takes a few seconds; searches return
	// 503 until it completes.
	go func() {
		start := time.Now()
		tables.BuildNodeTable()
		slog.Info("node table built", "nodes", tables.NNodes(),
			"leadheads", tables.NLeadheadNodes(), "took", time.Since(start))
	}()

	router := gin.Default()
	router.Use(otelgin.Middleware("composer-service"))
	routes.SetupRoutes(router, manager, archive)

	server := &http.Server{Addr: ":" + port, Handler: router}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("composer service listening", "port", port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	libDir := os.Getenv("COMPOSER_LIBRARY_DIR")
	if libDir != "" {
		g.Go(func() error {
			return watchLibraries(ctx, libDir, manager)
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		manager.AbortAll()
		tables.Abort()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("composer service failed: %v", err)
	}
	slog.Info("composer service stopped")
}

// watchLibraries loads every zipped library in dir and reloads the
// index whenever one changes on disk.
func watchLibraries(ctx context.Context, dir string, manager *jobs.Manager) error {
	loadAll := func() {
		var entries []splice.LibraryEntry
		matches, err := filepath.Glob(filepath.Join(dir, "*.zip"))
		if err != nil {
			slog.Warn("failed to scan library directory", "dir", dir, "error", err)
			return
		}
		for _, path := range matches {
			f, err := os.Open(path)
			if err != nil {
				slog.Warn("failed to open library", "path", path, "error", err)
				continue
			}
			parsed, err := splice.ReadZippedLibrary(f)
			f.Close()
			if err != nil {
				slog.Warn("failed to parse library", "path", path, "error", err)
				continue
			}
			entries = append(entries, parsed...)
		}
		manager.SetIndex(entries)
		slog.Info("library index loaded", "dir", dir, "methods", len(entries))
	}
	loadAll()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(dir); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(event.Name, ".zip") {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				loadAll()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("library watcher error", "error", err)
		}
	}
}
