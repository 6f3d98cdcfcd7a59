package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"cablesizer/internal/auth"
	"cablesizer/internal/config"
	"cablesizer/internal/database"
	"cablesizer/internal/logger"
	"cablesizer/internal/routes"
)

func main() {
	cfg := config.Load()
	logr := logger.New(cfg)
	defer logr.Sync()

	var (
		db     *bun.DB
		stores routes.Stores
	)
	switch cfg.Storage {
	case "memory":
		logr.Warn("using in-memory storage, projects are lost on restart")
		stores = routes.Stores{
			Projects:   database.NewMemoryProjectRepo(),
			Catalogues: database.NewMemoryCatalogueRepo(),
		}
	default:
		var err error
		db, err = database.New(cfg.DatabaseURL, cfg)
		if err != nil {
			logr.Fatal("failed to connect to database", zap.Error(err))
		}
		defer db.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err = database.CreateSchema(ctx, db)
		cancel()
		if err != nil {
			logr.Fatal("failed to create schema", zap.Error(err))
		}
		stores = routes.Stores{
			Projects:   database.NewProjectRepo(db),
			Catalogues: database.NewCatalogueRepo(db),
		}
	}

	// init JWT manager
	jwtMgr, err := auth.NewJWTManager(cfg.JWTPrivateKeyPath, cfg.JWTPublicKeyPath, cfg.JWTIssuer)
	if err != nil {
		logr.Fatal("failed to init jwt manager", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r, err := routes.NewRouter(stores, jwtMgr, cfg, logr, reg)
	if err != nil {
		logr.Fatal("failed to build router", zap.Error(err))
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logr.Info("server started", zap.String("port", cfg.Port), zap.String("storage", cfg.Storage))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logr.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logr.Fatal("server forced to shutdown", zap.Error(err))
	}

	if db != nil {
		_ = db.Close()
	}
	logr.Info("server exited gracefully")
}
