package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/NetoRibeiro/photodisplay/internal/config"
	"github.com/NetoRibeiro/photodisplay/internal/devserver"
	"github.com/NetoRibeiro/photodisplay/migrations"
)

var version = "dev"

func main() {
	cfg, err := config.LoadServer()
	if err != nil {
		panic(err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil)).With("version", version)

	if err := migrations.Up(cfg.DBPath); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	db, err := sqlx.Open("sqlite", cfg.DBPath)
	if err != nil {
		logger.Error("failed to open db", "error", err)
		os.Exit(1)
	}
	db.SetMaxOpenConns(1)

	store := devserver.NewStore(db)
	router := devserver.NewRouter(cfg, store, logger)

	simCtx, simCancel := context.WithCancel(context.Background())
	sim := devserver.NewSimulator(store, time.Duration(cfg.ProcessingDelaySec)*time.Second, logger)
	go sim.Run(simCtx)

	srv := &http.Server{Addr: cfg.Bind, Handler: router}
	go func() {
		logger.Info("server starting", "addr", cfg.Bind)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("shutting down gracefully")
	simCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}
}
