package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"docqa/internal/config"
	"docqa/internal/devserver"
	"docqa/internal/pkg/logger"
	httptransport "docqa/internal/transport/http"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}
	zl := logger.NewZapLogger(cfg.Log.FilePath, cfg.Log.Level, true)

	app, err := devserver.New(ctx, cfg, zl)
	if err != nil {
		log.Fatalf("bootstrap failed: %v", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Printf("close resources failed: %v", err)
		}
	}()

	router := httptransport.NewRouter(app)
	server := &http.Server{
		Addr:              cfg.DevServerAddr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		zl.Info("devserver", "server starting", map[string]interface{}{"addr": server.Addr, "env": cfg.App.Env})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	waitForShutdown(server, zl)
}

func waitForShutdown(server *http.Server, zl logger.ILogger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zl.Error("devserver", "server shutdown failed", map[string]interface{}{"error": err.Error()})
	}
}
