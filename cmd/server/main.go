package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/oceanobs/seaportal/pkg/config"
	"github.com/oceanobs/seaportal/pkg/server"
)

func main() {
	log.Println("Starting seaportal server...")

	cfg := config.Load()
	log.Printf("Configuration: port=%s data=%s cache=%s in_memory=%t",
		cfg.Port, cfg.DataDir, cfg.CacheDir, cfg.InMemory)

	backend, err := server.InitializeBackend(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize backend: %v", err)
	}
	defer backend.Close()

	services, err := server.InitializeServices(cfg, backend)
	if err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		services.Hub.Run(ctx)
	}()
	log.Println("WebSocket hub started for live measurement streaming")

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      server.NewRouter(services),
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
	}

	go func() {
		log.Printf("Server listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutdown signal received...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown warning: %v", err)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		log.Println("All background tasks stopped cleanly")
	case <-time.After(5 * time.Second):
		log.Println("Some background tasks did not stop in time (forcing exit)")
	}

	log.Println("seaportal server exited cleanly")
}
