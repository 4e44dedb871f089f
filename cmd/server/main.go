package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shop-pos/internal/backup"
	"shop-pos/internal/config"
	"shop-pos/internal/database"
	"shop-pos/internal/handlers"
	"shop-pos/internal/logging"
	"shop-pos/internal/server"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()

	logOut, logFile, err := logging.Setup(cfg.LogFile)
	if err != nil {
		log.Fatalf("open log file: %v", err)
	}
	defer logFile.Close()
	gin.DefaultWriter = logOut
	gin.DefaultErrorWriter = logOut

	store, err := database.Open(cfg, logOut)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := store.Init(ctx); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	h := handlers.New(store, cfg)
	r := server.NewRouter(h, cfg)

	if store.Driver() == "sqlite" {
		go backup.NewScheduler(h.Backups, h.Settings).Run(ctx)
	} else {
		log.Printf("Automatic backups need sqlite; %s backups are left to the database server", store.Driver())
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("🚀 Server starting on :%s (terminal %s)", cfg.Port, h.Terminal)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed to start:", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown: %v", err)
	}
}
