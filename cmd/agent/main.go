package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ventamovil/posync/internal/config"
	"github.com/ventamovil/posync/internal/database"
	"github.com/ventamovil/posync/internal/handlers"
	"github.com/ventamovil/posync/internal/ledger"
	"github.com/ventamovil/posync/internal/models"
	"github.com/ventamovil/posync/internal/sync"
	"github.com/ventamovil/posync/internal/websocket"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// 2. Initialize database (Detects Embedded vs External automatically)
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	// Note: db.Close() is called manually in shutdown handler below

	// 3. Auto-Migrate Schema (Critical for Zero-Config)
	log.Println("🚀 Synchronizing database schema...")
	err = db.AutoMigrate(
		&models.SellerAccount{},
		&models.OfflineSaleRecord{},
		&models.SaleLineItem{},
		&models.SyncMetadata{},
	)
	if err != nil {
		log.Printf("⚠️ Migration warning: %v\n", err)
	} else {
		log.Println("✅ Schema synchronized successfully")
	}

	// 4. Local UI status feed
	hub := websocket.NewHub()
	go hub.Run()

	// 5. Sync engine over the ledger client
	log.Println("🔄 Initializing Sync Engine...")
	client := ledger.NewClient(cfg.LedgerURL, time.Duration(cfg.Sync.RequestTimeout)*time.Second)
	store := sync.NewGormSaleStore(db)
	engine := sync.NewEngine(store, client, cfg.Sync, cfg.LedgerURL, hub)
	if err := engine.Start(); err != nil {
		log.Printf("⚠️ Sync Engine: Failed to start: %v", err)
	}

	// 6. HTTP router
	router := handlers.NewRouter(db, store, engine, cfg, hub)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Channel to listen for shutdown signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	// Start server in goroutine
	go func() {
		log.Printf("🚀 POS agent starting on port %s [ledger: %s]\n", cfg.Port, cfg.LedgerURL)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown signal
	sig := <-shutdown
	log.Printf("\n⚠️  Received signal: %v. Shutting down gracefully...\n", sig)

	// Create context with timeout for graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	// Stop sync engine
	engine.Stop()

	// Close database (stops embedded PostgreSQL if used)
	if err := db.Close(); err != nil {
		log.Printf("Database close error: %v", err)
	}

	log.Println("✅ Shutdown complete")
}
