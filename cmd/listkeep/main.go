package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/listkeep/listkeep/internal/backup"
	"github.com/listkeep/listkeep/internal/database"
	"github.com/listkeep/listkeep/internal/logging"
	"github.com/listkeep/listkeep/internal/push"
	"github.com/listkeep/listkeep/internal/server"
)

func main() {
	port := os.Getenv("LISTKEEP_PORT")
	if port == "" {
		port = "8000"
	}

	dbPath := os.Getenv("LISTKEEP_DB_PATH")
	if dbPath == "" {
		dbPath = "listkeep.db"
	}

	logger := logging.Setup(os.Getenv("LISTKEEP_LOG_LEVEL"))

	db, err := database.Open(dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	backupInterval := 24 * time.Hour
	if v := os.Getenv("LISTKEEP_BACKUP_INTERVAL_HOURS"); v != "" {
		if hours, err := strconv.Atoi(v); err == nil && hours > 0 {
			backupInterval = time.Duration(hours) * time.Hour
		}
	}
	backupCfg := backup.Config{
		S3: backup.S3Config{
			Endpoint:  os.Getenv("LISTKEEP_S3_ENDPOINT"),
			Bucket:    os.Getenv("LISTKEEP_S3_BUCKET"),
			Region:    os.Getenv("LISTKEEP_S3_REGION"),
			AccessKey: os.Getenv("LISTKEEP_S3_ACCESS_KEY"),
			SecretKey: os.Getenv("LISTKEEP_S3_SECRET_KEY"),
		},
		DBPath:     dbPath,
		Passphrase: os.Getenv("LISTKEEP_BACKUP_PASSPHRASE"),
		Interval:   backupInterval,
	}

	pushCfg := push.Config{
		VAPIDPublicKey:  os.Getenv("LISTKEEP_VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("LISTKEEP_VAPID_PRIVATE_KEY"),
	}

	srv := server.New(db, backupCfg, pushCfg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if mgr := srv.BackupManager(); mgr.Enabled() {
		mgr.Start(ctx)
		defer mgr.Stop()
	}
	if sched := srv.PushScheduler(); sched != nil {
		sched.Start(ctx)
		defer sched.Stop()
	}

	// Background cleanup of expired sessions and stale rate-limit buckets.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, err := srv.SessionStore().DeleteExpired(); err != nil {
					logger.Error("session cleanup", "error", err)
				} else if n > 0 {
					logger.Info("deleted expired sessions", "count", n)
				}
				srv.RateLimiter().Cleanup()
			}
		}
	}()

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		fmt.Printf("Listkeep running at http://localhost:%s\n", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}
