package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"starchart/internal/backup"
	"starchart/internal/clock"
	"starchart/internal/database"
	"starchart/internal/logging"
	"starchart/internal/server"
)

func main() {
	// A missing .env is fine; the environment may be set by systemd or the
	// container runtime.
	_ = godotenv.Load()

	logger := logging.Setup(os.Getenv("STARCHART_LOG_LEVEL"))

	port := envOr("STARCHART_PORT", "8080")
	dbPath := envOr("STARCHART_DB_PATH", "starchart.db")

	db, err := database.Open(dbPath)
	if err != nil {
		logger.Error("open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	secret := os.Getenv("STARCHART_TOKEN_SECRET")
	if secret == "" {
		// Random per-process secret: parent-mode tokens won't survive a
		// restart, which is acceptable for a 15-minute credential.
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			logger.Error("generate token secret", "error", err)
			os.Exit(1)
		}
		secret = hex.EncodeToString(buf)
		logger.Warn("STARCHART_TOKEN_SECRET not set, using a per-process secret")
	}

	srv := server.New(db, server.Config{
		TokenSecret:     secret,
		TokenTTL:        15 * time.Minute,
		VAPIDPublicKey:  os.Getenv("STARCHART_VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("STARCHART_VAPID_PRIVATE_KEY"),
	}, clock.System(), logger)

	backupMgr := backup.NewManager(backup.Config{
		S3: backup.S3Config{
			Endpoint:  os.Getenv("STARCHART_S3_ENDPOINT"),
			Bucket:    os.Getenv("STARCHART_S3_BUCKET"),
			Region:    envOr("STARCHART_S3_REGION", "auto"),
			AccessKey: os.Getenv("STARCHART_S3_ACCESS_KEY"),
			SecretKey: os.Getenv("STARCHART_S3_SECRET_KEY"),
		},
		DBPath:     dbPath,
		Passphrase: os.Getenv("STARCHART_BACKUP_PASSPHRASE"),
		Interval:   24 * time.Hour,
	}, db, logger)

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv.Sweeper().Start(ctx)
	defer srv.Sweeper().Stop()
	backupMgr.Start(ctx)
	defer backupMgr.Stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starchart listening", "port", port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
