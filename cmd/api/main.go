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

	"sharelist/api/internal/activity"
	"sharelist/api/internal/app"
	"sharelist/api/internal/archive"
	"sharelist/api/internal/config"
	"sharelist/api/internal/email"
	"sharelist/api/internal/export"
	"sharelist/api/internal/realtime"
	"sharelist/api/internal/search"
	"sharelist/api/internal/session"
	"sharelist/api/internal/store"
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

	dataStore := store.NewPostgresStore(db)
	pgfts := search.NewPgFTS(db)
	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
	}
	searchService := search.NewService(meiliClient, pgfts)
	if meiliClient != nil {
		defer meiliClient.Close()
		go searchService.ReindexAll(context.Background(), pgfts)
	}

	deps := app.Dependencies{
		Search:   searchService,
		Mailer:   email.NewService(emailConfig(cfg)),
		Exporter: export.NewService(dataStore),
		Archiver: archive.Nop{},
	}

	// Redis carries refresh tokens and fans activity out across instances.
	if strings.TrimSpace(cfg.RedisURL) != "" {
		log.Printf("Using Redis for sessions and realtime activity")
		redisStore, err := session.NewRedisStore(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer redisStore.Close()
		deps.Sessions = redisStore
		deps.Hub = realtime.NewRedisHub(redisStore.Client())
		deps.Redis = redisStore
	} else {
		log.Printf("Using PostgreSQL for sessions; realtime activity is local to this process")
	}

	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		deps.Archiver = newArchiver(ctx, cfg)
	}

	service := app.New(cfg, dataStore, deps)

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
		log.Printf("Sharelist API listening on %s", cfg.Addr)
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

func emailConfig(cfg config.Config) email.Config {
	return email.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
	}
}

// newArchiver falls back to no archiving when object storage is unreachable
// at startup; list deletion never depends on it.
func newArchiver(ctx context.Context, cfg config.Config) activity.Archiver {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	archiver, err := archive.NewMinioArchiver(connectCtx, archive.Config{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		Bucket:    cfg.MinioBucket,
		UseSSL:    cfg.MinioUseSSL,
	})
	if err != nil {
		log.Printf("WARNING: activity archive disabled: %v", err)
		return archive.Nop{}
	}
	log.Printf("Archiving deleted list activity to bucket %s", cfg.MinioBucket)
	return archiver
}
