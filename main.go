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

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"

	"github.com/letrongvang/go-profile-card/config"
	"github.com/letrongvang/go-profile-card/guestbook"
	"github.com/letrongvang/go-profile-card/identity"
	"github.com/letrongvang/go-profile-card/profile"
	"github.com/letrongvang/go-profile-card/server"
	"github.com/letrongvang/go-profile-card/store"
	"github.com/letrongvang/go-profile-card/visit"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := newLogger(cfg.Env)
	defer logger.Sync()

	card, err := profile.Load(cfg.ProfilePath)
	if err != nil {
		logger.Fatal("load profile config", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// A missing backend is not fatal to the page: the syncer reports it and
	// the card still renders.
	var st store.Store
	switch {
	case cfg.UseMemoryStore:
		st = store.NewMemoryStore()
	case cfg.FirestoreProject != "":
		client, err := firestore.NewClient(ctx, cfg.FirestoreProject)
		if err != nil {
			logger.Warn("firestore init failed, visitor counter disabled", zap.Error(err))
		} else {
			defer client.Close()
			st = store.NewFirestoreStore(client)
		}
	default:
		logger.Warn("no backend configured, visitor counter disabled")
	}

	var kv store.LocalStorage
	kv, err = store.NewFileStorage(cfg.LocalStatePath)
	if err != nil {
		logger.Warn("local state unavailable, visits may over-count", zap.Error(err))
		kv = store.NewMemoryStorage()
	}

	provider := identity.NewAnonymousProvider([]byte(cfg.IdentityKey))
	syncer := visit.NewSyncer(st, provider, visit.NewRecorder(kv), logger)
	go syncer.Run(ctx)

	hub := server.NewHub(syncer.Snapshots(), logger)
	go hub.Run(ctx)

	router := server.NewRouter(server.Deps{
		Log:       logger,
		Card:      card,
		Syncer:    syncer,
		Guestbook: guestbook.NewService(st, logger),
		Hub:       hub,
		StaticDir: cfg.StaticDir,
	})

	srv := &http.Server{Addr: cfg.Addr, Handler: router}
	go func() {
		<-ctx.Done()
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("starting server", zap.String("addr", cfg.Addr), zap.String("env", cfg.Env))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func newLogger(env string) *zap.Logger {
	var logger *zap.Logger
	var err error
	if env == "local" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	return logger
}
