package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cwrk-planet/presence-service/config"
	"github.com/cwrk-planet/presence-service/internal/auth"
	"github.com/cwrk-planet/presence-service/internal/service"
	"github.com/cwrk-planet/presence-service/internal/store"
	httpx "github.com/cwrk-planet/presence-service/internal/transport/http"
	"github.com/cwrk-planet/presence-service/internal/transport/ws"
	"github.com/cwrk-planet/presence-service/pkg/logger"
)

func main() {
	// --- config ---
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(logger.Config{
		Env:       logger.Env(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	slog.Info("starting presence-service",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version,
		"store", cfg.Presence.Store, "bus", cfg.Presence.Bus)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- room state store ---
	var st store.Store
	switch cfg.Presence.Store {
	case "redis":
		st, err = store.NewRedis(ctx, cfg.Redis.Addr, cfg.Redis.DB, cfg.Presence.TTL())
		if err != nil {
			log.Fatalf("redis store: %v", err)
		}
	default:
		st = store.NewMemory(cfg.Presence.TTL())
	}
	defer func() { _ = st.Close() }()

	// --- hub & broadcast bus ---
	hub := ws.NewHub()

	var bus service.Broadcaster
	switch cfg.Presence.Bus {
	case "redis":
		redisBus, err := ws.NewRedisBus(ctx, cfg.Redis.Addr, cfg.Redis.DB, hub)
		if err != nil {
			log.Fatalf("redis bus: %v", err)
		}
		defer func() { _ = redisBus.Close() }()
		go redisBus.Run(ctx)
		bus = redisBus
	default:
		bus = ws.NewLocalBus(hub)
	}

	// --- service & transports ---
	authorizer := auth.NewJWT(cfg.Auth.JWTSecret)
	presenceSvc := service.NewPresenceService(st, bus)
	wsServer := ws.NewServer(hub, presenceSvc, authorizer)

	handler := httpx.NewHandler(presenceSvc)
	router := httpx.NewRouter(handler, wsServer, authorizer, cfg.CORS.AllowedOrigins)
	// No WriteTimeout: it would cut long-lived websocket connections.
	httpSrv := &http.Server{
		Addr:        cfg.HTTP.Addr,
		Handler:     router,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listen", "addr", cfg.HTTP.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal", "sig", sig)
	case err := <-errCh:
		slog.Error("server error", "err", err)
	}

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	_ = httpSrv.Shutdown(ctxShutdown)
	cancel()
	slog.Info("stopped")
}
