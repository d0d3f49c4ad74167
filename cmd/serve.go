package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"jobmate/swipe-service/internal/discovery"
	"jobmate/swipe-service/internal/grpcserver"
	"jobmate/swipe-service/internal/match"
	"jobmate/swipe-service/internal/scheduler"
	"jobmate/swipe-service/internal/server"
	"jobmate/swipe-service/internal/store"
)

var migrateOnStart bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and gRPC servers and the match relay",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().BoolVar(&migrateOnStart, "migrate", false, "apply the schema before serving")
	rootCmd.AddCommand(serveCmd)
}

func serve(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap(ctx, true)
	if err != nil {
		return err
	}
	defer rt.close()
	log := rt.log

	// ── Stores ───────────────────────────────────────────────────────────────
	catalog := store.NewCatalog(rt.pool)
	if migrateOnStart {
		if err := catalog.Migrate(ctx); err != nil {
			return err
		}
		log.Info("schema applied")
	}
	publisher := store.NewPublisher(rt.rdb, rt.cfg.MatchEventChannel)

	svc := discovery.NewService(discovery.Deps{
		Catalog:   catalog,
		Decider:   match.NewEngine(catalog, log),
		Sessions:  store.NewSessions(rt.rdb, rt.cfg.SessionTTL()),
		Favorites: store.NewFavorites(rt.rdb),
		Publisher: publisher,
		Logger:    log,
		IdleTTL:   rt.cfg.SessionTTL(),
	})

	// ── Relay ────────────────────────────────────────────────────────────────
	relay := scheduler.New(catalog, publisher, rt.cfg.RelaySpec(), rt.cfg.RelayBatchSize, log)
	relay.AddJob("evict-idle-viewers", "@every 10m", func(context.Context) { svc.EvictIdle() })
	if err := relay.Start(ctx); err != nil {
		return err
	}
	defer relay.Stop()

	// ── HTTP server ──────────────────────────────────────────────────────────
	if !rt.cfg.LogDebug && !debug {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", rt.cfg.HTTPPort),
		Handler:      server.NewRouter(server.NewHandler(svc, log, version)),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	// ── gRPC server ──────────────────────────────────────────────────────────
	lis, err := net.Listen("tcp", fmt.Sprintf(":%s", rt.cfg.GRPCPort))
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	gs, hs := grpcserver.New(svc, log)

	errc := make(chan error, 2)
	go func() {
		log.Info("http listening", zap.String("addr", srv.Addr), zap.String("version", version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		log.Info("grpc listening", zap.String("addr", lis.Addr().String()))
		if err := gs.Serve(lis); err != nil {
			errc <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errc:
	}

	log.Info("shutting down")
	hs.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	gs.GracefulStop()
	log.Info("stopped")
	return runErr
}
