package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Mindburn-Labs/charter/pkg/api"
	"github.com/Mindburn-Labs/charter/pkg/config"
	"github.com/Mindburn-Labs/charter/pkg/engine"
	"github.com/Mindburn-Labs/charter/pkg/observability"
)

func runServeCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("serve", flag.ContinueOnError)
	cmd.SetOutput(stderr)
	port := cmd.String("port", "", "Listen port (overrides PORT)")
	if err := cmd.Parse(args); err != nil {
		return 2
	}

	cfg := config.Load()
	if *port != "" {
		cfg.Port = *port
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, cfg, stdout, stderr); err != nil {
		_, _ = fmt.Fprintf(stderr, "charter: %v\n", err)
		return 1
	}
	return 0
}

// serve runs the API until ctx is done, then shuts down gracefully.
func serve(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer) error {
	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat, stderr)
	slog.SetDefault(logger)

	obsCfg := observability.DefaultConfig()
	obsCfg.Enabled = cfg.OTelEnabled
	obsCfg.OTLPEndpoint = cfg.OTelEndpoint
	obsCfg.ServiceVersion = engine.Version
	obs, err := observability.New(ctx, obsCfg)
	if err != nil {
		return fmt.Errorf("failed to init observability: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = obs.Shutdown(sctx)
	}()

	d, err := loadDeployment(cfg)
	if err != nil {
		return err
	}
	j, closer, err := openJournal(ctx, cfg.JournalDriver, journalDSN(cfg))
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	e, err := bootEngine(ctx, d, j, logger, obs)
	if err != nil {
		return err
	}

	srv := api.NewServer(e, api.Options{
		Auth:    api.NewAuthenticator(cfg.JWTSecret),
		Limiter: buildLimiter(ctx, cfg, logger),
		Logger:  logger,
	})

	ln, err := net.Listen("tcp", ":"+cfg.Port)
	if err != nil {
		return fmt.Errorf("failed to listen on :%s: %w", cfg.Port, err)
	}
	httpSrv := &http.Server{
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.Serve(ln) }()

	_, _ = fmt.Fprintf(stdout, "%sCharter listening on %s%s (owner %s, journal %s)\n",
		colorBold+colorBlue, ln.Addr(), colorReset, d.owner, cfg.JournalDriver)
	if !api.NewAuthenticator(cfg.JWTSecret).Enforced() {
		logger.Warn("JWT_SECRET not set; callers are taken from the X-Caller header")
	}

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(sctx)
}

// buildLimiter prefers Redis when REDIS_ADDR is set and reachable.
func buildLimiter(ctx context.Context, cfg *config.Config, logger *slog.Logger) api.Limiter {
	if cfg.RateLimitRPM <= 0 {
		return nil
	}
	if cfg.RedisAddr != "" {
		client, err := api.NewRedisClient(ctx, cfg.RedisAddr)
		if err == nil {
			logger.Info("rate limiting via redis", "addr", cfg.RedisAddr)
			return api.NewRedisLimiter(client, cfg.RateLimitRPM, cfg.RateLimitBurst)
		}
		logger.Warn("redis unavailable, using in-memory rate limiter", "error", err)
	}
	return api.NewMemoryLimiter(cfg.RateLimitRPM, cfg.RateLimitBurst)
}
