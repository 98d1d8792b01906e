package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/aluiziolira/go-price-analyzer/config"
	"github.com/aluiziolira/go-price-analyzer/relay"
)

func main() {
	_ = godotenv.Load()

	defaultCfg := config.DefaultConfig()
	endpointDefault := defaultCfg.Endpoint
	if value, ok := config.EnvString("RELAY_ENDPOINT"); ok {
		endpointDefault = value
	}
	addrDefault := ":8787"
	if value, ok := config.EnvString("RELAY_ADDR"); ok {
		addrDefault = value
	}

	addr := flag.String("addr", addrDefault, "Listen address")
	endpoint := flag.String("endpoint", endpointDefault, "Upstream chat-completion endpoint")
	timeout := flag.Duration("timeout", defaultCfg.Timeout, "Upstream request timeout")
	verbose := flag.Bool("v", false, "Enable verbose logging")

	flag.Parse()

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	cfg := config.DefaultConfig()
	cfg.Endpoint = *endpoint
	cfg.Timeout = *timeout
	cfg.Verbose = *verbose
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	handler := relay.NewHandler(cfg)
	server := &http.Server{
		Addr:         *addr,
		Handler:      handler.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Timeout + 15*time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("relay listening",
			slog.String("addr", *addr),
			slog.String("upstream", cfg.Endpoint),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("relay server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutdown signal received, draining connections")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("relay shutdown failed", slog.Any("error", err))
		os.Exit(1)
	}
	fmt.Println("relay stopped")
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
