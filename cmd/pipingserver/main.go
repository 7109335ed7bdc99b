package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"piping-relay/internal/admission"
	"piping-relay/internal/obslog"
	"piping-relay/internal/rendezvous"
)

func main() {
	cfg, err := readConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := obslog.New(cfg.logFormat)

	h := rendezvous.NewHandler(rendezvous.Config{
		Version:   cfg.version,
		ChunkSize: cfg.chunkSizeBytes,
	}, logger)

	h = admission.Middleware(admission.Options{
		Max:            cfg.maxInFlight,
		RejectStatus:   http.StatusServiceUnavailable,
		AcquireTimeout: cfg.acquireTimeout,
	})(h)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	srv := &http.Server{
		Addr:              cfg.listenAddr,
		Handler:           h,
		ReadHeaderTimeout: cfg.readHeaderTimeout,
		// No ReadTimeout/WriteTimeout: rendezvous waits and transfers run
		// unbounded, with peer disconnect as the only cancellation signal.
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("piping-relay listening",
		"addr", cfg.listenAddr,
		"version", cfg.version,
		"maxInFlight", cfg.maxInFlight,
		"chunkSizeBytes", cfg.chunkSizeBytes,
	)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}
}
