// Command fakeserver runs the in-memory customer backend used by the
// example testplans. It listens on the host and port of $TSTIT_URL and
// accepts requests whose Authorization header equals $TSTIT_TKN.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abdul-hamid-achik/tstit/packages/fakeapi"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	if err := run(logger); err != nil {
		logger.Error("fakeserver failed", "err", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	rawURL := os.Getenv("TSTIT_URL")
	if rawURL == "" {
		return errors.New("TSTIT_URL env var is not set")
	}
	token := os.Getenv("TSTIT_TKN")
	if token == "" {
		return errors.New("TSTIT_TKN env var is not set")
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("invalid TSTIT_URL %q", rawURL)
	}

	handler := fakeapi.NewHandler(fakeapi.NewStore(), token, logger)
	srv := &http.Server{
		Addr:         u.Host,
		Handler:      fakeapi.NewRouter(handler),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	errc := make(chan error, 1)
	go func() {
		logger.Info("fakeserver is running", "url", rawURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return err
	case <-done:
	}
	logger.Info("shutting down fakeserver")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
