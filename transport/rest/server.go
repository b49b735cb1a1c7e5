package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Start - starts the HTTP server and stops it when ctx is done.
func Start(ctx context.Context, logger *slog.Logger, port string, handler *MatchHandler) error {
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      NewMux(handler),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shut down HTTP server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

func NewMux(handler *MatchHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ping", pingHandler)
	mux.HandleFunc("GET /match", handler.GetMatch)
	mux.HandleFunc("GET /match/events", handler.GetEvents)

	return mux
}
