package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	logger  *slog.Logger
	handler http.Handler
}

func New(logger *slog.Logger, manager sessionManager) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)

	h := &handlers{
		logger:  logger.With("component", "rest"),
		manager: manager,
	}

	router.Get("/ping", pingHandler)
	router.Get("/games", h.listGames)
	router.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.createSession)
		r.Get("/{code}", h.getSession)
		r.Post("/{code}/join", h.joinSession)
	})

	return &Server{
		logger:  logger,
		handler: router,
	}
}

func (that *Server) Handler() http.Handler {
	return that.handler
}

// Start serves until ctx is canceled, then shuts down gracefully.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      that.handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shut down HTTP server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}
