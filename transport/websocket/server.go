package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/tictactoe-variants/internal/entity"
	"github.com/rocketscienceinc/tictactoe-variants/internal/scheduler"
)

const shutdownTimeout = 5 * time.Second

type sessionManager interface {
	CreateSession(ctx context.Context, kind entity.Kind, name string) (*entity.Seating, error)
	JoinSession(ctx context.Context, code, name string) (*entity.Seating, error)
	GetSession(ctx context.Context, code string) (*entity.Session, error)
	Subscribe(ctx context.Context, code string, onUpdate func(*entity.SessionUpdate)) (func() error, error)
	Publish(ctx context.Context, code string, snapshot *entity.Snapshot) error
}

// Config paces the games started over the socket.
type Config struct {
	AIDelay       time.Duration
	FlipBackDelay time.Duration
	Difficulty    entity.Difficulty
}

type handlerFunc func(ctx context.Context, message *Message, conn *connection) error

type Server struct {
	logger    *slog.Logger
	manager   sessionManager
	scheduler *scheduler.Scheduler
	conf      Config
	upgrader  websocket.Upgrader

	handlers map[string]handlerFunc
}

func New(logger *slog.Logger, manager sessionManager, sched *scheduler.Scheduler, conf Config) *Server {
	server := &Server{
		logger:    logger.With("component", "websocket"),
		manager:   manager,
		scheduler: sched,
		conf:      conf,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},

		handlers: make(map[string]handlerFunc),
	}

	server.handlers[actionGameNew] = server.handleNewGame
	server.handlers[actionSessionNew] = server.handleNewSession
	server.handlers[actionSessionJoin] = server.handleJoinSession
	server.handlers[actionSessionAttach] = server.handleAttachSession
	server.handlers[actionGameAct] = server.handleAct
	server.handlers[actionGameState] = server.handleState

	return server
}

// Handler serves the socket on /ws. Connections live until the client leaves
// or ctx is canceled.
func (that *Server) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		that.serveWS(ctx, w, r)
	})

	return mux
}

// Start - starts WebSocket server.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           that.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shut down WebSocket server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

func (that *Server) serveWS(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "serveWS")

	ws, err := that.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	conn := newConnection(that.logger)
	defer conn.close()

	go func() {
		defer cancel()

		if err := writeWithHeartbeat(ws, conn.send, conn.done); err != nil {
			log.Debug("writer stopped", "error", err)
		}
	}()

	go func() {
		<-connCtx.Done()
		_ = ws.Close()
	}()

	log.Info("WebSocket connection established", "remote", r.RemoteAddr)

	that.handleMessages(connCtx, ws, conn)
}
