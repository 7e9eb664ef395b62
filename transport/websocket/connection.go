package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/rocketscienceinc/tictactoe-variants/internal/service"
)

const sendBuffer = 32

// connection is the per-socket state: its outgoing queue and the game it
// currently plays.
type connection struct {
	logger *slog.Logger
	send   chan []byte
	done   chan struct{}

	mu          sync.Mutex
	closed      bool
	generation  uint64
	controller  *service.Controller
	unsubscribe func() error
}

func newConnection(logger *slog.Logger) *connection {
	return &connection{
		logger: logger,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
	}
}

// sendMessage queues a message; it never blocks the caller.
func (that *connection) sendMessage(action string, payload any) {
	data, err := json.Marshal(Message{Action: action, Payload: payload})
	if err != nil {
		that.logger.Error("failed to marshal message", "action", action, "error", err)
		return
	}

	select {
	case <-that.done:
	case that.send <- data:
	default:
		that.logger.Warn("send buffer full, dropping message", "action", action)
	}
}

func (that *connection) sendError(action string, err error) {
	that.sendMessage(actionError, errorPayload{Action: action, Error: err.Error()})
}

// attach replaces the game played on this connection and returns its
// generation. The previous controller is stopped and its session left.
func (that *connection) attach(controller *service.Controller, unsubscribe func() error) uint64 {
	that.mu.Lock()
	previous, leave := that.controller, that.unsubscribe
	that.generation++
	generation := that.generation
	that.controller = controller
	that.unsubscribe = unsubscribe
	that.mu.Unlock()

	retire(that.logger, previous, leave)

	return generation
}

// isCurrent reports whether generation is still the game on this connection.
func (that *connection) isCurrent(generation uint64) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	return !that.closed && that.generation == generation
}

func (that *connection) current() *service.Controller {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.controller
}

func (that *connection) close() {
	that.mu.Lock()
	if that.closed {
		that.mu.Unlock()
		return
	}

	that.closed = true
	close(that.done)
	controller, unsubscribe := that.controller, that.unsubscribe
	that.controller, that.unsubscribe = nil, nil
	that.mu.Unlock()

	retire(that.logger, controller, unsubscribe)
}

func retire(logger *slog.Logger, controller *service.Controller, unsubscribe func() error) {
	if controller != nil {
		controller.Stop()
	}

	if unsubscribe != nil {
		if err := unsubscribe(); err != nil {
			logger.Debug("failed to leave previous session", "error", err)
		}
	}
}
