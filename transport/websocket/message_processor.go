package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"

	"github.com/gorilla/websocket"
	"github.com/mitchellh/mapstructure"

	"github.com/rocketscienceinc/tictactoe-variants/internal/apperror"
)

const (
	actionGameNew       = "game:new"
	actionGameAct       = "game:act"
	actionGameState     = "game:state"
	actionSessionNew    = "session:new"
	actionSessionJoin   = "session:join"
	actionSessionAttach = "session:attach"

	actionSessionSeated = "session:seated"
	actionSessionUpdate = "session:update"
	actionError         = "error"
	actionPing          = "ping"
)

var (
	errUnknownAction = errors.New("unknown action")
	errNotAnInteger  = errors.New("number is not an integer")
)

// Message is the envelope of every frame in both directions.
type Message struct {
	Action  string `json:"action"`
	Payload any    `json:"payload,omitempty"`
}

type errorPayload struct {
	Action string `json:"action"`
	Error  string `json:"error"`
}

type newGameRequest struct {
	Kind       string `mapstructure:"kind"`
	Mode       string `mapstructure:"mode"`
	Difficulty string `mapstructure:"difficulty"`
}

type newSessionRequest struct {
	Kind string `mapstructure:"kind"`
	Name string `mapstructure:"name"`
}

type joinSessionRequest struct {
	Code string `mapstructure:"code"`
	Name string `mapstructure:"name"`
}

type attachSessionRequest struct {
	Code     string `mapstructure:"code"`
	PlayerID string `mapstructure:"player_id"`
}

// decodePayload maps the loosely typed JSON payload onto a request struct.
// JSON numbers arrive as float64; fractional ones never become integers.
func decodePayload(message *Message, into any) error {
	if message.Payload == nil {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.DecodeHookFuncKind(rejectFractions),
		Result:     into,
	})
	if err != nil {
		return fmt.Errorf("failed to build decoder: %w", err)
	}

	if err = decoder.Decode(message.Payload); err != nil {
		return fmt.Errorf("failed to decode payload: %w", err)
	}

	return nil
}

func rejectFractions(from, to reflect.Kind, data any) (any, error) {
	if from != reflect.Float64 && from != reflect.Float32 {
		return data, nil
	}

	switch to {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
	default:
		return data, nil
	}

	value := reflect.ValueOf(data).Float()
	if value != math.Trunc(value) {
		return nil, fmt.Errorf("%w: %v", errNotAnInteger, value)
	}

	return data, nil
}

// handleMessages - reads frames until the socket closes and dispatches them.
func (that *Server) handleMessages(ctx context.Context, ws *websocket.Conn, conn *connection) {
	log := that.logger.With("method", "handleMessages")

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("connection closed", "error", err)
			}

			return
		}

		var message Message
		if err = json.Unmarshal(data, &message); err != nil {
			log.Debug("failed to unmarshal message", "error", err)
			conn.sendError("", fmt.Errorf("malformed message: %w", err))

			continue
		}

		handler, ok := that.handlers[message.Action]
		if !ok {
			conn.sendError(message.Action, fmt.Errorf("%w: %q", errUnknownAction, message.Action))
			continue
		}

		if err = handler(ctx, &message, conn); err != nil {
			if apperror.IsRuleViolation(err) {
				log.Debug("action rejected", "action", message.Action, "error", err)
			} else {
				log.Error("error processing message", "action", message.Action, "error", err)
			}

			conn.sendError(message.Action, err)
		}
	}
}

func mustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}

	return b
}
