package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

const idlePingInterval = 25 * time.Second

var pingPayload = mustMarshal(Message{Action: actionPing})

// writeWithHeartbeat is the only writer of ws. It pings after a quiet interval
// so proxies keep the connection open.
func writeWithHeartbeat(ws *websocket.Conn, send <-chan []byte, done <-chan struct{}) error {
	ticker := time.NewTicker(idlePingInterval)
	defer ticker.Stop()

	lastWrite := time.Now()

	for {
		select {
		case <-done:
			return nil
		case message := <-send:
			if err := ws.WriteMessage(websocket.TextMessage, message); err != nil {
				return err //nolint: wrapcheck // logged by the caller
			}

			lastWrite = time.Now()
		case <-ticker.C:
			if time.Since(lastWrite) < idlePingInterval {
				continue
			}

			if err := ws.WriteMessage(websocket.TextMessage, pingPayload); err != nil {
				return err //nolint: wrapcheck // logged by the caller
			}

			lastWrite = time.Now()
		}
	}
}
