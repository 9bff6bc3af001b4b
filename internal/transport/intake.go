// Package transport carries messages across the process boundary: a
// WebSocket intake for the upstream strategy connection and a publish hub
// fanning reports and fills out to subscribers.
package transport

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// IntakeQueue buffers inbound order documents between the WebSocket reader
// goroutines and the engine's poll loop. Poll never blocks; a full buffer
// refuses the message so the sender sees backpressure on its connection.
type IntakeQueue struct {
	msgs chan []byte
	log  zerolog.Logger
}

// NewIntakeQueue creates an intake buffer of the given depth.
func NewIntakeQueue(buffer int, log zerolog.Logger) *IntakeQueue {
	if buffer <= 0 {
		buffer = 4096
	}
	return &IntakeQueue{
		msgs: make(chan []byte, buffer),
		log:  log,
	}
}

// Poll returns the next buffered message without blocking.
func (q *IntakeQueue) Poll() ([]byte, bool) {
	select {
	case raw := <-q.msgs:
		return raw, true
	default:
		return nil, false
	}
}

// Submit enqueues one raw message. False means the buffer is full.
func (q *IntakeQueue) Submit(raw []byte) bool {
	select {
	case q.msgs <- raw:
		return true
	default:
		return false
	}
}

// Depth reports the buffered message count. Advisory only.
func (q *IntakeQueue) Depth() int { return len(q.msgs) }

// Handler upgrades the connection and feeds every text frame into the queue.
// One upstream strategy process per connection; multiple connections are
// allowed and interleave.
func (q *IntakeQueue) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			q.log.Warn().Err(err).Msg("intake upgrade failed")
			return
		}
		defer conn.Close()
		remote := conn.RemoteAddr().String()
		q.log.Info().Str("remote", remote).Msg("intake connected")

		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				q.log.Info().Str("remote", remote).Err(err).Msg("intake disconnected")
				return
			}
			if !q.Submit(raw) {
				q.log.Warn().Str("remote", remote).Msg("intake buffer full, message refused")
				_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"intake buffer full"}`))
			}
		}
	}
}
