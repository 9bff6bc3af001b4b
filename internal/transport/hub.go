package transport

import (
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Hub fans published messages out to WebSocket subscribers. Frames are
// topic-prefixed text messages ("exec.report {...}") so a subscriber can
// filter without parsing the body. Slow subscribers are dropped rather than
// allowed to stall the publish goroutine.
type Hub struct {
	mu      sync.RWMutex
	clients map[*hubClient]struct{}
	log     zerolog.Logger
}

type hubClient struct {
	conn   *websocket.Conn
	send   chan []byte
	topics map[string]bool // empty means all topics
}

// NewHub creates an empty hub.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[*hubClient]struct{}),
		log:     log,
	}
}

// Publish sends one message to every subscriber of the topic. It never
// blocks; a subscriber whose buffer is full loses the frame.
func (h *Hub) Publish(topic string, payload []byte) error {
	frame := make([]byte, 0, len(topic)+1+len(payload))
	frame = append(frame, topic...)
	frame = append(frame, ' ')
	frame = append(frame, payload...)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if len(c.topics) > 0 && !c.topics[topic] {
			continue
		}
		select {
		case c.send <- frame:
		default:
		}
	}
	return nil
}

// Subscribers reports the current connection count.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Handler upgrades the connection and streams published frames until the
// subscriber disconnects. The optional topics query parameter narrows the
// subscription ("?topics=exec.fill").
func (h *Hub) Handler() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
		if err != nil {
			h.log.Warn().Err(err).Msg("hub upgrade failed")
			return
		}

		c := &hubClient{
			conn:   conn,
			send:   make(chan []byte, 256),
			topics: parseTopics(ctx.Query("topics")),
		}
		h.mu.Lock()
		h.clients[c] = struct{}{}
		h.mu.Unlock()
		h.log.Info().Str("remote", conn.RemoteAddr().String()).Msg("subscriber connected")

		go h.writePump(c)
		h.readPump(c)
	}
}

// readPump discards inbound frames and detects disconnects.
func (h *Hub) readPump(c *hubClient) {
	defer h.drop(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *hubClient) {
	for frame := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			h.drop(c)
			return
		}
	}
}

func (h *Hub) drop(c *hubClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	c.conn.Close()
}

func parseTopics(raw string) map[string]bool {
	if raw == "" {
		return nil
	}
	topics := make(map[string]bool)
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			topics[t] = true
		}
	}
	return topics
}
