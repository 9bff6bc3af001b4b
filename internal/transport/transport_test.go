package transport

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntakeQueuePollAndBackpressure(t *testing.T) {
	q := NewIntakeQueue(2, zerolog.Nop())

	_, ok := q.Poll()
	assert.False(t, ok, "empty queue must not return a message")

	assert.True(t, q.Submit([]byte("a")))
	assert.True(t, q.Submit([]byte("b")))
	assert.False(t, q.Submit([]byte("c")), "full queue must refuse")

	raw, ok := q.Poll()
	require.True(t, ok)
	assert.Equal(t, "a", string(raw))
	assert.True(t, q.Submit([]byte("c")))
}

func TestIntakeOverWebSocket(t *testing.T) {
	gin.SetMode(gin.TestMode)
	q := NewIntakeQueue(16, zerolog.Nop())
	r := gin.New()
	r.GET("/ws/orders", q.Handler())

	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/orders"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"cl_id":"A1"}`)))

	var raw []byte
	var ok bool
	for i := 0; i < 100; i++ {
		if raw, ok = q.Poll(); ok {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.True(t, ok, "message never arrived")
	assert.Equal(t, `{"cl_id":"A1"}`, string(raw))
}

func TestHubFanOutWithTopicFilter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHub(zerolog.Nop())
	r := gin.New()
	r.GET("/ws/events", h.Handler())

	srv := httptest.NewServer(r)
	defer srv.Close()

	base := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/events"
	all, _, err := websocket.DefaultDialer.Dial(base, nil)
	require.NoError(t, err)
	defer all.Close()

	fillsOnly, _, err := websocket.DefaultDialer.Dial(base+"?topics=exec.fill", nil)
	require.NoError(t, err)
	defer fillsOnly.Close()

	for i := 0; i < 100 && h.Subscribers() < 2; i++ {
		time.Sleep(10 * time.Millisecond)
	}
	require.Equal(t, 2, h.Subscribers())

	require.NoError(t, h.Publish("exec.report", []byte(`{"cl_id":"A1"}`)))
	require.NoError(t, h.Publish("exec.fill", []byte(`{"exec_id":"X1"}`)))

	all.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, frame, err := all.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, `exec.report {"cl_id":"A1"}`, string(frame))
	_, frame, err = all.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, `exec.fill {"exec_id":"X1"}`, string(frame))

	fillsOnly.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, frame, err = fillsOnly.ReadMessage()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(frame), "exec.fill "),
		"filtered subscriber must only see exec.fill, got %q", frame)
}
