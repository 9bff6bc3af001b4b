package main

import (
	"encoding/json"
	"flag"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"exec-gateway/pkg/wire"
)

// gateway_demo pushes a few order flows into a running gateway over the
// order WebSocket and prints every report and fill it gets back on the
// event socket. Run the gateway with the paper venue first, then:
//
//   go run ./scripts/gateway_demo -addr localhost:8080
//
// It will:
//   1) place a market BUY that fills immediately,
//   2) place a resting limit order and cancel it,
//   3) replay the same place to show dedup dropping it.

func main() {
	addr := flag.String("addr", "localhost:8080", "gateway host:port")
	venue := flag.String("venue", "paper", "venue name")
	flag.Parse()

	events, _, err := websocket.DefaultDialer.Dial("ws://"+*addr+"/ws/events", nil)
	if err != nil {
		log.Fatalf("dial events: %v", err)
	}
	defer events.Close()

	orders, _, err := websocket.DefaultDialer.Dial("ws://"+*addr+"/ws/orders", nil)
	if err != nil {
		log.Fatalf("dial orders: %v", err)
	}
	defer orders.Close()

	go func() {
		for {
			_, msg, err := events.ReadMessage()
			if err != nil {
				return
			}
			log.Printf("<- %s", msg)
		}
	}()

	send := func(ord wire.ExecutionOrder) {
		ord.Version = 1
		ord.Venue = *venue
		ord.TsNs = uint64(time.Now().UnixNano())
		raw, err := json.Marshal(ord)
		if err != nil {
			log.Fatalf("encode: %v", err)
		}
		if err := orders.WriteMessage(websocket.TextMessage, raw); err != nil {
			log.Fatalf("write: %v", err)
		}
		log.Printf("-> %s", raw)
	}

	price := 50000.0
	size := 0.01

	log.Println("[1] market buy, fills immediately on the paper venue")
	send(wire.ExecutionOrder{
		ClID:   uuid.NewString(),
		Action: "place",
		Details: wire.OrderDetails{
			Symbol:    "BTC-USDT",
			Side:      "buy",
			OrderType: "market",
			Size:      &size,
		},
		Tags: map[string]string{"strategy": "demo"},
	})
	time.Sleep(500 * time.Millisecond)

	restingID := uuid.NewString()
	log.Println("[2] resting limit order, then cancel")
	send(wire.ExecutionOrder{
		ClID:   restingID,
		Action: "place",
		Details: wire.OrderDetails{
			Symbol:    "BTC-USDT",
			Side:      "buy",
			OrderType: "limit",
			Price:     &price,
			Size:      &size,
		},
	})
	time.Sleep(500 * time.Millisecond)
	send(wire.ExecutionOrder{
		ClID:   uuid.NewString(),
		Action: "cancel",
		Details: wire.OrderDetails{
			Cancel: map[string]string{wire.KeyCancelTarget: restingID},
		},
	})
	time.Sleep(500 * time.Millisecond)

	log.Println("[3] duplicate place while pending, dropped by dedup (one report expected)")
	dupID := uuid.NewString()
	for i := 0; i < 2; i++ {
		send(wire.ExecutionOrder{
			ClID:   dupID,
			Action: "place",
			Details: wire.OrderDetails{
				Symbol:    "BTC-USDT",
				Side:      "buy",
				OrderType: "limit",
				Price:     &price,
				Size:      &size,
			},
		})
	}

	time.Sleep(time.Second)
	log.Println("demo finished")
}
