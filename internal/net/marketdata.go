package net

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	. "fenrir/internal/common"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	tickWriteWait  = 10 * time.Second
	tickPongWait   = 60 * time.Second
	tickPingPeriod = (tickPongWait * 9) / 10
	tickMaxMessage = 4 * 1024
)

// tick is the JSON payload broadcast to every subscribed dashboard client
// whenever the engine reports a trade.
type tick struct {
	Ticker    string  `json:"ticker"`
	Side      string  `json:"side"`
	Price     float64 `json:"price"`
	Qty       float64 `json:"qty"`
	Timestamp int64   `json:"timestamp"`
}

// MarketDataHub fans trade ticks out to every connected websocket client.
// One hub serves every symbol; clients get every tick and filter locally.
type MarketDataHub struct {
	clients    map[*tickClient]bool
	register   chan *tickClient
	unregister chan *tickClient
	broadcast  chan []byte
	mu         sync.RWMutex
	upgrader   websocket.Upgrader
}

type tickClient struct {
	hub  *MarketDataHub
	conn *websocket.Conn
	send chan []byte
}

// NewMarketDataHub constructs a hub. Call Run in its own goroutine before
// serving HandleWebSocket.
func NewMarketDataHub() *MarketDataHub {
	return &MarketDataHub{
		clients:    make(map[*tickClient]bool),
		register:   make(chan *tickClient),
		unregister: make(chan *tickClient),
		broadcast:  make(chan []byte, 256),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Run drives the hub's register/unregister/broadcast loop. It never
// returns on its own; callers run it in a goroutine for the lifetime of
// the process.
func (h *MarketDataHub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.RLock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// Slow consumer: drop it rather than block the hub.
					go func(c *tickClient) { h.unregister <- c }(c)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Broadcast encodes trade as a tick and fans it out to every client.
func (h *MarketDataHub) Broadcast(trade Trade) {
	sideStr := "buy"
	if trade.Party.Side == Sell {
		sideStr = "sell"
	}
	payload, err := json.Marshal(tick{
		Ticker:    trade.Party.Ticker,
		Side:      sideStr,
		Price:     trade.Price,
		Qty:       trade.MatchQty,
		Timestamp: trade.Timestamp.Unix(),
	})
	if err != nil {
		log.Error().Err(err).Msg("error marshalling tick")
		return
	}

	select {
	case h.broadcast <- payload:
	default:
		log.Warn().Msg("market data broadcast channel full, dropping tick")
	}
}

// HandleWebSocket upgrades an HTTP request to a websocket connection and
// registers it with the hub.
func (h *MarketDataHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &tickClient{hub: h, conn: conn, send: make(chan []byte, 64)}
	h.register <- c

	go c.writePump()
	go c.readPump()
}

func (c *tickClient) writePump() {
	ticker := time.NewTicker(tickPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(tickWriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(tickWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only drains and discards client frames to keep pong handling
// alive; the feed is one-directional.
func (c *tickClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(tickMaxMessage)
	c.conn.SetReadDeadline(time.Now().Add(tickPongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(tickPongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}
