package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/didac-crst/mockexchange-api/internal/domain"
	"github.com/didac-crst/mockexchange-api/internal/engine"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// tickerMessage is one symbol's push frame for ticker WS subscribers.
type tickerMessage struct {
	Type   string `json:"type"`
	Symbol string `json:"symbol"`
	Ticker domain.Ticker `json:"ticker"`
}

type subscribeRequest struct {
	Type    string   `json:"type"` // "subscribe", "unsubscribe"
	Symbols []string `json:"symbols"`
}

// wsClient is one ticker-stream connection, grounded on the teacher's
// Client/send-channel + subscribed-symbols-set shape
// (internal/handler/websocket_handler.go).
type wsClient struct {
	hub         *tickerHub
	conn        *websocket.Conn
	send        chan []byte
	symbols     map[string]bool
	symbolsLock sync.RWMutex
}

// tickerHub fans out ticker snapshots to every subscribed client on a
// fixed interval; adapted from the teacher's Hub (same register/
// unregister/broadcast channel triad), but polls the Engine instead of
// aggregating trades into candles since this service has no trade feed.
type tickerHub struct {
	engine     *engine.Engine
	log        *zap.Logger
	clients    map[*wsClient]bool
	register   chan *wsClient
	unregister chan *wsClient
	mu         sync.RWMutex
}

func newTickerHub(e *engine.Engine, log *zap.Logger) *tickerHub {
	return &tickerHub{
		engine:     e,
		log:        log,
		clients:    make(map[*wsClient]bool),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
	}
}

// run drives registration bookkeeping and the broadcast ticker; meant to
// be started once in its own goroutine for the lifetime of the server.
func (h *tickerHub) run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
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
		case <-ticker.C:
			h.broadcast(ctx)
		}
	}
}

func (h *tickerHub) broadcast(ctx context.Context) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.clients) == 0 {
		return
	}
	cache := make(map[string]domain.Ticker)
	for c := range h.clients {
		c.symbolsLock.RLock()
		symbols := make([]string, 0, len(c.symbols))
		for s := range c.symbols {
			symbols = append(symbols, s)
		}
		c.symbolsLock.RUnlock()

		for _, sym := range symbols {
			t, ok := cache[sym]
			if !ok {
				var err error
				t, err = h.engine.Ticker(ctx, sym)
				if err != nil {
					continue
				}
				cache[sym] = t
			}
			data, err := json.Marshal(tickerMessage{Type: "ticker", Symbol: sym, Ticker: t})
			if err != nil {
				continue
			}
			select {
			case c.send <- data:
			default:
				h.log.Warn("ticker ws client slow consumer, dropping frame", zap.String("symbol", sym))
			}
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)
			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *wsClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		var req subscribeRequest
		if err := json.Unmarshal(message, &req); err != nil {
			continue
		}
		c.handle(req)
	}
}

func (c *wsClient) handle(req subscribeRequest) {
	c.symbolsLock.Lock()
	defer c.symbolsLock.Unlock()
	switch req.Type {
	case "subscribe":
		for _, s := range req.Symbols {
			c.symbols[s] = true
		}
	case "unsubscribe":
		for _, s := range req.Symbols {
			delete(c.symbols, s)
		}
	}
}

// tickerStream upgrades GET /tickers/ws to a WebSocket connection and
// registers the client on the shared hub.
func (h *handlers) tickerStream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.hub.log.Warn("ticker ws upgrade failed", zap.Error(err))
		return
	}
	client := &wsClient{
		hub:     h.hub,
		conn:    conn,
		send:    make(chan []byte, 256),
		symbols: make(map[string]bool),
	}
	client.hub.register <- client
	go client.writePump()
	go client.readPump()
}
