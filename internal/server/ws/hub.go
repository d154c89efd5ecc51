// Package ws broadcasts marketplace events to websocket subscribers. The
// hub plugs into the engine as an event sink; every committed operation's
// notifications fan out to all connected clients as JSON frames.
package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/lpando/marketd/internal/core/engine"
	"github.com/lpando/marketd/internal/core/state"
)

const (
	writeTimeout  = 10 * time.Second
	sendQueueSize = 256
)

// Event is a single broadcast frame.
type Event struct {
	Type          string `json:"type"`
	OfferID       uint64 `json:"offerId"`
	AssetContract string `json:"assetContract"`
	AssetID       uint64 `json:"assetId"`
	Seller        string `json:"seller"`
	Party         string `json:"party,omitempty"`
	Amount        uint64 `json:"amount,omitempty"`
	Settlement    string `json:"settlement,omitempty"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans marketplace events out to websocket clients.
type Hub struct {
	upgrader websocket.Upgrader
	log      *zap.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
}

// NewHub creates an empty hub.
func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log:     log,
		clients: make(map[*client]struct{}),
	}
}

// ServeHTTP upgrades the connection and streams events until the client
// goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, sendQueueSize),
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.log.Debug("websocket client connected", zap.String("remote", conn.RemoteAddr().String()))

	go h.writePump(c)
	h.readPump(c)
}

// readPump drains incoming frames; the stream is one-way, reads only
// detect disconnects.
func (h *Hub) readPump(c *client) {
	defer h.drop(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	defer h.drop(c)
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, nil)
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	c.conn.Close()
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects all clients.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.drop(c)
	}
}

func (h *Hub) broadcast(ev Event) {
	msg, err := json.Marshal(ev)
	if err != nil {
		h.log.Error("failed to encode event", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			// Slow client; drop the frame rather than stall the market
			h.log.Warn("websocket send queue full, dropping event")
		}
	}
}

// OfferCreated broadcasts a listing event.
func (h *Hub) OfferCreated(offer state.Offer) {
	h.broadcast(Event{
		Type:          "offerCreated",
		OfferID:       offer.ID,
		AssetContract: offer.AssetContract,
		AssetID:       offer.AssetID,
		Seller:        offer.Seller,
	})
}

// BidAccepted broadcasts a bid event.
func (h *Hub) BidAccepted(offer state.Offer, bidder string, amount uint64) {
	h.broadcast(Event{
		Type:          "bidAccepted",
		OfferID:       offer.ID,
		AssetContract: offer.AssetContract,
		AssetID:       offer.AssetID,
		Seller:        offer.Seller,
		Party:         bidder,
		Amount:        amount,
	})
}

// OfferSettled broadcasts a settlement event.
func (h *Hub) OfferSettled(offer state.Offer, kind engine.SettlementKind, buyer string, amount uint64) {
	h.broadcast(Event{
		Type:          "offerSettled",
		OfferID:       offer.ID,
		AssetContract: offer.AssetContract,
		AssetID:       offer.AssetID,
		Seller:        offer.Seller,
		Party:         buyer,
		Amount:        amount,
		Settlement:    string(kind),
	})
}

// OfferCancelled broadcasts a cancellation event.
func (h *Hub) OfferCancelled(offer state.Offer) {
	h.broadcast(Event{
		Type:          "offerCancelled",
		OfferID:       offer.ID,
		AssetContract: offer.AssetContract,
		AssetID:       offer.AssetID,
		Seller:        offer.Seller,
	})
}
