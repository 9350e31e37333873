package server

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"nepse-data-server/src/models"
)

// -----------------------------------------------------------------------------
// Constants
// -----------------------------------------------------------------------------

const (
	writeWait      = 2 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// -----------------------------------------------------------------------------
// Client Structure
// -----------------------------------------------------------------------------

type Client struct {
	hub    *DataServer
	conn   *websocket.Conn
	userID string
	send   chan models.MServerMessage

	// symbol filter; empty means "everything"
	mu      sync.Mutex
	symbols map[string]struct{}
}

// -----------------------------------------------------------------------------
// Symbol filter
// -----------------------------------------------------------------------------

func (c *Client) addSymbols(symbols []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range symbols {
		c.symbols[strings.ToUpper(s)] = struct{}{}
	}
}

func (c *Client) removeSymbols(symbols []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range symbols {
		delete(c.symbols, strings.ToUpper(s))
	}
}

func (c *Client) symbolList() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.symbols))
	for s := range c.symbols {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// filter decides what this client receives for a hub message. Non-tick
// messages always pass. Tick batches are narrowed to the client's subscribed
// symbols; a filtered client with no matching symbol gets nothing.
func (c *Client) filter(msg hubMessage) (models.MServerMessage, bool) {
	if msg.ticks == nil {
		return msg.message, true
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.symbols) == 0 {
		return msg.message, true
	}

	subset := make(map[string]models.MTick, len(c.symbols))
	for symbol := range c.symbols {
		if tick, ok := msg.ticks[symbol]; ok {
			subset[symbol] = tick
		}
	}
	if len(subset) == 0 {
		return models.MServerMessage{}, false
	}

	return models.MServerMessage{
		Event:   models.EventTickUpdate,
		Payload: map[string]interface{}{"ticks": subset},
	}, true
}

// reply queues a direct response, dropping it rather than blocking the read
// loop when the client's buffer is full.
func (c *Client) reply(msg models.MServerMessage) {
	select {
	case c.send <- msg:
	default:
	}
}

// -----------------------------------------------------------------------------
// readPump - handles incoming messages from client
// Act as a Watchdog for the connection
// -----------------------------------------------------------------------------

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
		c.hub.Logger.Info("Client disconnected")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.Logger.Info("WebSocket error: %v", err)
			}
			break
		}
		c.hub.HandleClientMessage(c, message)
	}
}

// -----------------------------------------------------------------------------
// writePump - sends messages to client
// -----------------------------------------------------------------------------

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				c.hub.Logger.Info("Write error: %v", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
