package server

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"nepse-data-server/src/models"
)

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

// hubMessage wraps an outgoing envelope. ticks is non-nil only for tick
// batches, letting the hub build per-client filtered payloads without
// re-marshalling for subscribers of everything.
type hubMessage struct {
	message models.MServerMessage
	ticks   map[string]models.MTick
}

// handleWebsockets is the main Hub loop
func (s *DataServer) handleWebsockets() {
	for {
		select {
		case <-s.done:
			for client := range s.clients {
				delete(s.clients, client)
				close(client.send)
			}
			return

		case client := <-s.register:
			s.clients[client] = struct{}{}
			// Send a welcome frame on connect
			client.send <- models.MServerMessage{
				Event: models.EventWelcome,
				Payload: gin.H{
					"message": "Connected to NEPSE Data Server WS",
					"available_events": []string{
						models.EventTickUpdate,
						models.EventAlert,
						models.EventMarketStatus,
					},
				},
			}

		case client := <-s.unregister:
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				close(client.send)
			}

		case msg := <-s.broadcast:
			for client := range s.clients {
				out, ok := client.filter(msg)
				if !ok {
					continue
				}

				select {
				case client.send <- out:
					// Message sent successfully
				default:
					// Client too slow, disconnect to prevent Hub blocking
					delete(s.clients, client)
					close(client.send)
				}
			}
		}
	}
}

// -----------------------------------------------------------------------------
// Data Exchange Interface Implementation
// -----------------------------------------------------------------------------

// BroadcastTicks pushes a tick batch; clients with symbol filters receive
// only their subset.
func (s *DataServer) BroadcastTicks(ticks map[string]models.MTick) {
	s.broadcast <- hubMessage{
		message: models.MServerMessage{
			Event:   models.EventTickUpdate,
			Payload: gin.H{"ticks": ticks},
		},
		ticks: ticks,
	}
}

// -----------------------------------------------------------------------------

func (s *DataServer) BroadcastAlert(userID string, alert models.MSpikeAlert) {
	s.broadcast <- hubMessage{
		message: models.MServerMessage{
			Event:   models.EventAlert,
			Payload: models.MTriggeredAlert{UserID: userID, Alert: alert},
		},
	}
	s.Logger.Info("Alert broadcast: %s - %s", alert.Symbol, alert.AlertType)
}

// -----------------------------------------------------------------------------

func (s *DataServer) BroadcastMarketStatus(event models.MMarketStatusEvent) {
	s.broadcast <- hubMessage{
		message: models.MServerMessage{
			Event:   models.EventMarketStatus,
			Payload: event,
		},
	}
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *DataServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := &Client{
		hub:    s,
		conn:   conn,
		userID: c.DefaultQuery("user_id", "anonymous"),
		// Buffered channel to prevent blocking the Hub loop
		send:    make(chan models.MServerMessage, 256),
		symbols: make(map[string]struct{}),
	}

	s.register <- client

	// Start goroutines for reading/writing
	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

func (s *DataServer) HandleClientMessage(client *Client, message []byte) {
	var cmd models.MClientCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		s.Logger.Info("Failed to parse client command: %v, disconnecting client", err)
		client.conn.Close()
		return
	}

	userID := client.userID
	if cmd.UserID != "" {
		userID = cmd.UserID
	}

	switch cmd.Command {

	case models.CmdSubscribe:
		client.addSymbols(cmd.Symbols)
		client.reply(models.MServerMessage{
			Event:   models.EventSubscribed,
			Payload: gin.H{"symbols": client.symbolList()},
		})

	case models.CmdUnsubscribe:
		client.removeSymbols(cmd.Symbols)
		client.reply(models.MServerMessage{
			Event:   models.EventUnsubscribed,
			Payload: gin.H{"symbols": client.symbolList()},
		})

	case models.CmdSetThreshold:
		if cmd.Symbol == "" {
			client.reply(models.MServerMessage{
				Event:   models.EventError,
				Payload: gin.H{"message": "symbol is required"},
			})
			return
		}
		sub := s.Alerts.AddSubscription(userID, cmd.Symbol,
			cmd.PriceThresholdPct, cmd.VolumeThresholdMultiplier)
		client.reply(models.MServerMessage{
			Event: models.EventThresholdSet,
			Payload: gin.H{
				"symbol":                      sub.Symbol,
				"price_threshold_pct":         sub.PriceThresholdPct,
				"volume_threshold_multiplier": sub.VolumeThresholdMultiplier,
			},
		})

	case models.CmdGetSubscriptions:
		client.reply(models.MServerMessage{
			Event: models.EventSubsList,
			Payload: gin.H{
				"user_id":       userID,
				"subscriptions": s.Alerts.GetSubscriptions(userID),
			},
		})

	default:
		client.reply(models.MServerMessage{
			Event:   models.EventError,
			Payload: gin.H{"message": "unknown command: " + cmd.Command},
		})
	}
}
