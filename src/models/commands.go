package models

// -----------------------------------------------------------------------------
// WebSocket protocol
// -----------------------------------------------------------------------------

// Client -> server command names
const (
	CmdSubscribe        = "subscribe"
	CmdUnsubscribe      = "unsubscribe"
	CmdSetThreshold     = "set_threshold"
	CmdGetSubscriptions = "get_subscriptions"
)

// Server -> client event names
const (
	EventWelcome      = "server:welcome"
	EventTickUpdate   = "tick:update"
	EventAlert        = "alert:triggered"
	EventMarketStatus = "market:status"
	EventSubscribed   = "subscribed"
	EventUnsubscribed = "unsubscribed"
	EventThresholdSet = "threshold:set"
	EventSubsList     = "subscriptions:list"
	EventError        = "error"
)

// MClientCommand is the single decoded shape for all client messages.
type MClientCommand struct {
	Command                   string   `json:"command"`
	Symbols                   []string `json:"symbols,omitempty"`
	UserID                    string   `json:"user_id,omitempty"`
	Symbol                    string   `json:"symbol,omitempty"`
	PriceThresholdPct         float64  `json:"price_threshold_pct,omitempty"`
	VolumeThresholdMultiplier float64  `json:"volume_threshold_multiplier,omitempty"`
}

// MServerMessage is the envelope for every server push.
type MServerMessage struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
}
