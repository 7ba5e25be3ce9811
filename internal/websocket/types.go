package websocket

import (
	"github.com/coder/websocket"
)

// Client is one connected browser.
type Client struct {
	conn *websocket.Conn
	send chan []byte
}

// Message types pushed to the browser.
const (
	MessageReload = "reload"
)

// UpdateMessage is the JSON payload pushed to the browser.
type UpdateMessage struct {
	Type    string `json:"type"`
	BuildID string `json:"build_id,omitempty"`
}
