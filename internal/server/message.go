package server

import (
	"encoding/json"
	"time"

	"github.com/lox/blackjack21/internal/table"
)

// MessageType represents a WebSocket message type
type MessageType string

const (
	// Client to server messages
	MessageTypeHello   MessageType = "hello"
	MessageTypeStart   MessageType = "start"
	MessageTypeHit     MessageType = "hit"
	MessageTypeStand   MessageType = "stand"
	MessageTypeBalance MessageType = "balance"
	MessageTypeDaily   MessageType = "daily"

	// Server to client messages
	MessageTypeWelcome     MessageType = "welcome"
	MessageTypeGame        MessageType = "game"
	MessageTypeBalanceInfo MessageType = "balance_info"
	MessageTypeError       MessageType = "error"
)

// String returns the string representation of the message type
func (mt MessageType) String() string {
	return string(mt)
}

// Message is the base WebSocket envelope
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage creates a message with the current timestamp
func NewMessage(messageType MessageType, data interface{}) (*Message, error) {
	var dataBytes json.RawMessage
	if data != nil {
		var err error
		dataBytes, err = json.Marshal(data)
		if err != nil {
			return nil, err
		}
	}

	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// Client → Server payloads

// HelloData identifies the player behind a connection
type HelloData struct {
	Player string `json:"player"`
}

// StartData opens a new game with a wager
type StartData struct {
	Bet int64 `json:"bet"`
}

// ActData references the session a hit/stand button press belongs to.
// SessionID may be empty, in which case the player's own live session is
// targeted.
type ActData struct {
	SessionID string `json:"session_id,omitempty"`
}

// Server → Client payloads

// WelcomeData acknowledges a hello
type WelcomeData struct {
	Player string `json:"player"`
	Coins  int64  `json:"coins"`
}

// GameData carries a session snapshot
type GameData struct {
	table.View
}

// BalanceData reports a player's coins, and the grant amount when the
// balance change came from a daily claim
type BalanceData struct {
	Coins   int64 `json:"coins"`
	Granted int64 `json:"granted,omitempty"`
}

// ErrorData carries a typed failure to the client
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
