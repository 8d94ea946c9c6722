package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/blackjack21/internal/ledger"
	"github.com/lox/blackjack21/internal/table"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096
)

// Connection represents a WebSocket connection to a client
type Connection struct {
	conn      *websocket.Conn
	send      chan *Message
	playerID  string
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
	closeOnce sync.Once
	service   *Service
}

// NewConnection creates a new connection wrapper
func NewConnection(conn *websocket.Conn, logger *log.Logger, service *Service) *Connection {
	ctx, cancel := context.WithCancel(context.Background())

	return &Connection{
		conn:    conn,
		send:    make(chan *Message, 64),
		logger:  logger.WithPrefix("conn"),
		ctx:     ctx,
		cancel:  cancel,
		service: service,
	}
}

// Start begins handling the connection
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close closes the connection
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		err = c.conn.Close()
	})
	return err
}

// Player returns the identified player ID, empty before hello
func (c *Connection) Player() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerID
}

func (c *Connection) setPlayer(playerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playerID = playerID
}

// sendMessage queues a message for the write pump
func (c *Connection) sendMessage(messageType MessageType, data interface{}) {
	msg, err := NewMessage(messageType, data)
	if err != nil {
		c.logger.Error("Failed to encode message", "type", messageType, "error", err)
		return
	}

	defer func() {
		if r := recover(); r != nil {
			// Send channel closed mid-shutdown
			c.logger.Debug("Dropped message on closed connection", "type", messageType)
		}
	}()

	select {
	case c.send <- msg:
	case <-c.ctx.Done():
	default:
		c.logger.Warn("Connection send buffer full, closing connection")
		_ = c.Close()
	}
}

func (c *Connection) sendError(code, message string) {
	c.sendMessage(MessageTypeError, ErrorData{Code: code, Message: message})
}

// readPump handles incoming messages from the client
func (c *Connection) readPump() {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			return
		}

		c.handleMessage(&msg)
	}
}

// writePump handles outgoing messages to the client
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// handleMessage dispatches a client message
func (c *Connection) handleMessage(msg *Message) {
	if msg.Type == MessageTypeHello {
		c.handleHello(msg)
		return
	}

	playerID := c.Player()
	if playerID == "" {
		c.sendError(CodeNotIdentified, "send hello first")
		return
	}

	switch msg.Type {
	case MessageTypeStart:
		c.handleStart(playerID, msg)
	case MessageTypeHit:
		c.handleAct(playerID, msg, table.ActionHit)
	case MessageTypeStand:
		c.handleAct(playerID, msg, table.ActionStand)
	case MessageTypeBalance:
		c.sendMessage(MessageTypeBalanceInfo, BalanceData{Coins: c.service.Balance(playerID)})
	case MessageTypeDaily:
		c.handleDaily(playerID)
	default:
		c.sendError(CodeBadRequest, "unknown message type: "+msg.Type.String())
	}
}

func (c *Connection) handleHello(msg *Message) {
	var data HelloData
	if err := json.Unmarshal(msg.Data, &data); err != nil || data.Player == "" {
		c.sendError(CodeBadRequest, "hello requires a player")
		return
	}

	c.setPlayer(data.Player)
	c.logger = c.logger.With("player", data.Player)
	c.logger.Info("Player identified")
	c.sendMessage(MessageTypeWelcome, WelcomeData{
		Player: data.Player,
		Coins:  c.service.Balance(data.Player),
	})
}

func (c *Connection) handleStart(playerID string, msg *Message) {
	var data StartData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		c.sendError(CodeBadRequest, "start requires a bet")
		return
	}

	view, err := c.service.Start(playerID, data.Bet)
	if err != nil {
		c.sendError(errorCode(err), err.Error())
		return
	}
	c.sendMessage(MessageTypeGame, GameData{View: view})
}

func (c *Connection) handleAct(playerID string, msg *Message, action table.Action) {
	var data ActData
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError(CodeBadRequest, "malformed action")
			return
		}
	}

	view, err := c.service.Act(playerID, data.SessionID, action)
	if err != nil {
		c.sendError(errorCode(err), err.Error())
		return
	}
	c.sendMessage(MessageTypeGame, GameData{View: view})
}

func (c *Connection) handleDaily(playerID string) {
	balance, err := c.service.ClaimDaily(playerID)
	if err != nil {
		c.sendError(errorCode(err), err.Error())
		return
	}
	c.sendMessage(MessageTypeBalanceInfo, BalanceData{Coins: balance, Granted: ledger.DailyGrant})
}
