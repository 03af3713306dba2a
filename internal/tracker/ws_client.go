package tracker

import (
	"log"
	"time"

	"sampark/backend/internal/models"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// WebSocketClient реалізує інтерфейс tracker.Subscriber
type WebSocketClient struct {
	Code string
	Conn *websocket.Conn
	Hub  *Hub
	Send chan models.StatusEvent
}

func NewWebSocketClient(hub *Hub, conn *websocket.Conn, code string) *WebSocketClient {
	return &WebSocketClient{
		Code: code,
		Conn: conn,
		Hub:  hub,
		Send: make(chan models.StatusEvent, 16),
	}
}

func (c *WebSocketClient) TrackingID() string                     { return c.Code }
func (c *WebSocketClient) SendChannel() chan<- models.StatusEvent { return c.Send }

// Run запускає 'pumps' для WebSocket
func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close закриває Send канал (що зупинить writePump)
func (c *WebSocketClient) Close() {
	close(c.Send)
}

// readPump only drains control frames; watchers never send data.
func (c *WebSocketClient) readPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WARNING: tracker connection for %s: %v", c.Code, err)
			}
			return
		}
	}
}

// writePump пише кожну подію окремим JSON-повідомленням, без id акаунтів.
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Канал закрито хабом, закриваємо з'єднання WS
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteJSON(ev.Public()); err != nil {
				log.Printf("WARNING: tracker write for %s failed: %v", c.Code, err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
