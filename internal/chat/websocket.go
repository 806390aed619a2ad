package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/crewlink/crewchat/internal/types"
	"github.com/gorilla/websocket"
)

const (
	defaultConnectTimeout = 10 * time.Second
	sendWait              = 10 * time.Second
)

// inboundFrame is the union of everything the server pushes: a ready ack,
// an error frame, or a full message.
type inboundFrame struct {
	types.Message
	Ready bool   `json:"ready"`
	Error string `json:"error"`
}

// WebsocketChannel is the real-transport LiveChannel. One instance serves
// many sequential rooms; Open tears down any previous connection first.
type WebsocketChannel struct {
	baseURL        string
	dialer         *websocket.Dialer
	log            *log.Logger
	connectTimeout time.Duration

	mu        sync.Mutex
	conn      *websocket.Conn
	roomId    string
	status    Status
	onMessage func(types.Message)
	onStatus  func(Status)
}

func NewWebsocketChannel(baseURL string, logger *log.Logger) *WebsocketChannel {
	return &WebsocketChannel{
		baseURL:        baseURL,
		dialer:         websocket.DefaultDialer,
		log:            logger,
		connectTimeout: defaultConnectTimeout,
		status:         StatusDisconnected,
	}
}

func (c *WebsocketChannel) Open(ctx context.Context, roomId, token string) error {
	c.mu.Lock()
	if c.conn != nil {
		c.teardownLocked()
	}
	c.roomId = roomId
	c.mu.Unlock()

	c.setStatus(StatusConnecting)

	dialCtx, cancel := context.WithTimeout(ctx, c.connectTimeout)
	defer cancel()

	conn, _, err := c.dialer.DialContext(dialCtx, fmt.Sprintf("%s/api/chat/ws/%s", c.baseURL, roomId), nil)
	if err != nil {
		c.setStatus(StatusError)
		return fmt.Errorf("dial room %s: %w", roomId, err)
	}

	c.setStatus(StatusAuthenticating)

	deadline := time.Now().Add(c.connectTimeout)
	conn.SetWriteDeadline(deadline)
	if err := conn.WriteJSON(types.AuthFrame{Token: token}); err != nil {
		conn.Close()
		c.setStatus(StatusError)
		return fmt.Errorf("send auth frame: %w", err)
	}

	conn.SetReadDeadline(deadline)
	_, raw, err := conn.ReadMessage()
	if err != nil {
		conn.Close()
		c.setStatus(StatusError)
		return fmt.Errorf("read handshake ack: %w", err)
	}

	var ack inboundFrame
	if err := json.Unmarshal(raw, &ack); err != nil || ack.Error != "" || !ack.Ready {
		conn.Close()
		c.setStatus(StatusError)
		if ack.Error != "" {
			return fmt.Errorf("handshake rejected: %s", ack.Error)
		}
		return fmt.Errorf("unexpected handshake ack")
	}

	conn.SetReadDeadline(time.Time{})
	conn.SetWriteDeadline(time.Time{})

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	c.setStatus(StatusConnected)

	go c.readPump(conn)

	return nil
}

func (c *WebsocketChannel) readPump(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			// a transport drop on a connection we still own surfaces as
			// disconnected; a stale pump for a replaced connection says
			// nothing
			c.mu.Lock()
			owned := c.conn == conn
			if owned {
				c.conn = nil
			}
			c.mu.Unlock()

			if owned {
				c.setStatus(StatusDisconnected)
			}
			return
		}

		var frame inboundFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			c.log.Println("parse frame:", err)
			continue
		}

		c.mu.Lock()
		if c.conn != conn {
			c.mu.Unlock()
			return
		}
		onMessage := c.onMessage
		c.mu.Unlock()

		if frame.Error != "" {
			c.log.Println("channel error:", frame.Error)
			c.setStatusIfOwned(conn, StatusError)
			continue
		}

		if frame.Id == "" || onMessage == nil {
			continue
		}

		onMessage(frame.Message)
	}
}

func (c *WebsocketChannel) Send(content string, attachments []types.Attachment) error {
	c.mu.Lock()
	conn := c.conn
	status := c.status
	c.mu.Unlock()

	if conn == nil || status != StatusConnected {
		return ErrNotConnected
	}

	conn.SetWriteDeadline(time.Now().Add(sendWait))
	if err := conn.WriteJSON(types.SendFrame{Content: content, Attachments: attachments}); err != nil {
		return fmt.Errorf("send frame: %w", err)
	}

	return nil
}

func (c *WebsocketChannel) OnMessage(handler func(types.Message)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onMessage = handler
}

func (c *WebsocketChannel) OnStatus(handler func(Status)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onStatus = handler
}

// Close tears down the connection and clears both handlers, so no status
// or message from a dying connection reaches a handler wired for the
// next room. Calling Close on a closed channel is a no-op.
func (c *WebsocketChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.teardownLocked()
	return nil
}

func (c *WebsocketChannel) teardownLocked() {
	if c.conn != nil {
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		c.conn.Close()
		c.conn = nil
	}
	c.onMessage = nil
	c.onStatus = nil
	c.status = StatusDisconnected
	c.roomId = ""
}

func (c *WebsocketChannel) setStatus(status Status) {
	c.mu.Lock()
	c.status = status
	onStatus := c.onStatus
	c.mu.Unlock()

	if onStatus != nil {
		onStatus(status)
	}
}

func (c *WebsocketChannel) setStatusIfOwned(conn *websocket.Conn, status Status) {
	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.status = status
	onStatus := c.onStatus
	c.mu.Unlock()

	if onStatus != nil {
		onStatus(status)
	}
}

func (c *WebsocketChannel) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}
