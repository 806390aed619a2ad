package server

import (
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/crewlink/crewchat/internal/database"
	"github.com/crewlink/crewchat/internal/stats"
	"github.com/crewlink/crewchat/internal/types"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Client is one live connection, scoped to exactly one project room for
// its whole lifetime. The room is fixed at handshake time.
type Client struct {
	conn       *websocket.Conn
	chatServer *ChatServer
	log        *log.Logger
	stats      stats.StatsProvider
	user       types.User
	project    database.Project
	room       *Room
	send       chan []byte
	stop       chan struct{}
}

func NewClient(user types.User, project database.Project, conn *websocket.Conn, cs *ChatServer, l *log.Logger, sp stats.StatsProvider) *Client {
	return &Client{
		conn:       conn,
		chatServer: cs,
		log:        l,
		stats:      sp,
		user:       user,
		project:    project,
		send:       make(chan []byte, 256),
		stop:       make(chan struct{}),
	}
}

func (c *Client) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.log.Println("write exiting")
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if !ok {
				return
			}

			if !c.writeFrame(websocket.TextMessage, frame) {
				return
			}
		case <-c.stop:
			return
		case <-ticker.C:
			if !c.writeFrame(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (c *Client) Read() {
	defer func() {
		c.conn.Close()
		c.cleanup()
		c.log.Println("read exiting")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(appData string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Printf("ws: read: %v", err)
			}
			break
		}

		var frame types.SendFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			c.log.Println("error parsing frame:", err)
			c.queueFrame(errorFrame("invalid message format"))
			continue
		}

		if strings.TrimSpace(frame.Content) == "" {
			continue
		}

		r := c.room
		if r == nil {
			c.queueFrame(errorFrame("room not found"))
			continue
		}

		select {
		case r.publishChan <- &publishReq{client: c, frame: &frame, at: Now()}:
		default:
			c.stats.Incr(stats.MessagesDropped)
			c.queueFrame(errorFrame("service unavailable"))
			c.log.Printf("publishChan full for room %q", r.externalId)
		}
	}
}

func (c *Client) queueFrame(frame []byte) bool {
	select {
	case c.send <- frame:
	default:
		c.log.Println("failed to queue frame, channel is full")
		return false
	}

	return true
}

func (c *Client) writeFrame(msgType int, frame []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(msgType, frame); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.log.Printf("write frame: %s", err)
		}
		return false
	}

	return true
}

func (c *Client) stopClient() {
	close(c.stop)
}

func (c *Client) cleanup() {
	if r := c.room; r != nil {
		r.leaveChan <- c
	}

	select {
	case c.chatServer.deRegisterChan <- c:
	case <-c.chatServer.done:
	}

	c.stopClient()
}
