package server

import (
	"encoding/json"
	"log"
	"time"

	"github.com/crewlink/crewchat/internal/database"
	"github.com/crewlink/crewchat/internal/stats"
	"github.com/crewlink/crewchat/internal/types"
	"github.com/google/uuid"
)

const idleRoomTimeout = time.Second * 30

type publishReq struct {
	client *Client
	frame  *types.SendFrame
	at     time.Time
}

type joinReq struct {
	client *Client
	done   chan struct{}
}

type Room struct {
	id          int
	externalId  string
	cs          *ChatServer
	joinChan    chan *joinReq
	leaveChan   chan *Client
	publishChan chan *publishReq
	clients     map[*Client]struct{}
	log         *log.Logger
	// killTimer unloads the room once the last client is gone
	killTimer *time.Timer
	exit      chan struct{}
	done      chan struct{}
}

func newRoom(project database.Project, cs *ChatServer) *Room {
	return &Room{
		id:          project.Id,
		externalId:  project.ExternalId,
		cs:          cs,
		joinChan:    make(chan *joinReq, 64),
		leaveChan:   make(chan *Client, 64),
		publishChan: make(chan *publishReq, 256),
		clients:     make(map[*Client]struct{}),
		log:         cs.log,
		exit:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

func (r *Room) start() {
	r.log.Printf("starting room %q", r.externalId)
	r.killTimer = time.NewTimer(idleRoomTimeout)

	defer close(r.done)

	for {
		select {
		case join := <-r.joinChan:
			r.handleJoin(join)
		case client := <-r.leaveChan:
			r.handleLeave(client)
		case req := <-r.publishChan:
			r.saveAndBroadcast(req)
		case <-r.killTimer.C:
			// the server may be shutting down instead of draining us
			select {
			case r.cs.unloadRoomChan <- r.externalId:
			case <-r.exit:
				r.log.Printf("room %q is exiting", r.externalId)
				return
			}
		case <-r.exit:
			r.log.Printf("room %q is exiting", r.externalId)
			return
		}
	}
}

func (r *Room) handleJoin(join *joinReq) {
	r.killTimer.Stop()

	c := join.client
	r.clients[c] = struct{}{}
	c.room = r

	c.queueFrame(readyFrame())
	r.log.Printf("client %q joined room %q", c.user.Name, r.externalId)

	if join.done != nil {
		close(join.done)
	}
}

func (r *Room) handleLeave(c *Client) {
	if _, ok := r.clients[c]; !ok {
		r.log.Printf("client %q not found in room %q", c.user.Name, r.externalId)
		return
	}

	delete(r.clients, c)
	r.log.Printf("removed client %q from room %q", c.user.Name, r.externalId)

	if len(r.clients) == 0 {
		r.log.Printf("no clients in %q, starting kill timer", r.externalId)
		r.killTimer.Reset(idleRoomTimeout)
	}
}

// saveAndBroadcast persists the message, then fans the stored form out to
// every connection in the room, the sender included. Clients render on
// echo, so the persisted record is the only source of message ids.
func (r *Room) saveAndBroadcast(req *publishReq) {
	var attachments []byte
	if len(req.frame.Attachments) > 0 {
		var err error
		attachments, err = json.Marshal(req.frame.Attachments)
		if err != nil {
			r.log.Println("error encoding attachments:", err)
			req.client.queueFrame(errorFrame("invalid message format"))
			return
		}
	}

	dbMsg, err := r.cs.db.CreateMessage(database.CreateMessageParams{
		Id:          uuid.NewString(),
		ProjectId:   r.id,
		SenderId:    req.client.user.Id,
		Content:     req.frame.Content,
		Attachments: attachments,
		SentAt:      req.at,
	})
	if err != nil {
		r.log.Println("error saving message:", err)
		req.client.queueFrame(errorFrame("internal server error"))
		return
	}

	r.cs.stats.Incr(stats.MessagesPublished)

	msg := types.Message{
		Id:          dbMsg.Id,
		RoomId:      r.externalId,
		SenderId:    req.client.user.Id,
		SenderName:  req.client.user.Name,
		Content:     dbMsg.Content,
		SentAt:      dbMsg.SentAt,
		Attachments: req.frame.Attachments,
	}

	frame, err := messageFrame(msg)
	if err != nil {
		r.log.Println("error encoding message:", err)
		return
	}

	r.broadcast(frame)
}

func (r *Room) broadcast(frame []byte) {
	for client := range r.clients {
		if !client.queueFrame(frame) {
			r.cs.stats.Incr(stats.MessagesDropped)
		}
	}
}
