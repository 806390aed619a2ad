package server

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/crewlink/crewchat/internal/database"
	"github.com/crewlink/crewchat/internal/stats"
)

type ChatServer struct {
	log            *log.Logger
	db             database.CrewChatRepository
	stats          stats.StatsProvider
	clients        map[*Client]struct{}
	clientsLock    sync.Mutex
	joinChan       chan *joinReq
	deRegisterChan chan *Client
	unloadRoomChan chan string
	rooms          map[string]*Room
	stop           chan struct{}
	done           chan struct{}
}

func NewChatServer(logger *log.Logger, db database.CrewChatRepository, sp stats.StatsProvider) (*ChatServer, error) {
	if db == nil {
		return nil, fmt.Errorf("repository is required")
	}

	return &ChatServer{
		log:            logger,
		db:             db,
		stats:          sp,
		clients:        make(map[*Client]struct{}),
		joinChan:       make(chan *joinReq),
		deRegisterChan: make(chan *Client),
		unloadRoomChan: make(chan string),
		rooms:          make(map[string]*Room),
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
	}, nil
}

func (cs *ChatServer) Run() {
	for {
		select {
		case join := <-cs.joinChan:
			cs.addClient(join.client)
			cs.stats.Incr(stats.ActiveConnections)

			room, ok := cs.rooms[join.client.project.ExternalId]
			if !ok {
				room = newRoom(join.client.project, cs)
				cs.rooms[room.externalId] = room
				cs.stats.Incr(stats.ActiveRooms)
				go room.start()
			}

			select {
			case room.joinChan <- join:
			default:
				cs.log.Printf("join channel full on room %q", room.externalId)
				join.client.queueFrame(errorFrame("service unavailable"))
				if join.done != nil {
					close(join.done)
				}
			}
		case client := <-cs.deRegisterChan:
			cs.log.Printf("removing connection from %q", client.user.Name)
			cs.removeClient(client)
			cs.stats.Decr(stats.ActiveConnections)
		case id := <-cs.unloadRoomChan:
			if r, ok := cs.rooms[id]; ok {
				cs.log.Printf("unloading idle room %q", r.externalId)
				delete(cs.rooms, id)
				cs.stats.Decr(stats.ActiveRooms)
				close(r.exit)
				<-r.done
			}
		case <-cs.stop:
			cs.log.Println("shutting down rooms")
			for _, r := range cs.rooms {
				cs.log.Println("shutting down room", r.externalId)
				close(r.exit)
				<-r.done
			}

			close(cs.done)
			return
		}
	}
}

// Join attaches the client to its project's room, loading the room if it
// is not resident. It returns once the room has accepted the client, so
// callers can start the pumps knowing the attachment is complete.
func (cs *ChatServer) Join(ctx context.Context, c *Client) error {
	join := &joinReq{client: c, done: make(chan struct{})}

	select {
	case cs.joinChan <- join:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-join.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (cs *ChatServer) addClient(c *Client) {
	cs.clientsLock.Lock()
	defer cs.clientsLock.Unlock()
	cs.clients[c] = struct{}{}
}

func (cs *ChatServer) removeClient(c *Client) {
	cs.clientsLock.Lock()
	defer cs.clientsLock.Unlock()
	delete(cs.clients, c)
}

func (cs *ChatServer) Shutdown(ctx context.Context) error {
	cs.log.Println("received shutdown signal")

	cs.clientsLock.Lock()
	for c := range cs.clients {
		c.conn.Close()
	}
	cs.clientsLock.Unlock()

	close(cs.stop)

	select {
	case <-cs.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
