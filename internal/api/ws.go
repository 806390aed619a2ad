package api

import (
	"encoding/json"
	"net/http"
	"slices"
	"time"

	"github.com/crewlink/crewchat/internal/server"
	"github.com/crewlink/crewchat/internal/types"
	"github.com/gorilla/websocket"
)

const handshakeTimeout = 10 * time.Second

// serveWs upgrades the connection and runs the connect handshake: the
// client's first frame carries its bearer token, and the connection is
// bound to the path's room for its whole lifetime. Auth happens on the
// socket rather than in middleware so browser clients, which cannot set
// headers on WebSocket dials, can authenticate.
func (s *CrewChatApp) serveWs(w http.ResponseWriter, r *http.Request) {
	project, err := s.db.GetProjectByExternalId(r.PathValue("roomId"))
	if err != nil {
		errResp := NewNotFoundError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		return
	}

	conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		s.log.Println("handshake read:", err)
		conn.Close()
		return
	}

	var auth types.AuthFrame
	if err := json.Unmarshal(raw, &auth); err != nil || auth.Token == "" {
		s.closeWithError(conn, "token required")
		return
	}

	userId, err := s.extractUserIdFromToken(auth.Token)
	if err != nil {
		s.log.Println("handshake token:", err)
		s.closeWithError(conn, "invalid token")
		return
	}

	if !s.db.IsMember(project.Id, userId) {
		s.closeWithError(conn, "not a member of this project")
		return
	}

	account, err := s.db.GetAccountById(userId)
	if err != nil {
		s.log.Println("handshake account:", err)
		s.closeWithError(conn, "internal server error")
		return
	}

	conn.SetReadDeadline(time.Time{})

	client := server.NewClient(types.User{
		Id:           account.Id,
		Name:         account.Name,
		EmailAddress: account.EmailAddress,
		CreatedAt:    account.CreatedAt,
		UpdatedAt:    account.UpdatedAt,
	}, project, conn, s.cs, s.log, s.stats)

	if err := s.cs.Join(r.Context(), client); err != nil {
		s.log.Println("join room:", err)
		conn.Close()
		return
	}

	go client.Write()
	go client.Read()
}

func (s *CrewChatApp) closeWithError(conn *websocket.Conn, msg string) {
	frame, _ := json.Marshal(types.ErrorFrame{Error: msg})
	conn.SetWriteDeadline(time.Now().Add(time.Second))
	conn.WriteMessage(websocket.TextMessage, frame)
	conn.Close()
}
