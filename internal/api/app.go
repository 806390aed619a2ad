package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/crewlink/crewchat/internal/config"
	"github.com/crewlink/crewchat/internal/database"
	"github.com/crewlink/crewchat/internal/server"
	"github.com/crewlink/crewchat/internal/stats"
	"github.com/gorilla/handlers"
	"github.com/teris-io/shortid"
)

type CrewChatApp struct {
	log             *log.Logger
	db              database.CrewChatRepository
	mux             *http.Server
	cs              *server.ChatServer
	stats           stats.StatsProvider
	signingKey      []byte
	allowedOrigins  []string
	generateShortId func() (string, error)
}

func NewCrewChatApp(mux *http.ServeMux, logger *log.Logger, cs *server.ChatServer, db database.CrewChatRepository, sp stats.StatsProvider, cfg *config.Config) *CrewChatApp {
	s := &CrewChatApp{
		log:             logger,
		db:              db,
		cs:              cs,
		stats:           sp,
		signingKey:      cfg.SigningKey,
		allowedOrigins:  cfg.AllowedOrigins,
		generateShortId: shortid.Generate,
	}

	mux.HandleFunc("POST /api/auth/register", s.createAccount)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.Handle("GET /api/auth/session", s.authMiddleware(s.session))
	mux.Handle("POST /api/projects", s.authMiddleware(s.createProject))
	mux.Handle("GET /api/projects/mine", s.authMiddleware(s.ownedProjects))
	mux.Handle("GET /api/projects/working", s.authMiddleware(s.workingProjects))
	mux.Handle("POST /api/projects/{id}/members", s.authMiddleware(s.addMember))
	mux.Handle("GET /api/chat/messages/{roomId}", s.authMiddleware(s.getMessages))
	mux.Handle("DELETE /api/chat/messages/{id}", s.authMiddleware(s.deleteMessage))
	mux.HandleFunc("GET /api/chat/ws/{roomId}", s.serveWs)

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept", "Authorization"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	s.mux = srv
	return s
}

func (s *CrewChatApp) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *CrewChatApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
