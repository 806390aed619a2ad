package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/crewlink/crewchat/internal/config"
	"github.com/crewlink/crewchat/internal/database"
	"github.com/crewlink/crewchat/internal/server"
	"github.com/crewlink/crewchat/internal/stats"
	"github.com/crewlink/crewchat/internal/testutil"
	"github.com/crewlink/crewchat/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	app *CrewChatApp
	mux *http.ServeMux
	db  *database.MockCrewChatRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := &database.MockCrewChatRepository{}
	sp := &stats.MockStatsRecorder{}
	sp.On("Incr", mock.Anything).Maybe()
	sp.On("Decr", mock.Anything).Maybe()

	cs, err := server.NewChatServer(testutil.TestLogger(t), db, sp)
	require.NoError(t, err)
	go cs.Run()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		cs.Shutdown(ctx)
	})

	cfg := &config.Config{
		ServerAddr:     "localhost:0",
		SigningKey:     []byte("test-signing-key"),
		AllowedOrigins: []string{"http://localhost:3000"},
	}

	mux := http.NewServeMux()
	app := NewCrewChatApp(mux, testutil.TestLogger(t), cs, db, sp, cfg)

	return &testEnv{app: app, mux: mux, db: db}
}

func (e *testEnv) authedRequest(t *testing.T, method, target string, body string, userId int) *http.Request {
	t.Helper()

	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		r = httptest.NewRequest(method, target, nil)
	}

	token, err := e.app.createJwtForSession(userId, time.Hour)
	require.NoError(t, err)
	r.Header.Set("Authorization", "Bearer "+token)

	return r
}

func TestCreateAccount(t *testing.T) {
	env := newTestEnv(t)

	env.db.On("CreateAccount", mock.MatchedBy(func(p database.CreateAccountParams) bool {
		return p.Name == "Ana" && p.EmailAddress == "ana@example.com" && p.PasswordHash != "secret"
	})).Return(database.Account{Id: 1, Name: "Ana", EmailAddress: "ana@example.com"}, nil)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/auth/register",
		strings.NewReader(`{"name":"Ana","email":"ana@example.com","password":"secret"}`))
	env.mux.ServeHTTP(w, r)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotContains(t, w.Body.String(), "secret")

	var user types.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &user))
	assert.Equal(t, 1, user.Id)

	env.db.AssertExpectations(t)
}

func TestCreateAccountMissingFields(t *testing.T) {
	env := newTestEnv(t)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/auth/register",
		strings.NewReader(`{"name":"Ana"}`))
	env.mux.ServeHTTP(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)

	hash, err := hashPassword("call-sheet")
	require.NoError(t, err)
	env.db.On("GetAccountByEmail", "ana@example.com").
		Return(database.Account{Id: 1, Name: "Ana", EmailAddress: "ana@example.com", PasswordHash: hash}, nil)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"email":"ana@example.com","password":"call-sheet"}`))
	env.mux.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.User.Id)

	userId, err := env.app.extractUserIdFromToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, 1, userId)
}

func TestLoginWrongPassword(t *testing.T) {
	env := newTestEnv(t)

	hash, err := hashPassword("call-sheet")
	require.NoError(t, err)
	env.db.On("GetAccountByEmail", "ana@example.com").
		Return(database.Account{Id: 1, PasswordHash: hash}, nil)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"email":"ana@example.com","password":"wrong"}`))
	env.mux.ServeHTTP(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginUnknownEmail(t *testing.T) {
	env := newTestEnv(t)

	env.db.On("GetAccountByEmail", "ghost@example.com").
		Return(database.Account{}, sql.ErrNoRows)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"email":"ghost@example.com","password":"x"}`))
	env.mux.ServeHTTP(w, r)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAuthMiddlewareRejectsMissingToken(t *testing.T) {
	env := newTestEnv(t)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/projects/mine", nil)
	env.mux.ServeHTTP(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOwnedProjects(t *testing.T) {
	env := newTestEnv(t)

	env.db.On("ListOwnedProjects", 1).Return([]database.Project{
		{Id: 10, ExternalId: "p1", Name: "Feature Film", CreatorId: 1},
	}, nil)

	w := httptest.NewRecorder()
	env.mux.ServeHTTP(w, env.authedRequest(t, http.MethodGet, "/api/projects/mine", "", 1))

	require.Equal(t, http.StatusOK, w.Code)

	var projects []types.Project
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &projects))
	require.Len(t, projects, 1)
	assert.Equal(t, "p1", projects[0].Id)
}

func TestWorkingProjects(t *testing.T) {
	env := newTestEnv(t)

	env.db.On("ListMemberProjects", 2).Return([]database.MemberProject{
		{
			Project: database.Project{Id: 10, ExternalId: "p1", Name: "Feature Film", CreatorName: "Ana"},
			MyRole:  "gaffer",
		},
	}, nil)

	w := httptest.NewRecorder()
	env.mux.ServeHTTP(w, env.authedRequest(t, http.MethodGet, "/api/projects/working", "", 2))

	require.Equal(t, http.StatusOK, w.Code)

	var resp WorkingProjectsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Projects, 1)
	assert.Equal(t, "p1", resp.Projects[0].Id)
	assert.Equal(t, "gaffer", resp.Projects[0].MyRole)
	assert.Equal(t, "Ana", resp.Projects[0].CreatorName)
}

func TestCreateProject(t *testing.T) {
	env := newTestEnv(t)
	env.app.generateShortId = func() (string, error) { return "abc123xy", nil }

	env.db.On("CreateProject", mock.MatchedBy(func(p database.CreateProjectParams) bool {
		return p.ExternalId == "abc123xy" && p.Name == "Short Doc" && p.Status == "open" && p.CreatorId == 1
	})).Return(database.Project{Id: 11, ExternalId: "abc123xy", Name: "Short Doc", Status: "open", CreatorId: 1}, nil)

	w := httptest.NewRecorder()
	env.mux.ServeHTTP(w, env.authedRequest(t, http.MethodPost, "/api/projects",
		`{"name":"Short Doc"}`, 1))

	require.Equal(t, http.StatusCreated, w.Code)

	var project types.Project
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &project))
	assert.Equal(t, "abc123xy", project.Id)

	env.db.AssertExpectations(t)
}

func TestAddMemberCreatorOnly(t *testing.T) {
	env := newTestEnv(t)

	env.db.On("GetProjectByExternalId", "p1").
		Return(database.Project{Id: 10, ExternalId: "p1", CreatorId: 1}, nil)

	w := httptest.NewRecorder()
	env.mux.ServeHTTP(w, env.authedRequest(t, http.MethodPost, "/api/projects/p1/members",
		`{"account_id":3,"role_title":"editor"}`, 2))

	assert.Equal(t, http.StatusForbidden, w.Code)
	env.db.AssertNotCalled(t, "AddMember", mock.Anything, mock.Anything, mock.Anything)
}

func TestAddMember(t *testing.T) {
	env := newTestEnv(t)

	env.db.On("GetProjectByExternalId", "p1").
		Return(database.Project{Id: 10, ExternalId: "p1", CreatorId: 1}, nil)
	env.db.On("AddMember", 10, 3, "editor").
		Return(database.Membership{Id: 5, ProjectId: 10, AccountId: 3, RoleTitle: "editor"}, nil)

	w := httptest.NewRecorder()
	env.mux.ServeHTTP(w, env.authedRequest(t, http.MethodPost, "/api/projects/p1/members",
		`{"account_id":3,"role_title":"editor"}`, 1))

	require.Equal(t, http.StatusCreated, w.Code)
	env.db.AssertExpectations(t)
}

func TestGetMessages(t *testing.T) {
	env := newTestEnv(t)

	sent := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	before := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	env.db.On("GetProjectByExternalId", "p1").
		Return(database.Project{Id: 10, ExternalId: "p1"}, nil)
	env.db.On("IsMember", 10, 1).Return(true)
	env.db.On("GetMessages", 10, before, 25).Return([]database.Message{
		{Id: "m1", ProjectId: 10, SenderId: 1, SenderName: "Ana", Content: "standing by", SentAt: sent},
		{Id: "m2", ProjectId: 10, SenderId: 2, SenderName: "Jo", Content: "private note", IsDeleted: true, SentAt: sent},
	}, nil)

	w := httptest.NewRecorder()
	env.mux.ServeHTTP(w, env.authedRequest(t, http.MethodGet,
		"/api/chat/messages/p1?limit=25&before=2026-03-02T00:00:00Z", "", 1))

	require.Equal(t, http.StatusOK, w.Code)

	var messages []types.Message
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &messages))
	require.Len(t, messages, 2)

	assert.Equal(t, "standing by", messages[0].Content)
	assert.Equal(t, "p1", messages[0].RoomId)

	// tombstoned content never leaves the server
	assert.True(t, messages[1].IsDeleted)
	assert.Equal(t, types.DeletedPlaceholder, messages[1].Content)
	assert.NotContains(t, w.Body.String(), "private note")
}

func TestGetMessagesNotMember(t *testing.T) {
	env := newTestEnv(t)

	env.db.On("GetProjectByExternalId", "p1").
		Return(database.Project{Id: 10, ExternalId: "p1"}, nil)
	env.db.On("IsMember", 10, 2).Return(false)

	w := httptest.NewRecorder()
	env.mux.ServeHTTP(w, env.authedRequest(t, http.MethodGet, "/api/chat/messages/p1", "", 2))

	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "not a member of this project")
	env.db.AssertNotCalled(t, "GetMessages", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetMessagesBadCursor(t *testing.T) {
	env := newTestEnv(t)

	env.db.On("GetProjectByExternalId", "p1").
		Return(database.Project{Id: 10, ExternalId: "p1"}, nil)
	env.db.On("IsMember", 10, 1).Return(true)

	w := httptest.NewRecorder()
	env.mux.ServeHTTP(w, env.authedRequest(t, http.MethodGet,
		"/api/chat/messages/p1?before=yesterday", "", 1))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteMessage(t *testing.T) {
	env := newTestEnv(t)

	env.db.On("GetMessage", "m1").
		Return(database.Message{Id: "m1", ProjectId: 10, SenderId: 1, Content: "typo"}, nil)
	env.db.On("MarkMessageDeleted", "m1").Return(nil)

	w := httptest.NewRecorder()
	env.mux.ServeHTTP(w, env.authedRequest(t, http.MethodDelete, "/api/chat/messages/m1", "", 1))

	require.Equal(t, http.StatusOK, w.Code)
	env.db.AssertExpectations(t)
}

func TestDeleteMessageSenderOnly(t *testing.T) {
	env := newTestEnv(t)

	env.db.On("GetMessage", "m1").
		Return(database.Message{Id: "m1", ProjectId: 10, SenderId: 1}, nil)

	w := httptest.NewRecorder()
	env.mux.ServeHTTP(w, env.authedRequest(t, http.MethodDelete, "/api/chat/messages/m1", "", 2))

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "can only delete your own messages")
	env.db.AssertNotCalled(t, "MarkMessageDeleted", mock.Anything)
}

func TestDeleteMessageNotFound(t *testing.T) {
	env := newTestEnv(t)

	env.db.On("GetMessage", "ghost").Return(database.Message{}, sql.ErrNoRows)

	w := httptest.NewRecorder()
	env.mux.ServeHTTP(w, env.authedRequest(t, http.MethodDelete, "/api/chat/messages/ghost", "", 1))

	assert.Equal(t, http.StatusNotFound, w.Code)
}
