package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/crewlink/crewchat/internal/types"
)

// APIClient is a thin wrapper over the crewchat HTTP API, shared by the
// room directory, history loader and deletion path.
type APIClient struct {
	baseURL string
	httpc   *http.Client
	creds   CredentialProvider
	log     *log.Logger
}

func NewAPIClient(baseURL string, creds CredentialProvider, logger *log.Logger) *APIClient {
	return &APIClient{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: 15 * time.Second},
		creds:   creds,
		log:     logger,
	}
}

func (c *APIClient) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token, ok := c.creds.Token(); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return c.httpc.Do(req)
}

// Login exchanges credentials for a bearer token. The token is returned
// rather than stored so the caller decides where it lives.
func (c *APIClient) Login(ctx context.Context, email, password string) (string, types.User, error) {
	resp, err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return "", types.User{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", types.User{}, fmt.Errorf("login: status %d", resp.StatusCode)
	}

	var session struct {
		AccessToken string     `json:"access_token"`
		User        types.User `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return "", types.User{}, fmt.Errorf("decode login response: %w", err)
	}

	return session.AccessToken, session.User, nil
}

func (c *APIClient) OwnedProjects(ctx context.Context) ([]types.Project, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/projects/mine", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list owned projects: status %d", resp.StatusCode)
	}

	var projects []types.Project
	if err := json.NewDecoder(resp.Body).Decode(&projects); err != nil {
		return nil, fmt.Errorf("decode owned projects: %w", err)
	}

	return projects, nil
}

func (c *APIClient) WorkingProjects(ctx context.Context) ([]types.Project, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/projects/working", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list working projects: status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read working projects: %w", err)
	}

	// the endpoint historically returned either a bare array or a
	// {"projects": [...]} wrapper; accept both
	var projects []types.Project
	if len(raw) > 0 && raw[0] == '[' {
		if err := json.Unmarshal(raw, &projects); err != nil {
			return nil, fmt.Errorf("decode working projects: %w", err)
		}
		return projects, nil
	}

	var wrapped struct {
		Projects []types.Project `json:"projects"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("decode working projects: %w", err)
	}

	return wrapped.Projects, nil
}

func (c *APIClient) Messages(ctx context.Context, roomId string, limit int, before time.Time) ([]types.Message, error) {
	path := fmt.Sprintf("/api/chat/messages/%s?limit=%d", roomId, limit)
	if !before.IsZero() {
		path += "&before=" + before.UTC().Format(time.RFC3339Nano)
	}

	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		return nil, ErrNotMember
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get messages: status %d", resp.StatusCode)
	}

	var messages []types.Message
	if err := json.NewDecoder(resp.Body).Decode(&messages); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}

	return messages, nil
}

func (c *APIClient) DeleteMessage(ctx context.Context, messageId string) error {
	resp, err := c.do(ctx, http.MethodDelete, "/api/chat/messages/"+messageId, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusForbidden:
		return fmt.Errorf("delete message %s: forbidden", messageId)
	default:
		return fmt.Errorf("delete message %s: status %d", messageId, resp.StatusCode)
	}
}
