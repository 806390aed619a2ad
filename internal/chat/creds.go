package chat

import "sync"

// CredentialProvider supplies the bearer credential used for API calls
// and the live-channel handshake. It is injected everywhere a credential
// is needed so no component reads ambient global state.
type CredentialProvider interface {
	Token() (string, bool)
	UserId() int
}

// StaticCredentials holds a credential set on login and cleared on
// logout.
type StaticCredentials struct {
	mu     sync.RWMutex
	token  string
	userId int
}

func NewStaticCredentials() *StaticCredentials {
	return &StaticCredentials{}
}

func (c *StaticCredentials) Set(token string, userId int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	c.userId = userId
}

func (c *StaticCredentials) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
	c.userId = 0
}

func (c *StaticCredentials) Token() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token, c.token != ""
}

func (c *StaticCredentials) UserId() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userId
}
