package trackersdk

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// DefaultTimeout bounds every request made by a Client from NewClient.
const DefaultTimeout = 30 * time.Second

// Client talks to the ProgressIQ API. It keeps the logged-in session and
// attaches its token to every request. It is safe for concurrent use.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	// Logger receives network failures. Nil discards them.
	Logger *slog.Logger

	// OnUnauthorized is called after any 401 response, once the session has
	// been cleared. Dashboards use it to navigate back to login.
	OnUnauthorized func()

	// Sessions holds the logged-in session. NewClient installs a MemoryStore.
	Sessions SessionStore
}

// SessionStore persists the session between requests. Implementations must
// be safe for concurrent use.
type SessionStore interface {
	Load() Session
	Save(Session)
}

// MemoryStore is a SessionStore that lives only as long as the process.
type MemoryStore struct {
	mu      sync.RWMutex
	session Session
}

func (m *MemoryStore) Load() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session
}

func (m *MemoryStore) Save(s Session) {
	m.mu.Lock()
	m.session = s
	m.mu.Unlock()
}

// Session is what the client remembers after login.
type Session struct {
	Token     string
	Role      string
	Username  string
	Email     string
	ExpiresAt time.Time
}

// LoggedIn reports whether the session carries a token.
func (s Session) LoggedIn() bool { return s.Token != "" }

// NewClient creates a client for the API rooted at baseURL
// (e.g. "http://localhost:8080").
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		Sessions: &MemoryStore{},
	}
}

// Session returns a copy of the current session.
func (c *Client) Session() Session {
	if c.Sessions == nil {
		return Session{}
	}
	return c.Sessions.Load()
}

// SetSession replaces the stored session, e.g. when restoring a saved token.
func (c *Client) SetSession(s Session) {
	if c.Sessions == nil {
		return
	}
	c.Sessions.Save(s)
}

// Logout forgets the session. Tokens are stateless, so nothing is sent to
// the server.
func (c *Client) Logout() {
	c.SetSession(Session{})
}

// ResolveFileURL turns a server-relative fileUrl ("/uploads/x.pdf") into an
// absolute URL on the API host. Absolute URLs are returned unchanged.
func (c *Client) ResolveFileURL(fileURL string) string {
	if fileURL == "" {
		return ""
	}
	ref, err := url.Parse(fileURL)
	if err != nil || ref.IsAbs() {
		return fileURL
	}
	base, err := url.Parse(c.BaseURL + "/")
	if err != nil {
		return fileURL
	}
	return base.ResolveReference(ref).String()
}

func (c *Client) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.New(slog.DiscardHandler)
}

// unauthorized clears the session and notifies the application.
func (c *Client) unauthorized() {
	c.Logout()
	if c.OnUnauthorized != nil {
		c.OnUnauthorized()
	}
}
