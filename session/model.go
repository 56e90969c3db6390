package session

// Session is the server-side record behind a portal token. Role is stored as
// the backend's role string so an unknown role survives a round trip and
// degrades at the edge.
type Session struct {
	SessionID string
	UserID    string
	Name      string
	Email     string
	Role      string

	CreatedAt int64
	ExpiresAt int64
}
