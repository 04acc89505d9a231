package session

// Record is the durable marker for a live session.
type Record struct {
	SessionID string
	UserID    string
	Role      string
	CreatedAt int64
}
