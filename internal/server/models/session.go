package models

import "time"

// RefreshSession is a server-persisted session anchor. The opaque token is
// handed to the client, rotated on refresh, and deleted on logout.
type RefreshSession struct {
	ID        string
	UserID    string
	Token     string
	Expires   time.Time
	CreatedAt time.Time
}
