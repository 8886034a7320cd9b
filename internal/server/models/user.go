// Package models contains server-side data structures persisted in Postgres.
package models

import "time"

// User is an identity plus its profile record. Email is assigned at
// registration and immutable; Username is mutable; AvatarKey holds the
// object-storage key of the profile picture when one has been uploaded.
type User struct {
	ID           string
	Email        string
	Username     string
	PasswordHash string
	AvatarKey    string
	CreatedAt    time.Time
}
