// Package api defines the client's view of the backend provider and an HTTP
// implementation of it. The rest of the client depends only on the Provider
// and Uploader interfaces, never on the transport.
package api

import "context"

// Credentials is the result of a successful authentication or registration.
type Credentials struct {
	UserID       string
	Email        string
	Username     string
	AccessToken  string
	RefreshToken string
}

// Tokens is a refreshed access/refresh token pair.
type Tokens struct {
	AccessToken  string
	RefreshToken string
}

// Profile is the user's profile record as stored by the provider.
type Profile struct {
	UserID    string
	Email     string
	Username  string
	AvatarKey string
	AvatarURL string
}

// Provider is the external backend boundary: identity operations, profile
// record reads/writes, and object-storage URL vending.
type Provider interface {
	CreateIdentity(ctx context.Context, email, password, username string) (*Credentials, error)
	Authenticate(ctx context.Context, email, password string) (*Credentials, error)
	RefreshSession(ctx context.Context, refreshToken string) (*Tokens, error)
	DestroySession(ctx context.Context, refreshToken string) error

	ReadProfile(ctx context.Context, accessToken string) (*Profile, error)
	UpdateProfile(ctx context.Context, accessToken, username string) (*Profile, error)

	NewUploadURL(ctx context.Context, accessToken, ext, contentType string) (key string, uploadURL string, err error)
	ConfirmAvatar(ctx context.Context, accessToken, key string) (*Profile, error)
}

// ProgressFunc receives byte counts as an upload advances.
type ProgressFunc func(transferred, total int64)

// Uploader transfers a payload to a presigned URL, reporting progress.
type Uploader interface {
	Put(ctx context.Context, url, contentType string, payload []byte, progress ProgressFunc) error
}
