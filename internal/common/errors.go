// Package common defines shared constants and sentinel errors used across
// the client and server layers of profilehub. Callers should use errors.Is
// to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrInternal = errors.New("internal error")

	// Domain error taxonomy. Every failure surfaced to a caller wraps
	// exactly one of these.
	ErrValidation  = errors.New("validation error")
	ErrAuth        = errors.New("authentication error")
	ErrPermission  = errors.New("permission denied")
	ErrTransfer    = errors.New("transfer error")
	ErrPersistence = errors.New("persistence error")

	// Token lifecycle errors.
	ErrInvalidToken        = errors.New("invalid token")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)
