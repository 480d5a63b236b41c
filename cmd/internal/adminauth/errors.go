package adminauth

import "errors"

var (
	// ErrInvalidKey indicates the presented admin key is unknown.
	ErrInvalidKey = errors.New("adminauth: invalid key")

	// ErrKeyExpired indicates the key exists but its lifetime has passed.
	ErrKeyExpired = errors.New("adminauth: key expired")

	// ErrKeyUsed indicates the key was already exchanged. Keys are
	// strictly single-use.
	ErrKeyUsed = errors.New("adminauth: key already used")

	// ErrUnauthorized indicates a missing, unknown, or expired admin
	// session token.
	ErrUnauthorized = errors.New("adminauth: unauthorized")

	// ErrConfig indicates invalid admin auth configuration.
	ErrConfig = errors.New("adminauth: invalid configuration")
)
