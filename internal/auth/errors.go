package auth

import "errors"

var (
	// ErrTokenInvalid covers malformed encoding, bad signatures and
	// unexpected signing methods.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenExpired is returned for a correctly signed token past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrPrincipalNotFound means the token subject no longer exists.
	ErrPrincipalNotFound = errors.New("principal not found")
	// ErrMalformedHash signals a stored password hash that cannot be parsed.
	ErrMalformedHash = errors.New("malformed password hash")
	// ErrWeakSigningKey is returned when the signing key is too short.
	ErrWeakSigningKey = errors.New("signing key too short")
)
