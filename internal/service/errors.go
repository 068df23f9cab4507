package service

import "errors"

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrMisconfigured = errors.New("auth config invalid")

	// Token errors. The interceptor treats all of them as "unauthenticated".
	ErrMalformedToken   = errors.New("malformed token")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrTokenExpired     = errors.New("token expired")
	ErrSubjectMismatch  = errors.New("token subject does not match identity")
	ErrSigningKey       = errors.New("invalid signing key")

	// Credential and identity errors.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDuplicateIdentity  = errors.New("identity already exists")
	ErrIdentityNotFound   = errors.New("identity not found")
)
