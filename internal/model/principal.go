package model

import "context"

// RequestDetails records where an authenticated request came from.
type RequestDetails struct {
	RemoteAddr string
	UserAgent  string
	RequestID  string
}

// Principal is the authentication bound to a single request.
type Principal struct {
	User        *User
	Authorities []string
	Details     RequestDetails
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal bound to ctx, if any.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	if ctx == nil {
		return nil, false
	}
	p, ok := ctx.Value(principalKey{}).(*Principal)
	if !ok || p == nil || p.User == nil {
		return nil, false
	}
	return p, true
}
