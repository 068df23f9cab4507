package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// SessionPolicy decides which routes may be reached without a principal.
// There is no server-side session: every request authenticates on its own
// bearer token.
type SessionPolicy struct {
	// PublicPrefixes match any path starting with them, e.g. "/auth/".
	PublicPrefixes []string
	// PublicPaths match exactly.
	PublicPaths []string
}

func DefaultSessionPolicy() SessionPolicy {
	return NewSessionPolicy([]string{"/auth/"})
}

// NewSessionPolicy opens the given prefixes plus the health and document
// endpoints.
func NewSessionPolicy(publicPrefixes []string) SessionPolicy {
	prefixes := make([]string, 0, len(publicPrefixes))
	for _, p := range publicPrefixes {
		if p = strings.TrimSpace(p); p != "" {
			prefixes = append(prefixes, p)
		}
	}
	return SessionPolicy{
		PublicPrefixes: prefixes,
		PublicPaths:    []string{"/ping", "/openapi.json"},
	}
}

func (p SessionPolicy) IsPublic(path string) bool {
	for _, exact := range p.PublicPaths {
		if path == exact {
			return true
		}
	}
	for _, prefix := range p.PublicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// Enforce rejects requests to protected routes that carry no principal.
func (p SessionPolicy) Enforce() gin.HandlerFunc {
	return func(c *gin.Context) {
		if p.IsPublic(c.Request.URL.Path) || GetPrincipal(c) != nil {
			c.Next()
			return
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	}
}
