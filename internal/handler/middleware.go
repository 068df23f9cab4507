package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/agb/securityjwt/internal/logging"
	"github.com/agb/securityjwt/internal/model"
	"github.com/agb/securityjwt/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	bearerPrefix    = "Bearer "
	requestIDHeader = "X-Request-Id"
)

// IdentityLoader resolves a token subject to the stored identity.
type IdentityLoader interface {
	LoadIdentity(ctx context.Context, subject string) (*model.User, error)
}

// Authenticate binds a principal to the request when it carries a valid
// bearer token. It never rejects a request; SessionPolicy.Enforce does that.
func Authenticate(codec *service.TokenCodec, users IdentityLoader, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		bindPrincipal(c, codec, users, log)
		c.Next()
	}
}

func bindPrincipal(c *gin.Context, codec *service.TokenCodec, users IdentityLoader, log zerolog.Logger) {
	header := c.GetHeader("Authorization")
	if header == "" || !strings.HasPrefix(header, bearerPrefix) {
		return
	}

	reqLog := log.With().Str(logging.FieldRequestID, c.GetString(logging.RequestIDKey)).Logger()

	token := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	claims, err := codec.Decode(token)
	if err != nil {
		reqLog.Warn().Str("reason", rejectReason(err)).Msg("bearer token rejected")
		return
	}
	if claims.Subject == "" {
		reqLog.Warn().Str("reason", "missing subject").Msg("bearer token rejected")
		return
	}

	ctx := c.Request.Context()
	if _, ok := model.PrincipalFromContext(ctx); ok {
		return
	}

	user, err := users.LoadIdentity(ctx, claims.Subject)
	if err != nil {
		event := reqLog.Warn()
		if !errors.Is(err, service.ErrIdentityNotFound) {
			event = reqLog.Error().Err(err)
		}
		event.Str(logging.FieldSubject, claims.Subject).Msg("token subject not resolved")
		return
	}

	if err := codec.Validate(claims, user); err != nil {
		reqLog.Info().
			Str("reason", rejectReason(err)).
			Str(logging.FieldSubject, claims.Subject).
			Msg("bearer token rejected")
		return
	}

	principal := &model.Principal{
		User:        user,
		Authorities: user.Authorities(),
		Details: model.RequestDetails{
			RemoteAddr: c.ClientIP(),
			UserAgent:  c.Request.UserAgent(),
			RequestID:  c.GetString(logging.RequestIDKey),
		},
	}
	c.Request = c.Request.WithContext(model.WithPrincipal(ctx, principal))
	reqLog.Debug().Str(logging.FieldSubject, claims.Subject).Msg("principal bound")
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, service.ErrMalformedToken):
		return "malformed"
	case errors.Is(err, service.ErrInvalidSignature):
		return "invalid signature"
	case errors.Is(err, service.ErrTokenExpired):
		return "expired"
	case errors.Is(err, service.ErrSubjectMismatch):
		return "subject mismatch"
	default:
		return "unknown"
	}
}

// GetPrincipal returns the principal bound by Authenticate, or nil.
func GetPrincipal(c *gin.Context) *model.Principal {
	if p, ok := model.PrincipalFromContext(c.Request.Context()); ok {
		return p
	}
	return nil
}

// RequestID reuses the caller's X-Request-Id or generates one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(logging.RequestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	originMap := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		originMap[trimmed] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" {
			if _, ok := originMap[origin]; ok {
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Vary", "Origin")
				c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, "+requestIDHeader)
				c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				c.Header("Access-Control-Expose-Headers", requestIDHeader)
			}
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
