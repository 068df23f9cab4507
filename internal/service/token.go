package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/agb/securityjwt/internal/model"
	"github.com/golang-jwt/jwt/v5"
)

const (
	claimSubject   = "sub"
	claimIssuedAt  = "iat"
	claimExpiresAt = "exp"
	headerKeyID    = "kid"
)

// Claims is the decoded body of a token.
type Claims struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
	KeyID     string
	Extra     map[string]any
}

// TokenCodec issues and decodes HS256 bearer tokens. It is safe for
// concurrent use; nothing in it changes after construction.
type TokenCodec struct {
	keys   *KeySet
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

type TokenOption func(*TokenCodec)

// WithClock replaces time.Now as the codec's time source.
func WithClock(now func() time.Time) TokenOption {
	return func(c *TokenCodec) {
		if now != nil {
			c.now = now
		}
	}
}

// NewTokenCodec validates the key set eagerly so a bad key fails at startup
// rather than on the first request.
func NewTokenCodec(keys *KeySet, ttl time.Duration, opts ...TokenOption) (*TokenCodec, error) {
	if keys == nil {
		return nil, fmt.Errorf("%w: no key set", ErrSigningKey)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("%w: token ttl must be positive, got %s", ErrMisconfigured, ttl)
	}

	c := &TokenCodec{
		keys: keys,
		ttl:  ttl,
		now:  time.Now,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}
	for _, opt := range opts {
		opt(c)
	}

	if _, err := jwt.SigningMethodHS256.Sign("probe", keys.signingKey()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSigningKey, err)
	}
	return c, nil
}

// TTL is the validity window of issued tokens.
func (c *TokenCodec) TTL() time.Duration {
	return c.ttl
}

// Issue signs a token for subject. Extra claims never replace sub, iat or exp.
func (c *TokenCodec) Issue(subject string, extraClaims map[string]any) (string, error) {
	if strings.TrimSpace(subject) == "" {
		return "", fmt.Errorf("%w: empty subject", ErrInvalidInput)
	}

	claims := make(jwt.MapClaims, len(extraClaims)+3)
	for k, v := range extraClaims {
		if isReservedClaim(k) {
			continue
		}
		claims[k] = v
	}

	now := c.now()
	claims[claimSubject] = subject
	claims[claimIssuedAt] = jwt.NewNumericDate(now)
	claims[claimExpiresAt] = jwt.NewNumericDate(now.Add(c.ttl))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header[headerKeyID] = c.keys.ActiveID()

	signed, err := token.SignedString(c.keys.signingKey())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigningKey, err)
	}
	return signed, nil
}

// Decode verifies the signature and returns the claims. Expiry is not
// checked here; see IsExpired and Validate.
func (c *TokenCodec) Decode(token string) (*Claims, error) {
	mc := jwt.MapClaims{}
	parsed, err := c.parser.ParseWithClaims(token, mc, c.keyFunc)
	if err != nil {
		return nil, classifyParseError(err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidSignature
	}

	kid, _ := parsed.Header[headerKeyID].(string)
	return claimsFromMap(mc, kid)
}

// ExtractClaim decodes token and projects one value out of its claims.
func ExtractClaim[T any](c *TokenCodec, token string, selector func(*Claims) T) (T, error) {
	claims, err := c.Decode(token)
	if err != nil {
		var zero T
		return zero, err
	}
	return selector(claims), nil
}

// ExtractSubject returns the sub claim of token.
func (c *TokenCodec) ExtractSubject(token string) (string, error) {
	return ExtractClaim(c, token, func(cl *Claims) string { return cl.Subject })
}

// IsExpired reports whether the token's exp lies strictly before now.
func (c *TokenCodec) IsExpired(token string) (bool, error) {
	claims, err := c.Decode(token)
	if err != nil {
		return false, err
	}
	return c.expired(claims), nil
}

// IsValidFor reports whether token belongs to identity and has not expired.
func (c *TokenCodec) IsValidFor(token string, identity *model.User) bool {
	claims, err := c.Decode(token)
	if err != nil {
		return false
	}
	return c.Validate(claims, identity) == nil
}

// Validate is the claim-level form of IsValidFor. It reports why a decoded
// token does not authenticate identity.
func (c *TokenCodec) Validate(claims *Claims, identity *model.User) error {
	if claims == nil {
		return ErrMalformedToken
	}
	if identity == nil || claims.Subject != identity.Email {
		return ErrSubjectMismatch
	}
	if c.expired(claims) {
		return ErrTokenExpired
	}
	return nil
}

// A token without exp is treated as expired.
func (c *TokenCodec) expired(claims *Claims) bool {
	if claims.ExpiresAt.IsZero() {
		return true
	}
	return claims.ExpiresAt.Before(c.now())
}

func (c *TokenCodec) keyFunc(t *jwt.Token) (any, error) {
	kid, _ := t.Header[headerKeyID].(string)
	key, ok := c.keys.verificationKey(kid)
	if !ok {
		return nil, fmt.Errorf("unknown key id %q", kid)
	}
	return key, nil
}

func classifyParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrMalformedToken, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
}

func claimsFromMap(mc jwt.MapClaims, kid string) (*Claims, error) {
	sub, err := mc.GetSubject()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	iat, err := mc.GetIssuedAt()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	exp, err := mc.GetExpirationTime()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	claims := &Claims{
		Subject: sub,
		KeyID:   kid,
		Extra:   make(map[string]any),
	}
	if iat != nil {
		claims.IssuedAt = iat.Time
	}
	if exp != nil {
		claims.ExpiresAt = exp.Time
	}
	for k, v := range mc {
		if !isReservedClaim(k) {
			claims.Extra[k] = v
		}
	}
	return claims, nil
}

func isReservedClaim(name string) bool {
	switch name {
	case claimSubject, claimIssuedAt, claimExpiresAt:
		return true
	}
	return false
}
