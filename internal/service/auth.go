package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/agb/securityjwt/internal/db"
	"github.com/agb/securityjwt/internal/model"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// bcrypt ignores everything past 72 bytes.
const maxPasswordBytes = 72

// UserStore is the persistence used by AuthService.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
}

// AuthService registers and authenticates users and mints their tokens.
type AuthService struct {
	store     UserStore
	hasher    Hasher
	codec     *TokenCodec
	validate  *validator.Validate
	dummyHash string
	log       zerolog.Logger
}

func NewAuthService(store UserStore, hasher Hasher, codec *TokenCodec, log zerolog.Logger) (*AuthService, error) {
	if store == nil || hasher == nil || codec == nil {
		return nil, fmt.Errorf("%w: store, hasher and codec are required", ErrMisconfigured)
	}

	// Compared against when the email is unknown so that both failure paths
	// cost one hash comparison.
	dummyHash, err := hasher.Hash(randomSecret())
	if err != nil {
		return nil, err
	}

	v := validator.New()
	v.SetTagName("binding")

	return &AuthService{
		store:     store,
		hasher:    hasher,
		codec:     codec,
		validate:  v,
		dummyHash: dummyHash,
		log:       log,
	}, nil
}

// Register stores a new identity and returns its first token.
func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (string, error) {
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = normalizeEmail(req.Email)

	if err := s.validate.Struct(req); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if len(req.Password) > maxPasswordBytes {
		return "", fmt.Errorf("%w: password longer than %d bytes", ErrInvalidInput, maxPasswordBytes)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return "", err
	}

	user, err := s.store.CreateUser(ctx, &model.User{
		ID:           uuid.NewString(),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         model.RoleAdmin,
	})
	if err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			s.log.Warn().Str("email", req.Email).Msg("registration rejected: email already registered")
			return "", ErrDuplicateIdentity
		}
		return "", fmt.Errorf("create user: %w", err)
	}

	token, err := s.issue(user)
	if err != nil {
		return "", err
	}

	s.log.Info().Str("email", user.Email).Str("user_id", user.ID).Msg("user registered")
	return token, nil
}

// Authenticate checks the credentials and returns a fresh token. Unknown
// emails and wrong passwords both yield ErrInvalidCredentials.
func (s *AuthService) Authenticate(ctx context.Context, req model.AuthenticateRequest) (string, error) {
	req.Email = normalizeEmail(req.Email)
	if err := s.validate.Struct(req); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	user, err := s.store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			_ = s.hasher.Verify(req.Password, s.dummyHash)
			s.log.Warn().Str("email", req.Email).Msg("authentication failed")
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("load user: %w", err)
	}

	if err := s.hasher.Verify(req.Password, user.PasswordHash); err != nil {
		if !errors.Is(err, ErrInvalidCredentials) {
			s.log.Error().Err(err).Str("user_id", user.ID).Msg("stored password hash unusable")
		}
		s.log.Warn().Str("email", req.Email).Msg("authentication failed")
		return "", ErrInvalidCredentials
	}

	token, err := s.issue(user)
	if err != nil {
		return "", err
	}

	s.log.Info().Str("email", user.Email).Msg("user authenticated")
	return token, nil
}

// LoadIdentity resolves a token subject to its stored identity.
func (s *AuthService) LoadIdentity(ctx context.Context, subject string) (*model.User, error) {
	user, err := s.store.GetUserByEmail(ctx, subject)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrIdentityNotFound
		}
		return nil, fmt.Errorf("load identity: %w", err)
	}
	return user, nil
}

func (s *AuthService) issue(user *model.User) (string, error) {
	return s.codec.Issue(user.Email, map[string]any{"role": string(user.Role)})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func randomSecret() string {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return uuid.NewString()
	}
	return base64.RawURLEncoding.EncodeToString(raw)
}
