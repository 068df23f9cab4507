package service

import (
	"encoding/base64"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/agb/securityjwt/internal/config"
)

// MinKeyLength is the shortest HMAC secret accepted for HS256.
const MinKeyLength = 32

// KeySet holds one active signing key and any number of keys that are only
// accepted for verification. It is immutable once built.
type KeySet struct {
	activeID string
	keys     map[string][]byte
}

// NewKeySet validates every key and returns a set signing with activeID.
func NewKeySet(activeID string, keys map[string][]byte) (*KeySet, error) {
	if strings.TrimSpace(activeID) == "" {
		return nil, fmt.Errorf("%w: empty signing key id", ErrSigningKey)
	}
	if _, ok := keys[activeID]; !ok {
		return nil, fmt.Errorf("%w: no key for active id %q", ErrSigningKey, activeID)
	}

	copied := make(map[string][]byte, len(keys))
	for id, key := range keys {
		if len(key) < MinKeyLength {
			return nil, fmt.Errorf("%w: key %q is %d bytes, need at least %d", ErrSigningKey, id, len(key), MinKeyLength)
		}
		copied[id] = append([]byte(nil), key...)
	}

	return &KeySet{activeID: activeID, keys: copied}, nil
}

// KeySetFromConfig loads the signing key (from SigningKeyFile when set) and
// the extra verification keys.
func KeySetFromConfig(cfg config.AuthConfig) (*KeySet, error) {
	encoded := cfg.SigningKey
	if cfg.SigningKeyFile != "" {
		raw, err := os.ReadFile(cfg.SigningKeyFile)
		if err != nil {
			return nil, fmt.Errorf("%w: read key file: %v", ErrSigningKey, err)
		}
		encoded = string(raw)
	}
	if strings.TrimSpace(encoded) == "" {
		return nil, fmt.Errorf("%w: JWT_SIGNING_KEY or JWT_SIGNING_KEY_FILE is required", ErrMisconfigured)
	}

	active, err := ParseKey(encoded)
	if err != nil {
		return nil, err
	}

	keys := map[string][]byte{cfg.SigningKeyID: active}
	for id, value := range cfg.VerificationKeys {
		if id == cfg.SigningKeyID {
			return nil, fmt.Errorf("%w: verification key %q shadows the signing key", ErrSigningKey, id)
		}
		key, err := ParseKey(value)
		if err != nil {
			return nil, fmt.Errorf("verification key %q: %w", id, err)
		}
		keys[id] = key
	}

	return NewKeySet(cfg.SigningKeyID, keys)
}

// ParseKey decodes a base64 secret. Standard and URL alphabets are accepted,
// padded or not.
func ParseKey(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, fmt.Errorf("%w: empty key", ErrSigningKey)
	}

	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	} {
		if key, err := enc.DecodeString(encoded); err == nil {
			return key, nil
		}
	}
	return nil, fmt.Errorf("%w: key is not valid base64", ErrSigningKey)
}

// ActiveID returns the id of the signing key.
func (k *KeySet) ActiveID() string {
	return k.activeID
}

// IDs lists every known key id in lexical order.
func (k *KeySet) IDs() []string {
	ids := make([]string, 0, len(k.keys))
	for id := range k.keys {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (k *KeySet) signingKey() []byte {
	return k.keys[k.activeID]
}

func (k *KeySet) verificationKey(id string) ([]byte, bool) {
	if id == "" {
		id = k.activeID
	}
	key, ok := k.keys[id]
	return key, ok
}
