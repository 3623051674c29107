package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidToken covers malformed or tampered download tokens.
	ErrInvalidToken = errors.New("invalid download token")
	// ErrTokenExpired is returned once a token's deadline has passed.
	ErrTokenExpired = errors.New("download token expired")
)

// SignedURLSigner issues and verifies HMAC-signed download tokens of the form
// resourceID.expiryUnix.base64(path).signature.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSignedURLSigner constructs a signer with the provided secret and TTL.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Generate returns a token granting access to key on behalf of resourceID.
func (s *SignedURLSigner) Generate(resourceID, key string) (string, time.Time, error) {
	if resourceID == "" || key == "" {
		return "", time.Time{}, fmt.Errorf("resource id and key required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).Truncate(time.Second)
	expiry := strconv.FormatInt(expiresAt.Unix(), 10)
	encodedKey := base64.RawURLEncoding.EncodeToString([]byte(key))
	token := strings.Join([]string{resourceID, expiry, encodedKey, s.sign(resourceID, expiry, encodedKey)}, ".")
	return token, expiresAt, nil
}

// Parse verifies a token and returns the resource and key it grants. Expired
// tokens are refused unless allowExpired is set.
func (s *SignedURLSigner) Parse(token string, allowExpired bool) (resourceID, key string, expiresAt time.Time, err error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return "", "", time.Time{}, ErrInvalidToken
	}
	resourceID, expiry, encodedKey, signature := parts[0], parts[1], parts[2], parts[3]

	if !hmac.Equal([]byte(s.sign(resourceID, expiry, encodedKey)), []byte(signature)) {
		return "", "", time.Time{}, ErrInvalidToken
	}
	unix, err := strconv.ParseInt(expiry, 10, 64)
	if err != nil {
		return "", "", time.Time{}, ErrInvalidToken
	}
	rawKey, err := base64.RawURLEncoding.DecodeString(encodedKey)
	if err != nil {
		return "", "", time.Time{}, ErrInvalidToken
	}
	expiresAt = time.Unix(unix, 0)
	if !allowExpired && s.now().After(expiresAt) {
		return "", "", time.Time{}, ErrTokenExpired
	}
	return resourceID, string(rawKey), expiresAt, nil
}

func (s *SignedURLSigner) sign(resourceID, expiry, encodedKey string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(resourceID + "|" + expiry + "|" + encodedKey))
	return hex.EncodeToString(mac.Sum(nil))
}
