package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Token is the metadata embedded in a signed download link.
type Token struct {
	OwnerID   string
	Path      string
	ExpiresAt time.Time
}

// SignedURLSigner creates and validates signed download tokens.
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

// Generate returns a token binding ownerID (a bulletin id) to the stored path.
func (s *SignedURLSigner) Generate(ownerID, relPath string) (string, time.Time, error) {
	if ownerID == "" || relPath == "" {
		return "", time.Time{}, fmt.Errorf("owner id and path required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).Truncate(time.Second)
	encodedPath := base64.RawURLEncoding.EncodeToString([]byte(relPath))
	ts := strconv.FormatInt(expiresAt.Unix(), 10)
	signature := s.sign(ownerID, ts, encodedPath)
	return strings.Join([]string{ownerID, ts, encodedPath, signature}, "."), expiresAt, nil
}

// Parse validates a token. Expired tokens are rejected.
func (s *SignedURLSigner) Parse(token string) (Token, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return Token{}, fmt.Errorf("invalid token format")
	}
	ownerID, ts, encodedPath, signature := parts[0], parts[1], parts[2], parts[3]

	expected := s.sign(ownerID, ts, encodedPath)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return Token{}, fmt.Errorf("invalid token signature")
	}
	expUnix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return Token{}, fmt.Errorf("invalid timestamp")
	}
	rawPath, err := base64.RawURLEncoding.DecodeString(encodedPath)
	if err != nil {
		return Token{}, fmt.Errorf("decode path: %w", err)
	}
	expiresAt := time.Unix(expUnix, 0)
	if s.now().After(expiresAt) {
		return Token{}, fmt.Errorf("token expired")
	}
	return Token{OwnerID: ownerID, Path: string(rawPath), ExpiresAt: expiresAt}, nil
}

func (s *SignedURLSigner) sign(ownerID, ts, encodedPath string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(ownerID + "|" + ts + "|" + encodedPath))
	return hex.EncodeToString(mac.Sum(nil))
}
