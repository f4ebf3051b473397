package server

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// tokenTTL bounds how long a rendered form can be submitted.
const tokenTTL = 24 * time.Hour

var (
	errTokenMissing = errors.New("form token missing")
	errTokenInvalid = errors.New("form token invalid")
	errTokenExpired = errors.New("form token expired")
)

// tokenSigner issues form tokens of the form "<unix>.<mac>" where mac is
// an HMAC-SHA256 of the issue time.
type tokenSigner struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// newTokenSigner uses secret as the key. An empty secret gets a random key,
// so tokens do not survive a restart.
func newTokenSigner(secret string) (*tokenSigner, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generating form key: %w", err)
		}
	}
	return &tokenSigner{key: key, ttl: tokenTTL, now: time.Now}, nil
}

func (s *tokenSigner) Issue() string {
	ts := strconv.FormatInt(s.now().Unix(), 10)
	return ts + "." + s.sign(ts)
}

func (s *tokenSigner) Verify(token string) error {
	if token == "" {
		return errTokenMissing
	}
	ts, mac, ok := strings.Cut(token, ".")
	if !ok || !hmac.Equal([]byte(mac), []byte(s.sign(ts))) {
		return errTokenInvalid
	}
	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return errTokenInvalid
	}
	age := s.now().Sub(time.Unix(unix, 0))
	if age > s.ttl || age < -time.Minute {
		return errTokenExpired
	}
	return nil
}

func (s *tokenSigner) sign(ts string) string {
	h := hmac.New(sha256.New, s.key)
	h.Write([]byte(ts))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}
