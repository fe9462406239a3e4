// Package signing generates and verifies expiring HMAC links for staged asset
// previews.
package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

var (
	// ErrExpired is returned for a correctly signed link past its expiry.
	ErrExpired = errors.New("link expired")
	// ErrInvalid is returned for a malformed or tampered link.
	ErrInvalid = errors.New("invalid signature")
)

// Signer generates and validates HMAC based signatures.
type Signer struct {
	secret []byte
	now    func() time.Time
}

// NewSigner creates a Signer.
func NewSigner(secret []byte) *Signer {
	return &Signer{secret: secret, now: time.Now}
}

// Sign returns the hex signature binding draft, asset and expiry.
func (s *Signer) Sign(draftID, assetID string, expiresUnix int64) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s:%s:%d", draftID, assetID, expiresUnix)
	return hex.EncodeToString(mac.Sum(nil))
}

// Query returns the expires and signature query parameters valid for ttl.
func (s *Signer) Query(draftID, assetID string, ttl time.Duration) url.Values {
	exp := s.now().Add(ttl).Unix()
	return url.Values{
		"expires":   []string{strconv.FormatInt(exp, 10)},
		"signature": []string{s.Sign(draftID, assetID, exp)},
	}
}

// Verify checks the signature first and the expiry second.
func (s *Signer) Verify(draftID, assetID, expires, signature string) error {
	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return ErrInvalid
	}
	expected := s.Sign(draftID, assetID, exp)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrInvalid
	}
	if s.now().Unix() > exp {
		return ErrExpired
	}
	return nil
}
