// Package auth implements the client side of the feed server's
// password authentication: a PBKDF2-stretched shared key, an HMAC
// nonce handshake, and a ChaCha20-Poly1305 sealed session connection.
package auth

import (
	"crypto/sha256"
	"errors"

	"golang.org/x/crypto/pbkdf2"
)

const (
	pbkdf2Iterations = 100000
	pbkdf2Salt       = "rudderwalk-feed-key-v1"
	sessionContext   = "rudderwalk-feed-session-v1"
)

// DeriveKey stretches a password to a 32-byte key.
func DeriveKey(password string) ([]byte, error) {
	if password == "" {
		return nil, errors.New("password cannot be empty")
	}
	return pbkdf2.Key([]byte(password), []byte(pbkdf2Salt), pbkdf2Iterations, 32, sha256.New), nil
}

// SessionKey mixes the shared key with both handshake nonces into a
// per-connection key. Plain SHA-256 mixing keeps foreign client
// implementations simple.
func SessionKey(key, serverNonce, clientNonce []byte) []byte {
	h := sha256.New()
	h.Write(key)
	h.Write(serverNonce)
	h.Write(clientNonce)
	h.Write([]byte(sessionContext))
	return h.Sum(nil)
}
