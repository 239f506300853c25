// Package crypto seals small blobs, such as saved login sessions, with
// AES-GCM and an HMAC signature.
package crypto

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/gtank/cryptopasta"
)

const minSecretLen = 32

var (
	// ErrSecretTooShort is returned for secrets under 32 characters.
	ErrSecretTooShort = fmt.Errorf("secret too short, want at least %d chars", minSecretLen)

	// ErrTampered is returned when a sealed blob fails its signature check.
	ErrTampered = errors.New("signature validation failed")
)

// Sealer encrypts and signs with two keys derived from one secret.
type Sealer struct {
	encryption *[32]byte
	signature  *[32]byte
}

// NewSealer derives a Sealer from secret. The purpose string keeps keys for
// different uses apart even when users reuse a secret.
func NewSealer(purpose, secret string) (*Sealer, error) {
	if len(secret) < minSecretLen {
		return nil, ErrSecretTooShort
	}
	return &Sealer{
		encryption: deriveKey(purpose+" encryption", secret),
		signature:  deriveKey(purpose+" signature", secret),
	}, nil
}

func deriveKey(tag, secret string) *[32]byte {
	key := &[32]byte{}
	copy(key[:], cryptopasta.Hash(tag, []byte(secret)))
	return key
}

// Seal encrypts plaintext and returns "<cyphertext>.<hmac>", both base64.
func (s *Sealer) Seal(plaintext []byte) (string, error) {
	cyphertext, err := cryptopasta.Encrypt(plaintext, s.encryption)
	if err != nil {
		return "", err
	}
	mac := cryptopasta.GenerateHMAC(cyphertext, s.signature)

	return fmt.Sprintf(
		"%s.%s",
		base64.RawURLEncoding.EncodeToString(cyphertext),
		base64.RawURLEncoding.EncodeToString(mac),
	), nil
}

// Open checks the signature of a sealed string and decrypts it.
func (s *Sealer) Open(sealed string) ([]byte, error) {
	bits := strings.SplitN(strings.TrimSpace(sealed), ".", 2)
	if len(bits) != 2 {
		return nil, fmt.Errorf("sealed data malformed, missing signature")
	}

	cyphertext, err := base64.RawURLEncoding.DecodeString(bits[0])
	if err != nil {
		return nil, fmt.Errorf("decoding cyphertext: %w", err)
	}
	mac, err := base64.RawURLEncoding.DecodeString(bits[1])
	if err != nil {
		return nil, fmt.Errorf("decoding signature: %w", err)
	}

	if !cryptopasta.CheckHMAC(cyphertext, mac, s.signature) {
		return nil, ErrTampered
	}
	return cryptopasta.Decrypt(cyphertext, s.encryption)
}
