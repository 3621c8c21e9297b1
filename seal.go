package secure_channel

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

// Unsealer is the trusted storage service that opens blobs sealed
// for this enclave. Wrapped legacy keys go through it.
type Unsealer interface {
	Unseal(sealed []byte) ([]byte, error)
}

var SEALING_KEY_INFO = []byte("secure channel sealing key")

// GCMSealer seals with AES-256-GCM under a key derived from a master
// secret. Sealed blobs are nonce | ciphertext | tag.
type GCMSealer struct {
	aead cipher.AEAD
}

func NewGCMSealer(master []byte) (*GCMSealer, error) {
	if len(master) < 16 {
		return nil, fmt.Errorf("%w: sealing secret must be at least 16 bytes", ErrBadParameters)
	}
	key := make([]byte, 32)
	defer wipe(key)
	if _, err := io.ReadFull(hkdf.New(sha256.New, master, nil, SEALING_KEY_INFO), key); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCryptoInit, err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCryptoInit, err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCryptoInit, err)
	}
	return &GCMSealer{aead: aead}, nil
}

func (s *GCMSealer) Seal(plain []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plain)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRandomSource, err)
	}
	return s.aead.Seal(nonce, nonce, plain, nil), nil
}

func (s *GCMSealer) Unseal(sealed []byte) ([]byte, error) {
	ns := s.aead.NonceSize()
	if len(sealed) < ns+s.aead.Overhead() {
		return nil, fmt.Errorf("%w: sealed blob of %d bytes", ErrMalformed, len(sealed))
	}
	plain, err := s.aead.Open(nil, sealed[:ns], sealed[ns:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: could not unseal: %v", ErrCryptoFailure, err)
	}
	return plain, nil
}

// decodeWrapped undoes the base64url transport encoding of a wrapped
// key. Padding is optional.
func decodeWrapped(data []byte) ([]byte, error) {
	s := strings.TrimRight(strings.TrimSpace(string(data)), "=")
	out, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: wrapped key is not base64url: %v", ErrMalformed, err)
	}
	return out, nil
}

// WrapKey produces the wrapped form of key that InstallWrappedKey
// accepts: the packed key record, sealed, base64url encoded.
func WrapKey(sealer *GCMSealer, key *rsa.PrivateKey) ([]byte, error) {
	rec := packKeyRecord(key)
	defer wipe(rec)
	sealed, err := sealer.Seal(rec)
	if err != nil {
		return nil, err
	}
	out := make([]byte, base64.RawURLEncoding.EncodedLen(len(sealed)))
	base64.RawURLEncoding.Encode(out, sealed)
	return out, nil
}
