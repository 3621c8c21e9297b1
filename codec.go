package secure_channel

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math"
)

// A frame on the channel is
//
//	session id (8) | plaintext length (4) | nonce (12) | ciphertext | tag (16)
//
// with big endian integers. The id and length are authenticated as
// additional data.
const (
	SESSION_ID_SIZE   = 8
	LENGTH_SIZE       = 4
	NONCE_SIZE        = 12
	TAG_SIZE          = 16
	FRAME_AAD_SIZE    = SESSION_ID_SIZE + LENGTH_SIZE
	FRAME_HEADER_SIZE = FRAME_AAD_SIZE + NONCE_SIZE
	FRAME_OVERHEAD    = FRAME_HEADER_SIZE + TAG_SIZE
)

// the highest plaintext length whose frame still fits the length field
const MAX_PLAIN_LEN = math.MaxUint32 - FRAME_OVERHEAD

const MAX_SEALS = 1 << 32

// RequiredEncryptedLen is the size of the frame that encrypting
// plainLen bytes produces.
func RequiredEncryptedLen(plainLen int) int {
	return plainLen + FRAME_OVERHEAD
}

// RequiredPlainLen is the size of the plaintext inside frame, or 0 if
// frame is not a well formed frame.
func RequiredPlainLen(frame []byte) int {
	if len(frame) <= FRAME_OVERHEAD {
		return 0
	}
	l := binary.BigEndian.Uint32(frame[SESSION_ID_SIZE:FRAME_AAD_SIZE])
	if uint64(l)+FRAME_OVERHEAD != uint64(len(frame)) {
		return 0
	}
	return int(l)
}

// sealTo encrypts plain for session id into out, which must hold
// RequiredEncryptedLen(len(plain)) bytes.
func (c *ExchangeContext) sealTo(out []byte, id SessionID, plain []byte) (int, error) {
	if !c.Ready() {
		return 0, fmt.Errorf("%w: session key not computed", ErrNotReady)
	}
	if len(plain) == 0 || uint64(len(plain)) > MAX_PLAIN_LEN {
		return 0, fmt.Errorf("%w: plaintext length %d", ErrBadParameters, len(plain))
	}
	need := RequiredEncryptedLen(len(plain))
	if len(out) < need {
		return need, ErrBufferTooSmall
	}
	if c.sealCount.Add(1) > MAX_SEALS {
		return 0, fmt.Errorf("%w: sealed too many messages", ErrCryptoFailure)
	}

	binary.BigEndian.PutUint64(out, uint64(id))
	binary.BigEndian.PutUint32(out[SESSION_ID_SIZE:], uint32(len(plain)))
	if _, err := rand.Read(out[FRAME_AAD_SIZE:FRAME_HEADER_SIZE]); err != nil {
		return 0, fmt.Errorf("%w: nonce: %v", ErrRandomSource, err)
	}

	sealed := c.aead.Seal(out[FRAME_HEADER_SIZE:FRAME_HEADER_SIZE], out[FRAME_AAD_SIZE:FRAME_HEADER_SIZE], plain, out[:FRAME_AAD_SIZE])
	c.advance(StateReady)
	return FRAME_HEADER_SIZE + len(sealed), nil
}

// openTo authenticates and decrypts frame into out, which must hold
// RequiredPlainLen(frame) bytes. On failure nothing readable is left
// in out.
func (c *ExchangeContext) openTo(out []byte, id SessionID, frame []byte) (int, error) {
	need := RequiredPlainLen(frame)
	if need == 0 {
		return 0, fmt.Errorf("%w: bad frame of %d bytes", ErrInvalidCiphertext, len(frame))
	}
	if len(out) < need {
		return need, ErrBufferTooSmall
	}
	if !c.Ready() {
		return 0, fmt.Errorf("%w: session key not computed", ErrNotReady)
	}
	if SessionID(binary.BigEndian.Uint64(frame)) != id {
		return 0, fmt.Errorf("%w: frame belongs to another session", ErrInvalidCiphertext)
	}

	nonce := frame[FRAME_AAD_SIZE:FRAME_HEADER_SIZE]
	plain, err := c.aead.Open(out[:0], nonce, frame[FRAME_HEADER_SIZE:], frame[:FRAME_AAD_SIZE])
	if err != nil {
		wipe(out[:need])
		return 0, fmt.Errorf("%w: %v", ErrCryptoFailure, err)
	}
	c.advance(StateReady)
	return len(plain), nil
}

// Seal encrypts plain into a newly allocated frame for session id.
// It is what the host side of the channel uses once its own context
// has computed the session key.
func (c *ExchangeContext) Seal(id SessionID, plain []byte) ([]byte, error) {
	out := make([]byte, RequiredEncryptedLen(len(plain)))
	n, err := c.sealTo(out, id, plain)
	if err != nil {
		return nil, err
	}
	return out[:n], nil
}

// Open is the inverse of Seal.
func (c *ExchangeContext) Open(id SessionID, frame []byte) ([]byte, error) {
	out := make([]byte, RequiredPlainLen(frame))
	n, err := c.openTo(out, id, frame)
	if err != nil {
		return nil, err
	}
	return out[:n], nil
}
