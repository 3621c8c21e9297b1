package secure_channel

import (
	"errors"
	"fmt"
)

var (
	ErrBadParameters    = errors.New("bad parameters")
	ErrUnsupportedCurve = errors.New("unsupported curve")
	ErrBufferTooSmall   = errors.New("buffer too small")

	// The curve is allowed, but this build cannot compute on it.
	ErrNoBackend = errors.New("no key agreement backend")

	ErrRandomSource     = errors.New("random source failed")
	ErrCryptoInit       = errors.New("crypto init failed")
	ErrCapacityExceeded = errors.New("session capacity exceeded")

	ErrNotFound = errors.New("session not found")
	ErrNotReady = errors.New("secure channel not ready")

	ErrMalformed         = errors.New("malformed parameter")
	ErrKeyAgreement      = errors.New("key agreement failed")
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
	ErrCryptoFailure     = errors.New("crypto failure")
)

// ErrorClass groups errors by how a caller is expected to react to
// them.
type ErrorClass int

const (
	ClassUnknown ErrorClass = iota
	// Caller misuse. Never retried.
	ClassParameter
	// Transient shortage; creation may be retried later.
	ClassResource
	// Unknown or expired session id.
	ClassNotFound
	ClassCrypto
	// Too many live sessions; callers should back off.
	ClassCapacity
	// Registry stopped or session key not computed yet.
	ClassState
)

func (c ErrorClass) String() string {
	switch c {
	case ClassParameter:
		return "parameter"
	case ClassResource:
		return "resource"
	case ClassNotFound:
		return "not found"
	case ClassCrypto:
		return "crypto"
	case ClassCapacity:
		return "capacity"
	case ClassState:
		return "state"
	}
	return "unknown"
}

// Classify maps err onto the error taxonomy of the channel.
func Classify(err error) ErrorClass {
	switch {
	case err == nil:
		return ClassUnknown
	case errors.Is(err, ErrCapacityExceeded):
		return ClassCapacity
	case errors.Is(err, ErrNotFound):
		return ClassNotFound
	case errors.Is(err, ErrNotReady):
		return ClassState
	case errors.Is(err, ErrNoBackend):
		return ClassParameter
	case errors.Is(err, ErrBadParameters),
		errors.Is(err, ErrUnsupportedCurve),
		errors.Is(err, ErrBufferTooSmall):
		return ClassParameter
	case errors.Is(err, ErrRandomSource), errors.Is(err, ErrCryptoInit):
		return ClassResource
	case errors.Is(err, ErrMalformed),
		errors.Is(err, ErrKeyAgreement),
		errors.Is(err, ErrInvalidCiphertext),
		errors.Is(err, ErrCryptoFailure):
		return ClassCrypto
	}
	return ClassUnknown
}

// Retryable reports whether the operation that produced err may
// succeed if attempted again later.
func Retryable(err error) bool {
	c := Classify(err)
	return c == ClassResource || c == ClassCapacity
}

func capacityError(max int) error {
	return fmt.Errorf("%w: exceeded max limit of %d", ErrCapacityExceeded, max)
}

func notFoundError(id SessionID) error {
	return fmt.Errorf("%w: %d", ErrNotFound, id)
}
