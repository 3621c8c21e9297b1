package secure_channel

import (
	"bytes"
	"crypto/aes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/subtle"
	"crypto/x509"
	"encoding/binary"
	"encoding/pem"
	"fmt"
	"math"
	"math/big"

	"github.com/aead/cmac"
)

const RSA_MODULUS_BITS = 3072
const RSA_PUBLIC_EXPONENT = 65537

// The longest hex encoded big number accepted in a wrapped key record.
const MAX_KEY_FIELD_LEN = 1024

const RSA_PEM_TYPE = "RSA PUBLIC KEY"

var SK_LABEL = []byte{'S', 'K'}

// wipe overwrites b with zeros.
func wipe(b []byte) {
	if len(b) == 0 {
		return
	}
	zero := make([]byte, len(b))
	subtle.ConstantTimeCopy(1, b, zero)
}

func wipeRSAKey(key *rsa.PrivateKey) {
	if key == nil {
		return
	}
	key.D.SetInt64(0)
	for _, p := range key.Primes {
		p.SetInt64(0)
	}
}

// key derivation key
func kdk(shared []byte) ([]byte, error) {
	var cmacKey [16]byte // this always initializes to 0s in go
	block, err := aes.NewCipher(cmacKey[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCryptoFailure, err)
	}

	key, err := cmac.Sum(shared, block, aes.BlockSize)
	if err != nil {
		return nil, fmt.Errorf("%w: could not derive the KDK: %v", ErrKeyAgreement, err)
	}
	return key, nil
}

func keyDerivationString(label []byte) []byte {
	out := make([]byte, 4+len(label))
	copy(out[1:], label)
	out[0] = 1
	out[len(out)-2] = 128
	return out
}

func deriveLabelKeyFromBase(base []byte, label []byte) ([]byte, error) {
	block, err := aes.NewCipher(base)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCryptoFailure, err)
	}

	key, err := cmac.Sum(keyDerivationString(label), block, aes.BlockSize)
	if err != nil {
		return nil, fmt.Errorf("%w: could not derive the label key: %v", ErrKeyAgreement, err)
	}
	return key, nil
}

// deriveSessionKey turns a raw ECDH secret into the 128 bit AES key
// protecting the channel.
func deriveSessionKey(shared []byte) ([]byte, error) {
	base, err := kdk(shared)
	if err != nil {
		return nil, err
	}
	defer wipe(base)
	return deriveLabelKeyFromBase(base, SK_LABEL)
}

func generateRSAKey(bits int) (*rsa.PrivateKey, error) {
	if bits <= 0 {
		bits = RSA_MODULUS_BITS
	}
	// crypto/rsa always uses 65537 as the public exponent.
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("%w: could not generate RSA key: %v", ErrCryptoFailure, err)
	}
	return key, nil
}

// marshalRSAPublicKey PEM encodes pub as a PKCS#1 "RSA PUBLIC KEY".
func marshalRSAPublicKey(pub *rsa.PublicKey) []byte {
	return pem.EncodeToMemory(&pem.Block{
		Type:  RSA_PEM_TYPE,
		Bytes: x509.MarshalPKCS1PublicKey(pub),
	})
}

// rsaPublicKeyPEMLen is the size of marshalRSAPublicKey's output for
// any key with a modulus of exactly bits bits and exponent 65537. It
// lets callers size their buffers without generating a key.
func rsaPublicKeyPEMLen(bits int) int {
	if bits <= 0 {
		bits = RSA_MODULUS_BITS
	}
	n := new(big.Int).Lsh(big.NewInt(1), uint(bits-1))
	n.SetBit(n, 0, 1)
	return len(marshalRSAPublicKey(&rsa.PublicKey{N: n, E: RSA_PUBLIC_EXPONENT}))
}

// parseKeyRecord rebuilds an RSA private key from a record laid out
// as d_len | d | n_len | n | e_len | e, where every length is a 4
// byte little endian integer and every field a hex encoded big
// number, optionally NUL terminated.
func parseKeyRecord(rec []byte) (*rsa.PrivateKey, error) {
	var fields [3]*big.Int
	names := [3]string{"d", "n", "e"}

	rest := rec
	for i := range fields {
		if len(rest) < 4 {
			return nil, fmt.Errorf("%w: key record truncated before %s", ErrMalformed, names[i])
		}
		l := binary.LittleEndian.Uint32(rest)
		rest = rest[4:]
		if l > MAX_KEY_FIELD_LEN {
			return nil, fmt.Errorf("%w: key field %s is %d bytes, max %d", ErrMalformed, names[i], l, MAX_KEY_FIELD_LEN)
		}
		if uint32(len(rest)) < l {
			return nil, fmt.Errorf("%w: key field %s truncated", ErrMalformed, names[i])
		}

		field := bytes.TrimRight(rest[:l], "\x00")
		x, ok := new(big.Int).SetString(string(field), 16)
		if !ok || x.Sign() <= 0 {
			return nil, fmt.Errorf("%w: key field %s is not a hex number", ErrMalformed, names[i])
		}
		fields[i] = x
		rest = rest[l:]
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes after key record", ErrMalformed, len(rest))
	}

	d, n, e := fields[0], fields[1], fields[2]
	if !e.IsInt64() || e.Int64() < 3 || e.Int64() > math.MaxInt32 {
		return nil, fmt.Errorf("%w: bad public exponent", ErrMalformed)
	}
	if d.Cmp(n) >= 0 {
		return nil, fmt.Errorf("%w: private exponent larger than modulus", ErrMalformed)
	}

	return &rsa.PrivateKey{
		PublicKey: rsa.PublicKey{N: n, E: int(e.Int64())},
		D:         d,
	}, nil
}

// packKeyRecord is the inverse of parseKeyRecord. Fields are written
// as NUL terminated upper case hex.
func packKeyRecord(key *rsa.PrivateKey) []byte {
	var buf bytes.Buffer
	for _, x := range []*big.Int{key.D, key.N, big.NewInt(int64(key.E))} {
		field := append([]byte(fmt.Sprintf("%X", x)), 0)
		var l [4]byte
		binary.LittleEndian.PutUint32(l[:], uint32(len(field)))
		buf.Write(l[:])
		buf.Write(field)
		wipe(field)
	}
	return buf.Bytes()
}
