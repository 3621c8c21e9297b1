package secure_channel

import (
	"crypto/elliptic"
	"fmt"
	"io"
	"strings"

	"github.com/ProtonMail/go-crypto/brainpool"
	"github.com/cloudflare/circl/dh/x448"
	"golang.org/x/crypto/curve25519"
)

// CurveID identifies a named curve. The values are the OpenSSL NIDs,
// so that ids produced by the other side of the channel can be used
// as is.
type CurveID uint32

const (
	BrainpoolP256r1 CurveID = 927
	BrainpoolP320r1 CurveID = 929
	BrainpoolP384r1 CurveID = 931
	BrainpoolP512r1 CurveID = 933
	X25519          CurveID = 1034
	X448            CurveID = 1035
)

// DefaultCurve is used whenever a session is created without an
// explicit curve.
const DefaultCurve = BrainpoolP256r1

var supportedCurves = []CurveID{
	BrainpoolP256r1,
	BrainpoolP320r1,
	BrainpoolP384r1,
	BrainpoolP512r1,
	X25519,
	X448,
}

var curveNames = map[CurveID]string{
	BrainpoolP256r1: "brainpoolP256r1",
	BrainpoolP320r1: "brainpoolP320r1",
	BrainpoolP384r1: "brainpoolP384r1",
	BrainpoolP512r1: "brainpoolP512r1",
	X25519:          "X25519",
	X448:            "X448",
}

// IsSupportedCurve reports whether id is in the allow-list of curves
// a session may use.
func IsSupportedCurve(id CurveID) bool {
	for _, c := range supportedCurves {
		if c == id {
			return true
		}
	}
	return false
}

// HasBackend reports whether sessions can actually be created on id.
func HasBackend(id CurveID) bool {
	_, err := exchangerFor(id)
	return err == nil
}

func (id CurveID) String() string {
	if name, ok := curveNames[id]; ok {
		return name
	}
	return fmt.Sprintf("curve(%d)", uint32(id))
}

// ParseCurve maps a curve name (case insensitive) to its id.
func ParseCurve(name string) (CurveID, error) {
	for id, n := range curveNames {
		if strings.EqualFold(n, name) {
			return id, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedCurve, name)
}

// keyExchanger is the ECDH primitive behind an exchange context.
type keyExchanger interface {
	// generate returns a fresh private scalar and the encoded public
	// point that goes on the wire.
	generate(rand io.Reader) (priv, pub []byte, err error)

	// shared computes the raw shared secret against the encoded
	// public point of the peer.
	shared(priv, peer []byte) ([]byte, error)
}

func exchangerFor(id CurveID) (keyExchanger, error) {
	switch id {
	case BrainpoolP256r1:
		return &weierstrass{curve: brainpool.P256r1()}, nil
	case BrainpoolP384r1:
		return &weierstrass{curve: brainpool.P384r1()}, nil
	case BrainpoolP512r1:
		return &weierstrass{curve: brainpool.P512r1()}, nil
	case X25519:
		return x25519Exchanger{}, nil
	case X448:
		return x448Exchanger{}, nil
	case BrainpoolP320r1:
		// TODO: brainpoolP320r1 needs a curve implementation; none
		// of the brainpool packages we depend on provide it.
		return nil, fmt.Errorf("%w: %w for %v", ErrCryptoInit, ErrNoBackend, id)
	}
	return nil, fmt.Errorf("%w: %v", ErrUnsupportedCurve, id)
}

// weierstrass implements ECDH on short Weierstrass curves, with
// public points in uncompressed SEC1 form.
type weierstrass struct {
	curve elliptic.Curve
}

func (w *weierstrass) generate(rand io.Reader) ([]byte, []byte, error) {
	priv, x, y, err := elliptic.GenerateKey(w.curve, rand)
	if err != nil {
		return nil, nil, err
	}
	return priv, elliptic.Marshal(w.curve, x, y), nil
}

func (w *weierstrass) shared(priv, peer []byte) ([]byte, error) {
	px, py := elliptic.Unmarshal(w.curve, peer)
	if px == nil {
		return nil, fmt.Errorf("%w: point not on %s", ErrMalformed, w.curve.Params().Name)
	}
	// only x is used as the result of key exchange
	x, _ := w.curve.ScalarMult(px, py, priv)
	if x.Sign() == 0 {
		return nil, ErrKeyAgreement
	}
	out := make([]byte, (w.curve.Params().BitSize+7)/8)
	return x.FillBytes(out), nil
}

type x25519Exchanger struct{}

func (x25519Exchanger) generate(rand io.Reader) ([]byte, []byte, error) {
	priv := make([]byte, curve25519.ScalarSize)
	if _, err := io.ReadFull(rand, priv); err != nil {
		return nil, nil, err
	}
	pub, err := curve25519.X25519(priv, curve25519.Basepoint)
	if err != nil {
		return nil, nil, err
	}
	return priv, pub, nil
}

func (x25519Exchanger) shared(priv, peer []byte) ([]byte, error) {
	if len(peer) != curve25519.PointSize {
		return nil, fmt.Errorf("%w: X25519 point is %d bytes", ErrMalformed, len(peer))
	}
	secret, err := curve25519.X25519(priv, peer)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyAgreement, err)
	}
	return secret, nil
}

type x448Exchanger struct{}

func (x448Exchanger) generate(rand io.Reader) ([]byte, []byte, error) {
	var priv, pub x448.Key
	if _, err := io.ReadFull(rand, priv[:]); err != nil {
		return nil, nil, err
	}
	x448.KeyGen(&pub, &priv)
	return priv[:], pub[:], nil
}

func (x448Exchanger) shared(priv, peer []byte) ([]byte, error) {
	if len(peer) != x448.Size {
		return nil, fmt.Errorf("%w: X448 point is %d bytes", ErrMalformed, len(peer))
	}
	var secret, sk, pk x448.Key
	copy(sk[:], priv)
	copy(pk[:], peer)
	defer wipe(sk[:])
	if !x448.Shared(&secret, &sk, &pk) {
		return nil, ErrKeyAgreement
	}
	return secret[:], nil
}
