package secure_channel

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"io"
	"sync/atomic"

	proto "github.com/golang/protobuf/proto"
)

// State is the handshake progress of a session. States only move
// forward.
type State int32

const (
	StateCreated State = iota
	StatePubkeySent
	StateParamsExchanged
	StateKeyComputed
	StateLegacyKeyInstalled
	// At least one message went through the channel.
	StateReady
)

var stateNames = [...]string{
	"created", "pubkey sent", "params exchanged", "key computed", "legacy key installed", "ready",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// ExchangeContext holds the key agreement material of one session:
// the ephemeral key pair, the derived session key, and optionally a
// legacy RSA key. It is not safe for concurrent mutation; within the
// registry every mutation happens under the write lock.
type ExchangeContext struct {
	curve   CurveID
	kex     keyExchanger
	private []byte
	public  []byte
	local   []byte // public wrapped in an ExchangeParam
	peer    []byte

	sessionKey []byte
	aead       cipher.AEAD
	// if sealCount goes over 2^{32}, Seal will throw an error
	sealCount atomic.Uint64

	rsaKey       *rsa.PrivateKey
	signatureLen int

	state     atomic.Int32
	destroyed bool
}

// NewExchangeContext creates a context on curve and generates its
// local exchange parameters.
func NewExchangeContext(curve CurveID) (*ExchangeContext, error) {
	return newExchangeContext(curve, rand.Reader)
}

func newExchangeContext(curve CurveID, rand io.Reader) (*ExchangeContext, error) {
	if !IsSupportedCurve(curve) {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedCurve, curve)
	}
	kex, err := exchangerFor(curve)
	if err != nil {
		return nil, err
	}

	priv, pub, err := kex.generate(rand)
	if err != nil {
		return nil, fmt.Errorf("%w: could not generate %v key: %v", ErrCryptoInit, curve, err)
	}
	local, err := encodeExchangeParam(curve, pub)
	if err != nil {
		wipe(priv)
		return nil, fmt.Errorf("%w: %v", ErrCryptoInit, err)
	}

	return &ExchangeContext{
		curve:   curve,
		kex:     kex,
		private: priv,
		public:  pub,
		local:   local,
	}, nil
}

func encodeExchangeParam(curve CurveID, pub []byte) ([]byte, error) {
	return proto.Marshal(&ExchangeParam{
		Curve:     uint32(curve),
		PublicKey: pub,
	})
}

// decodeExchangeParam parses serialized exchange parameters as sent
// over the wire.
func decodeExchangeParam(b []byte) (*ExchangeParam, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: empty exchange parameters", ErrMalformed)
	}
	param := &ExchangeParam{}
	if err := proto.Unmarshal(b, param); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if !IsSupportedCurve(CurveID(param.Curve)) {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, CurveID(param.Curve))
	}
	if len(param.PublicKey) == 0 {
		return nil, fmt.Errorf("%w: no public key", ErrMalformed)
	}
	return param, nil
}

func (c *ExchangeContext) Curve() CurveID {
	return c.curve
}

// LocalParams returns a copy of the serialized local exchange
// parameters. They are generated once, when the context is created.
func (c *ExchangeContext) LocalParams() []byte {
	return append([]byte(nil), c.local...)
}

func (c *ExchangeContext) State() State {
	return State(c.state.Load())
}

func (c *ExchangeContext) advance(s State) {
	for {
		cur := c.state.Load()
		if cur >= int32(s) || c.state.CompareAndSwap(cur, int32(s)) {
			return
		}
	}
}

// Ready reports whether a session key has been computed.
func (c *ExchangeContext) Ready() bool {
	return c.aead != nil
}

// ComputeSessionKey runs the key agreement of this context's private
// key against peer, and installs the resulting session key. local
// must be this context's own serialized parameters; both are parsed
// with the same decoder so that both sides agree on the wire format.
// A second call replaces the key.
func (c *ExchangeContext) ComputeSessionKey(local, peer []byte) error {
	lp, err := decodeExchangeParam(local)
	if err != nil {
		return err
	}
	pp, err := decodeExchangeParam(peer)
	if err != nil {
		return err
	}
	return c.computeSessionKey(lp, pp)
}

func (c *ExchangeContext) computeSessionKey(local, peer *ExchangeParam) error {
	if c.destroyed {
		return fmt.Errorf("%w: exchange context destroyed", ErrNotReady)
	}
	if CurveID(local.Curve) != c.curve || !bytes.Equal(local.PublicKey, c.public) {
		return fmt.Errorf("%w: local parameters do not belong to this session", ErrKeyAgreement)
	}
	if CurveID(peer.Curve) != c.curve {
		return fmt.Errorf("%w: peer uses %v, session uses %v", ErrMalformed, CurveID(peer.Curve), c.curve)
	}
	shared, err := c.kex.shared(c.private, peer.PublicKey)
	if err != nil {
		return err
	}
	defer wipe(shared)
	c.peer = append(c.peer[:0], peer.PublicKey...)
	c.advance(StateParamsExchanged)

	key, err := deriveSessionKey(shared)
	if err != nil {
		return err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		wipe(key)
		return fmt.Errorf("%w: %v", ErrCryptoFailure, err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		wipe(key)
		return fmt.Errorf("%w: %v", ErrCryptoFailure, err)
	}

	// the old key, if any, is only replaced once the new one is
	// complete
	wipe(c.sessionKey)
	c.sessionKey = key
	c.aead = aead
	c.sealCount.Store(0)
	c.advance(StateKeyComputed)
	return nil
}

// AttachRSAKey stores a legacy RSA key pair alongside the ECDH
// material, replacing any key attached before.
func (c *ExchangeContext) AttachRSAKey(key *rsa.PrivateKey) {
	if c.rsaKey != nil && c.rsaKey != key {
		wipeRSAKey(c.rsaKey)
	}
	c.rsaKey = key
	c.signatureLen = key.Size()
}

// SignatureLen is the signature size of the attached RSA key, or 0.
func (c *ExchangeContext) SignatureLen() int {
	return c.signatureLen
}

// Destroy wipes all key material held by the context. It is safe to
// call more than once, and on a context that never computed a key.
func (c *ExchangeContext) Destroy() {
	if c == nil || c.destroyed {
		return
	}
	wipe(c.private)
	wipe(c.sessionKey)
	wipeRSAKey(c.rsaKey)
	c.private = nil
	c.sessionKey = nil
	c.aead = nil
	c.rsaKey = nil
	c.signatureLen = 0
	c.destroyed = true
}
