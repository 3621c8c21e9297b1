package secure_channel

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// SessionManager is the enclave side of the secure channel. Higher
// level code drives the handshake through it and then encrypts and
// decrypts by session id. See cmd/enclave_server for how to expose it
// over RPC.
//
// Methods that fill a caller buffer follow a two phase contract: if
// the buffer is too short they write nothing and return the size
// needed together with ErrBufferTooSmall.
type SessionManager interface {
	Start()
	Stop()

	// Sweep ages all sessions by one tick and removes the expired
	// ones. It is meant to be driven by RunSweeper.
	Sweep() int

	// SweepInterval is how often Sweep should run.
	SweepInterval() time.Duration

	Sessions() int

	CreateSession(curve CurveID) (SessionID, error)

	RemoveSession(id SessionID)

	State(id SessionID) (State, error)

	GetEnclavePublicKey(out []byte) (SessionID, int, error)

	ExchangeParamLen(id SessionID) (int, error)

	ExchangeParam(id SessionID, out []byte) (int, error)

	SetPeerExchangeParam(id SessionID, param []byte) error

	InstallWrappedKey(id SessionID, wrapped []byte) error

	Encrypt(id SessionID, plain, out []byte) (int, error)

	Decrypt(id SessionID, frame, out []byte) (int, error)
}

type sessionManager struct {
	configuration

	sessions *Registry
}

func NewSessionManager(config *Configuration) (SessionManager, error) {
	conf, err := parseConfiguration(config)
	if err != nil {
		return nil, err
	}
	return newSessionManager(conf), nil
}

func newSessionManager(conf *configuration) *sessionManager {
	return &sessionManager{
		configuration: *conf,
		sessions:      NewRegistry(conf.maxSessions, conf.timeout, conf.curve),
	}
}

func (sm *sessionManager) Start() {
	sm.sessions.Start()
}

func (sm *sessionManager) Stop() {
	sm.sessions.Stop()
}

func (sm *sessionManager) Sweep() int {
	return sm.sessions.SweepInactive()
}

func (sm *sessionManager) Sessions() int {
	return sm.sessions.Len()
}

func (sm *sessionManager) CreateSession(curve CurveID) (SessionID, error) {
	return sm.sessions.CreateSession(curve)
}

func (sm *sessionManager) RemoveSession(id SessionID) {
	sm.sessions.RemoveSession(id)
}

func (sm *sessionManager) State(id SessionID) (State, error) {
	var state State
	err := sm.sessions.view(id, func(ctx *ExchangeContext) error {
		state = ctx.State()
		return nil
	})
	return state, err
}

// GetEnclavePublicKey creates a session, generates an RSA key pair for
// it and writes the PEM encoded public key into out. The session is
// removed again if any later step fails.
func (sm *sessionManager) GetEnclavePublicKey(out []byte) (SessionID, int, error) {
	need := rsaPublicKeyPEMLen(sm.rsaBits)
	if len(out) < need {
		return 0, need, ErrBufferTooSmall
	}

	id, err := sm.sessions.CreateSession(0)
	if err != nil {
		return 0, 0, err
	}

	// key generation and encoding happen outside the lock
	key, err := generateRSAKey(sm.rsaBits)
	if err != nil {
		sm.sessions.RemoveSession(id)
		return 0, 0, err
	}
	pub := marshalRSAPublicKey(&key.PublicKey)
	if len(pub) > len(out) {
		wipeRSAKey(key)
		sm.sessions.RemoveSession(id)
		return 0, len(pub), ErrBufferTooSmall
	}

	err = sm.sessions.update(id, func(ctx *ExchangeContext) error {
		ctx.AttachRSAKey(key)
		ctx.advance(StatePubkeySent)
		return nil
	})
	if err != nil {
		// the session can be gone already, e.g., after a sweep
		wipeRSAKey(key)
		sm.sessions.RemoveSession(id)
		return 0, 0, err
	}

	log.Info().Uint64("session_id", uint64(id)).Msg("handed out enclave public key")
	return id, copy(out, pub), nil
}

func (sm *sessionManager) ExchangeParamLen(id SessionID) (int, error) {
	var l int
	err := sm.sessions.view(id, func(ctx *ExchangeContext) error {
		l = len(ctx.local)
		return nil
	})
	return l, err
}

func (sm *sessionManager) ExchangeParam(id SessionID, out []byte) (int, error) {
	var n int
	err := sm.sessions.view(id, func(ctx *ExchangeContext) error {
		if len(out) < len(ctx.local) {
			n = len(ctx.local)
			return ErrBufferTooSmall
		}
		n = copy(out, ctx.local)
		return nil
	})
	return n, err
}

// SetPeerExchangeParam completes the key agreement of session id with
// the peer's serialized exchange parameters.
func (sm *sessionManager) SetPeerExchangeParam(id SessionID, param []byte) error {
	peer, err := decodeExchangeParam(param)
	if err != nil {
		return err
	}

	err = sm.sessions.update(id, func(ctx *ExchangeContext) error {
		// round trip our own parameters through the wire format
		local, err := decodeExchangeParam(ctx.local)
		if err != nil {
			return err
		}
		return ctx.computeSessionKey(local, peer)
	})
	if err != nil {
		log.Error().Err(err).Uint64("session_id", uint64(id)).Msg("compute session key failed")
		return err
	}
	log.Info().Uint64("session_id", uint64(id)).Msg("computed session key")
	return nil
}

// InstallWrappedKey installs a legacy RSA private key into session id.
// wrapped is a base64url encoded blob that the trusted storage
// service unseals into a packed key record.
func (sm *sessionManager) InstallWrappedKey(id SessionID, wrapped []byte) error {
	if len(wrapped) == 0 {
		return fmt.Errorf("%w: empty wrapped key", ErrBadParameters)
	}
	if sm.unsealer == nil {
		return fmt.Errorf("%w: no sealing key configured", ErrCryptoFailure)
	}

	sealed, err := decodeWrapped(wrapped)
	if err != nil {
		return err
	}
	rec, err := sm.unsealer.Unseal(sealed)
	if err != nil {
		log.Error().Err(err).Uint64("session_id", uint64(id)).Msg("unseal wrapped key failed")
		return err
	}
	defer wipe(rec)

	key, err := parseKeyRecord(rec)
	if err != nil {
		return err
	}

	err = sm.sessions.update(id, func(ctx *ExchangeContext) error {
		ctx.AttachRSAKey(key)
		ctx.advance(StateLegacyKeyInstalled)
		return nil
	})
	if err != nil {
		wipeRSAKey(key)
		return err
	}
	log.Info().Uint64("session_id", uint64(id)).Int("signature_len", key.Size()).Msg("installed wrapped key")
	return nil
}

// Encrypt seals plain for session id into out. Concurrent calls, even
// on the same session, only share the read lock.
func (sm *sessionManager) Encrypt(id SessionID, plain, out []byte) (int, error) {
	if len(plain) == 0 {
		return 0, fmt.Errorf("%w: empty plaintext", ErrBadParameters)
	}
	need := RequiredEncryptedLen(len(plain))
	if len(out) < need {
		return need, ErrBufferTooSmall
	}

	var n int
	err := sm.sessions.view(id, func(ctx *ExchangeContext) (err error) {
		n, err = ctx.sealTo(out[:need], id, plain)
		return err
	})
	if err != nil {
		log.Error().Err(err).Uint64("session_id", uint64(id)).Msg("sec chl encrypt failed")
		return 0, err
	}
	return n, nil
}

func (sm *sessionManager) Decrypt(id SessionID, frame, out []byte) (int, error) {
	if len(frame) == 0 {
		return 0, fmt.Errorf("%w: empty ciphertext", ErrBadParameters)
	}
	need := RequiredPlainLen(frame)
	if need == 0 {
		return 0, fmt.Errorf("%w: bad frame of %d bytes", ErrInvalidCiphertext, len(frame))
	}
	if len(out) < need {
		return need, ErrBufferTooSmall
	}

	var n int
	err := sm.sessions.view(id, func(ctx *ExchangeContext) (err error) {
		n, err = ctx.openTo(out[:need], id, frame)
		return err
	})
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Error().Err(err).Uint64("session_id", uint64(id)).Msg("sec chl decrypt failed")
		}
		return 0, err
	}
	return n, nil
}
