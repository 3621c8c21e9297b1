package secure_channel

import (
	"bytes"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"sync"
	"testing"
	"time"
)

var testMaster = bytes.Repeat([]byte{0x5a}, 32)

func testManager(t *testing.T, curve CurveID, rsaBits int) (*sessionManager, *GCMSealer) {
	sealer, err := NewGCMSealer(testMaster)
	if err != nil {
		t.Fatal(err)
	}
	sm := newSessionManager(&configuration{
		maxSessions:   MAX_SESSIONS,
		timeout:       SESSION_TIMEOUT_TICKS,
		sweepInterval: time.Second,
		curve:         curve,
		rsaBits:       rsaBits,
		unsealer:      sealer,
	})
	sm.Start()
	return sm, sealer
}

// handshake runs the host side of the key agreement against session
// id and returns the host's context.
func handshake(t *testing.T, sm SessionManager, id SessionID) *ExchangeContext {
	l, err := sm.ExchangeParamLen(id)
	if err != nil {
		t.Fatal(err)
	}
	if l == 0 {
		t.Fatal("Exchange parameters should not be empty.")
	}
	param := make([]byte, l)
	if _, err := sm.ExchangeParam(id, param); err != nil {
		t.Fatal(err)
	}
	enclaveParam, err := decodeExchangeParam(param)
	if err != nil {
		t.Fatal(err)
	}

	host, err := NewExchangeContext(CurveID(enclaveParam.Curve))
	if err != nil {
		t.Fatal(err)
	}
	if err := host.ComputeSessionKey(host.LocalParams(), param); err != nil {
		t.Fatal(err)
	}
	if err := sm.SetPeerExchangeParam(id, host.LocalParams()); err != nil {
		t.Fatal(err)
	}
	return host
}

func TestSecureChannelScenario(t *testing.T) {
	sm, _ := testManager(t, BrainpoolP256r1, RSA_MODULUS_BITS)
	defer sm.Stop()

	pub := make([]byte, 4096)
	id, n, err := sm.GetEnclavePublicKey(pub)
	if err != nil {
		t.Fatal(err)
	}
	if n == 0 {
		t.Fatal("Public key should not be empty.")
	}
	block, _ := pem.Decode(pub[:n])
	if block == nil || block.Type != RSA_PEM_TYPE {
		t.Fatal("Public key is not an RSA PUBLIC KEY PEM block.")
	}
	rsaPub, err := x509.ParsePKCS1PublicKey(block.Bytes)
	if err != nil {
		t.Fatal(err)
	}
	if rsaPub.N.BitLen() != RSA_MODULUS_BITS || rsaPub.E != RSA_PUBLIC_EXPONENT {
		t.Fatalf("Unexpected RSA key: %d bits, e=%d", rsaPub.N.BitLen(), rsaPub.E)
	}
	if state, _ := sm.State(id); state != StatePubkeySent {
		t.Fatalf("Expected state %v, got %v", StatePubkeySent, state)
	}

	host := handshake(t, sm, id)
	if state, _ := sm.State(id); state != StateKeyComputed {
		t.Fatalf("Expected state %v, got %v", StateKeyComputed, state)
	}

	plain := []byte("hello")
	frame := make([]byte, RequiredEncryptedLen(len(plain)))
	n, err = sm.Encrypt(id, plain, frame)
	if err != nil {
		t.Fatal(err)
	}

	out := make([]byte, RequiredPlainLen(frame[:n]))
	m, err := sm.Decrypt(id, frame[:n], out)
	if err != nil {
		t.Fatal(err)
	}
	if string(out[:m]) != "hello" {
		t.Fatalf("Expected hello, got %q", out[:m])
	}

	// and the host can read it, too
	opened, err := host.Open(id, frame[:n])
	if err != nil || string(opened) != "hello" {
		t.Fatalf("Host could not open the frame: %v", err)
	}
	if state, _ := sm.State(id); state != StateReady {
		t.Fatalf("Expected state %v, got %v", StateReady, state)
	}
}

func TestPublicKeyBufferTooSmall(t *testing.T) {
	sm, _ := testManager(t, X25519, 2048)
	defer sm.Stop()

	id, need, err := sm.GetEnclavePublicKey(make([]byte, 10))
	if !errors.Is(err, ErrBufferTooSmall) {
		t.Fatalf("Expected ErrBufferTooSmall, got %v", err)
	}
	if id != 0 || need != rsaPublicKeyPEMLen(2048) {
		t.Fatalf("Expected no session and %d bytes, got %d and %d", rsaPublicKeyPEMLen(2048), id, need)
	}
	if sm.Sessions() != 0 {
		t.Fatal("A too small buffer must not create a session.")
	}

	buf := make([]byte, need)
	if _, n, err := sm.GetEnclavePublicKey(buf); err != nil || n != need {
		t.Fatalf("Sized buffer should work: %d, %v", n, err)
	}
}

func TestBufferSizing(t *testing.T) {
	sm, _ := testManager(t, X25519, 2048)
	defer sm.Stop()
	id, err := sm.CreateSession(0)
	if err != nil {
		t.Fatal(err)
	}
	handshake(t, sm, id)

	// exchange params
	l, _ := sm.ExchangeParamLen(id)
	short := make([]byte, l-1)
	n, err := sm.ExchangeParam(id, short)
	if !errors.Is(err, ErrBufferTooSmall) || n != l {
		t.Fatalf("Expected ErrBufferTooSmall and %d, got %v and %d", l, err, n)
	}
	if !bytes.Equal(short, make([]byte, l-1)) {
		t.Fatal("A short buffer must not be written.")
	}

	// encrypt
	for _, size := range []int{1, 5, 64, 1000} {
		plain := bytes.Repeat([]byte{'a'}, size)
		need := RequiredEncryptedLen(size)

		small := make([]byte, need-1)
		got, err := sm.Encrypt(id, plain, small)
		if !errors.Is(err, ErrBufferTooSmall) || got != need {
			t.Fatalf("Expected ErrBufferTooSmall and %d, got %v and %d", need, err, got)
		}
		if !bytes.Equal(small, make([]byte, need-1)) {
			t.Fatal("Encrypt wrote partial ciphertext.")
		}

		frame := make([]byte, need)
		n, err := sm.Encrypt(id, plain, frame)
		if err != nil || n != need {
			t.Fatalf("Encrypt with %d bytes: %d, %v", need, n, err)
		}

		got, err = sm.Decrypt(id, frame, make([]byte, size-1))
		if !errors.Is(err, ErrBufferTooSmall) || got != size {
			t.Fatalf("Expected ErrBufferTooSmall and %d, got %v and %d", size, err, got)
		}
	}
}

func TestEncryptWithoutKey(t *testing.T) {
	sm, _ := testManager(t, X25519, 2048)
	defer sm.Stop()
	id, err := sm.CreateSession(0)
	if err != nil {
		t.Fatal(err)
	}

	_, err = sm.Encrypt(id, []byte("hello"), make([]byte, 100))
	if !errors.Is(err, ErrNotReady) {
		t.Fatalf("Expected ErrNotReady, got %v", err)
	}

	garbage := []byte{1, 2, 3}
	if RequiredPlainLen(garbage) != 0 {
		t.Fatal("RequiredPlainLen of garbage should be 0.")
	}
	_, err = sm.Decrypt(id, garbage, make([]byte, 100))
	if !errors.Is(err, ErrInvalidCiphertext) {
		t.Fatalf("Expected ErrInvalidCiphertext, got %v", err)
	}

	_, err = sm.Encrypt(id+1, []byte("hello"), make([]byte, 100))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
	if _, err := sm.ExchangeParamLen(id + 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
	if err := sm.SetPeerExchangeParam(id, []byte("junk")); !errors.Is(err, ErrMalformed) {
		t.Fatalf("Expected ErrMalformed, got %v", err)
	}
}

func TestStoppedManager(t *testing.T) {
	sm, _ := testManager(t, X25519, 2048)
	id, _ := sm.CreateSession(0)
	handshake(t, sm, id)
	sm.Stop()

	if _, err := sm.Encrypt(id, []byte("hello"), make([]byte, 100)); !errors.Is(err, ErrNotReady) {
		t.Fatalf("Expected ErrNotReady after Stop, got %v", err)
	}
	if sm.Sessions() != 0 {
		t.Fatal("Stop should remove every session.")
	}
}

func TestInstallWrappedKey(t *testing.T) {
	sm, sealer := testManager(t, X25519, 2048)
	defer sm.Stop()
	id, _ := sm.CreateSession(0)

	key := testRSAKey(t)
	wrapped, err := WrapKey(sealer, key)
	if err != nil {
		t.Fatal(err)
	}
	if err := sm.InstallWrappedKey(id, wrapped); err != nil {
		t.Fatal(err)
	}
	err = sm.sessions.view(id, func(ctx *ExchangeContext) error {
		if ctx.rsaKey.N.Cmp(key.N) != 0 || ctx.rsaKey.D.Cmp(key.D) != 0 {
			t.Error("Installed key differs from the wrapped one.")
		}
		if ctx.SignatureLen() != 256 {
			t.Errorf("Expected signature length 256, got %d", ctx.SignatureLen())
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if state, _ := sm.State(id); state != StateLegacyKeyInstalled {
		t.Fatalf("Expected state %v, got %v", StateLegacyKeyInstalled, state)
	}

	if err := sm.InstallWrappedKey(id+1, wrapped); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
	if err := sm.InstallWrappedKey(id, []byte("!!not base64!!")); !errors.Is(err, ErrMalformed) {
		t.Fatalf("Expected ErrMalformed, got %v", err)
	}

	other, _ := NewGCMSealer(bytes.Repeat([]byte{1}, 32))
	foreign, _ := WrapKey(other, key)
	if err := sm.InstallWrappedKey(id, foreign); !errors.Is(err, ErrCryptoFailure) {
		t.Fatalf("Expected ErrCryptoFailure, got %v", err)
	}

	// a sealed record with an oversized field
	long := append(field(string(bytes.Repeat([]byte{'A'}, MAX_KEY_FIELD_LEN+1))), field("0F")...)
	long = append(long, field("10001")...)
	sealed, _ := sealer.Seal(long)
	blob := []byte(base64.RawURLEncoding.EncodeToString(sealed))
	if err := sm.InstallWrappedKey(id, blob); !errors.Is(err, ErrMalformed) {
		t.Fatalf("Expected ErrMalformed, got %v", err)
	}
}

func TestConcurrentEncrypt(t *testing.T) {
	sm, _ := testManager(t, X25519, 2048)
	defer sm.Stop()

	var hosts sync.Map
	ids := make([]SessionID, 4)
	for i := range ids {
		ids[i], _ = sm.CreateSession(0)
		hosts.Store(ids[i], handshake(t, sm, ids[i]))
	}

	var wg sync.WaitGroup
	for w := 0; w < 16; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			id := ids[w%len(ids)]
			v, _ := hosts.Load(id)
			host := v.(*ExchangeContext)
			for i := 0; i < 50; i++ {
				plain := []byte{byte(w), byte(i)}
				frame := make([]byte, RequiredEncryptedLen(len(plain)))
				if _, err := sm.Encrypt(id, plain, frame); err != nil {
					t.Error(err)
					return
				}
				got, err := host.Open(id, frame)
				if err != nil || !bytes.Equal(got, plain) {
					t.Errorf("Round trip failed: %v", err)
					return
				}
			}
		}(w)
	}
	wg.Wait()
}
