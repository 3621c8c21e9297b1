package secure_channel

import (
	"bytes"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"math/big"
	"strings"
	"testing"
)

func reverse(b []byte) {
	for left, right := 0, len(b)-1; left < right; left, right = left+1, right-1 {
		b[left], b[right] = b[right], b[left]
	}
}

// little endian hex to big int
func leHex(t *testing.T, s string) *big.Int {
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatal(err)
	}
	reverse(b)
	return new(big.Int).SetBytes(b)
}

func TestKeyDerivation(t *testing.T) {
	// The inputs to this were generated using Python
	p1 := "410e56df2bf25cb4008689565e359e0869def9393ddc57f0c6beccfb99bec136"
	x2 := "46c25c041be5fe65390f9cd71b0a656359e8def156316a4300a726ab8eb86ea4"
	y2 := "0d6b405fca6192700ed19188ea6486b5fbaa1ea4a3d8bbd46152ee1f8bfc1f9d"
	// expected derived keys
	kb, _ := hex.DecodeString("7082b5102f5080aba92afb1e3f6c9991")
	db, _ := hex.DecodeString("2c81f49a644efcaedba530276fe8e268")

	curve := elliptic.P256()
	px, py := leHex(t, x2), leHex(t, y2)
	if !curve.IsOnCurve(px, py) {
		t.Fatal("Point not on the curve.")
	}

	x, _ := curve.ScalarMult(px, py, leHex(t, p1).Bytes())
	// the shared secret is little endian too
	shared := x.FillBytes(make([]byte, 32))
	reverse(shared)

	base, err := kdk(shared)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(base, kb) {
		t.Errorf("Base key derivation failed: %x", base)
	}

	labelKey, err := deriveLabelKeyFromBase(base, []byte("helloworld"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(labelKey, db) {
		t.Errorf("Label key derivation failed: %x", labelKey)
	}
}

func TestRSAPublicKeyPEMLen(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	pem := marshalRSAPublicKey(&key.PublicKey)
	if len(pem) != rsaPublicKeyPEMLen(2048) {
		t.Fatalf("PEM is %d bytes, predicted %d", len(pem), rsaPublicKeyPEMLen(2048))
	}
	if !strings.HasPrefix(string(pem), "-----BEGIN RSA PUBLIC KEY-----") {
		t.Fatalf("Unexpected PEM header: %s", pem)
	}
}

func testRSAKey(t *testing.T) *rsa.PrivateKey {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	return key
}

func TestKeyRecord(t *testing.T) {
	key := testRSAKey(t)

	parsed, err := parseKeyRecord(packKeyRecord(key))
	if err != nil {
		t.Fatal(err)
	}
	if parsed.D.Cmp(key.D) != 0 || parsed.N.Cmp(key.N) != 0 || parsed.E != key.E {
		t.Fatal("Parsed key differs from the packed one.")
	}
	if parsed.Size() != 256 {
		t.Fatalf("Expected a 256 byte signature, got %d", parsed.Size())
	}
}

func field(s string) []byte {
	out := make([]byte, 4+len(s))
	binary.LittleEndian.PutUint32(out, uint32(len(s)))
	copy(out[4:], s)
	return out
}

func TestKeyRecordRejectsBadInput(t *testing.T) {
	good := packKeyRecord(testRSAKey(t))
	long := field(strings.Repeat("A", MAX_KEY_FIELD_LEN+1))

	cases := map[string][]byte{
		"empty":     {},
		"truncated": good[:len(good)-3],
		"trailing":  append(append([]byte{}, good...), 0, 0),
		"oversized": append(append(long, field("0F")...), field("10001")...),
		"not hex":   append(append(field("zz"), field("0F")...), field("10001")...),
		"d >= n":    append(append(field("FF"), field("0F")...), field("10001")...),
		"bad e":     append(append(field("01"), field("0F")...), field("1")...),
	}
	for name, rec := range cases {
		if _, err := parseKeyRecord(rec); !errors.Is(err, ErrMalformed) {
			t.Errorf("%s: expected ErrMalformed, got %v", name, err)
		}
	}
}
