package password

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func testParams() Params {
	return Params{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func newTestHasher(t *testing.T, p Params) *Hasher {
	t.Helper()
	h, err := NewHasher(p)
	if err != nil {
		t.Fatalf("NewHasher error: %v", err)
	}
	return h
}

func TestHashAndVerify(t *testing.T) {
	h := newTestHasher(t, testParams())

	hash, err := h.Hash("P@ssw0rd-Ascii")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected PHC prefix: %s", hash)
	}

	ok, err := h.Verify("P@ssw0rd-Ascii", hash)
	if err != nil || !ok {
		t.Fatalf("expected verification to succeed, ok=%v err=%v", ok, err)
	}

	ok, err = Verify("wrong-password", hash)
	if err != nil || ok {
		t.Fatalf("expected wrong password to fail cleanly, ok=%v err=%v", ok, err)
	}
}

func TestHashesAreSalted(t *testing.T) {
	h := newTestHasher(t, testParams())
	a, _ := h.Hash("same-password")
	b, _ := h.Hash("same-password")
	if a == b {
		t.Fatal("two hashes of the same password must differ")
	}
}

func TestVerifyPaddedBase64(t *testing.T) {
	h := newTestHasher(t, testParams())
	hash, err := h.Hash("Padded-Passw0rd")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	parts := strings.Split(hash, "$")
	phc, err := parsePHC(hash)
	if err != nil {
		t.Fatalf("parsePHC: %v", err)
	}
	parts[4] = b64Padded(phc.salt)
	parts[5] = b64Padded(phc.key)
	padded := strings.Join(parts, "$")

	ok, err := Verify("Padded-Passw0rd", padded)
	if err != nil || !ok {
		t.Fatalf("expected padded encoding to verify, ok=%v err=%v", ok, err)
	}
}

func TestVerifyBcrypt(t *testing.T) {
	raw, err := bcrypt.GenerateFromPassword([]byte("Legacy-Passw0rd"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	hash := string(raw)

	ok, err := Verify("Legacy-Passw0rd", hash)
	if err != nil || !ok {
		t.Fatalf("expected bcrypt verification to succeed, ok=%v err=%v", ok, err)
	}
	ok, err = Verify("nope", hash)
	if err != nil || ok {
		t.Fatalf("expected bcrypt mismatch, ok=%v err=%v", ok, err)
	}

	up, err := newTestHasher(t, testParams()).NeedsUpgrade(hash)
	if err != nil || !up {
		t.Fatal("bcrypt hashes must need an upgrade")
	}
}

func TestVerifyUnsupportedAndMalformed(t *testing.T) {
	cases := map[string]error{
		"not-a-hash":                       ErrUnsupportedHash,
		"$argon2i$v=19$m=8192,t=1,p=1$a$b": ErrUnsupportedHash,
		"$argon2id$v=19$m=8192,t=1$a$b":    ErrMalformedHash,
		"$argon2id$v=19$m=1,t=1,p=1$a$b":   ErrMalformedHash,
		"$argon2id$v=19$m=8192,t=1,p=1":    ErrMalformedHash,
		"$2b$10$short":                     ErrMalformedHash,
	}
	for in, want := range cases {
		if _, err := Verify("password", in); !errors.Is(err, want) {
			t.Fatalf("%q: expected %v, got %v", in, want, err)
		}
	}
}

func TestVerifyWrongVersion(t *testing.T) {
	h := newTestHasher(t, testParams())
	hash, err := h.Hash("version-test")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	wrongVersion := strings.Replace(hash, "$v=19$", "$v=18$", 1)
	if _, err := Verify("version-test", wrongVersion); !errors.Is(err, ErrUnsupportedHash) {
		t.Fatalf("expected unsupported version, got %v", err)
	}
}

func TestNeedsUpgrade(t *testing.T) {
	weak := newTestHasher(t, testParams())
	hash, err := weak.Hash("test-password")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	stronger := testParams()
	stronger.Time = 2
	up, err := newTestHasher(t, stronger).NeedsUpgrade(hash)
	if err != nil || !up {
		t.Fatalf("expected upgrade for weaker parameters, up=%v err=%v", up, err)
	}

	up, err = weak.NeedsUpgrade(hash)
	if err != nil || up {
		t.Fatalf("expected no upgrade for current parameters, up=%v err=%v", up, err)
	}
}

func TestHashEmptyPassword(t *testing.T) {
	if _, err := newTestHasher(t, testParams()).Hash(""); err == nil {
		t.Fatal("expected empty password hash to fail")
	}
}

func TestNewHasherRejectsWeakParams(t *testing.T) {
	mutations := []func(*Params){
		func(p *Params) { p.Memory = 1024 },
		func(p *Params) { p.Time = 0 },
		func(p *Params) { p.Parallelism = 0 },
		func(p *Params) { p.SaltLength = 8 },
		func(p *Params) { p.KeyLength = 8 },
	}
	for i, m := range mutations {
		p := DefaultParams()
		m(&p)
		if _, err := NewHasher(p); err == nil {
			t.Fatalf("mutation %d: expected error", i)
		}
	}
	if _, err := NewHasher(DefaultParams()); err != nil {
		t.Fatalf("default params must be valid: %v", err)
	}
}

func b64Padded(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}
