package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
	argon2ID              = "argon2id"
)

var (
	// ErrMalformedHash is returned for a stored hash that cannot be parsed.
	ErrMalformedHash = errors.New("malformed password hash")
	// ErrUnsupportedHash is returned for a hash in an unknown scheme.
	ErrUnsupportedHash = errors.New("unsupported password hash")
)

// Params are the Argon2id cost parameters. Memory is in KiB.
type Params struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultParams returns 64 MiB, 3 passes, 2 lanes, 16 byte salt, 32 byte key.
func DefaultParams() Params {
	return Params{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func (p Params) validate() error {
	switch {
	case p.Memory < minMemoryKB:
		return errors.New("argon2 memory must be >= 8192 KiB")
	case p.Time < minTimeCost:
		return errors.New("argon2 time must be >= 1")
	case p.Parallelism < minParallelism:
		return errors.New("argon2 parallelism must be >= 1")
	case p.SaltLength < minSaltLength:
		return errors.New("argon2 salt length must be >= 16")
	case p.KeyLength < minKeyLength:
		return errors.New("argon2 key length must be >= 16")
	}
	return nil
}

// Hasher produces Argon2id hashes with fixed parameters.
type Hasher struct {
	params Params
}

// NewHasher validates p and returns a Hasher.
func NewHasher(p Params) (*Hasher, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &Hasher{params: p}, nil
}

// Hash returns the PHC encoding of password. The password bytes are used as
// given, without Unicode normalization.
func (h *Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", errors.New("password must not be empty")
	}

	salt := make([]byte, h.params.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}
	key := argon2.IDKey([]byte(password), salt, h.params.Time, h.params.Memory, h.params.Parallelism, h.params.KeyLength)

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2ID,
		argon2.Version,
		h.params.Memory,
		h.params.Time,
		h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify checks password against encoded, which may be Argon2id or bcrypt.
func (h *Hasher) Verify(password, encoded string) (bool, error) {
	return Verify(password, encoded)
}

// NeedsUpgrade reports whether encoded should be replaced by a fresh Hash.
// bcrypt hashes always need an upgrade.
func (h *Hasher) NeedsUpgrade(encoded string) (bool, error) {
	if isBcrypt(encoded) {
		return true, nil
	}
	phc, err := parsePHC(encoded)
	if err != nil {
		return false, err
	}
	weaker := phc.params.Memory < h.params.Memory ||
		phc.params.Time < h.params.Time ||
		phc.params.Parallelism < h.params.Parallelism ||
		phc.params.KeyLength != h.params.KeyLength
	return weaker, nil
}

// Verify checks password against an Argon2id or bcrypt hash. A wrong password
// returns false with a nil error. An error means the hash itself is unusable.
func Verify(password, encoded string) (bool, error) {
	switch {
	case strings.HasPrefix(encoded, "$"+argon2ID+"$"):
		return verifyArgon2(password, encoded)
	case isBcrypt(encoded):
		return verifyBcrypt(password, encoded)
	default:
		return false, ErrUnsupportedHash
	}
}

func verifyArgon2(password, encoded string) (bool, error) {
	phc, err := parsePHC(encoded)
	if err != nil {
		return false, err
	}
	p := phc.params
	computed := argon2.IDKey([]byte(password), phc.salt, p.Time, p.Memory, p.Parallelism, p.KeyLength)
	return subtle.ConstantTimeCompare(computed, phc.key) == 1, nil
}

type phcHash struct {
	params Params
	salt   []byte
	key    []byte
}

func parsePHC(encoded string) (*phcHash, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, fmt.Errorf("%w: expected 5 PHC fields", ErrMalformedHash)
	}
	if parts[1] != argon2ID {
		return nil, ErrUnsupportedHash
	}
	if parts[2] != "v="+strconv.Itoa(argon2.Version) {
		return nil, fmt.Errorf("%w: argon2 version %q", ErrUnsupportedHash, parts[2])
	}

	var out phcHash
	if err := parseArgon2Params(parts[3], &out.params); err != nil {
		return nil, err
	}

	salt, err := decodeB64(parts[4])
	if err != nil || len(salt) < int(minSaltLength) {
		return nil, fmt.Errorf("%w: salt", ErrMalformedHash)
	}
	key, err := decodeB64(parts[5])
	if err != nil || len(key) == 0 {
		return nil, fmt.Errorf("%w: key", ErrMalformedHash)
	}

	out.salt = salt
	out.key = key
	out.params.SaltLength = uint32(len(salt))
	out.params.KeyLength = uint32(len(key))
	return &out, nil
}

// decodeB64 accepts both unpadded (PHC standard) and padded base64.
func decodeB64(s string) ([]byte, error) {
	if strings.HasSuffix(s, "=") {
		return base64.StdEncoding.DecodeString(s)
	}
	return base64.RawStdEncoding.DecodeString(s)
}

func parseArgon2Params(field string, p *Params) error {
	pairs := strings.Split(field, ",")
	if len(pairs) != 3 {
		return fmt.Errorf("%w: parameters", ErrMalformedHash)
	}

	seen := map[string]bool{}
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || seen[name] {
			return fmt.Errorf("%w: parameter %q", ErrMalformedHash, pair)
		}
		seen[name] = true

		switch name {
		case "m":
			v, err := strconv.ParseUint(value, 10, 32)
			if err != nil || uint32(v) < minMemoryKB {
				return fmt.Errorf("%w: memory", ErrMalformedHash)
			}
			p.Memory = uint32(v)
		case "t":
			v, err := strconv.ParseUint(value, 10, 32)
			if err != nil || uint32(v) < minTimeCost {
				return fmt.Errorf("%w: time", ErrMalformedHash)
			}
			p.Time = uint32(v)
		case "p":
			v, err := strconv.ParseUint(value, 10, 8)
			if err != nil || uint8(v) < minParallelism {
				return fmt.Errorf("%w: parallelism", ErrMalformedHash)
			}
			p.Parallelism = uint8(v)
		default:
			return fmt.Errorf("%w: parameter %q", ErrMalformedHash, name)
		}
	}
	return nil
}
