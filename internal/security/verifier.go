package security

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/scrypt"
	"golang.org/x/text/unicode/norm"
)

// Params are the scrypt cost parameters. The digest format does not carry
// them, so every verifier reading a digest must use the same values.
type Params struct {
	N       int
	R       int
	P       int
	SaltLen int
	KeyLen  int
}

// DefaultParams matches the stored digests of existing deployments.
var DefaultParams = Params{N: 1 << 15, R: 8, P: 1, SaltLen: 16, KeyLen: 64}

// Verifier hashes and checks low-entropy secrets (guest PINs, organizer
// passwords). It is safe for concurrent use.
type Verifier struct {
	params Params
	pepper []byte
}

func NewVerifier(params Params, pepper string) *Verifier {
	return &Verifier{params: params, pepper: []byte(pepper)}
}

// Hash returns "hex(salt):hex(key)" for the NFKC-normalized secret.
func (v *Verifier) Hash(secret string) (string, error) {
	salt := make([]byte, v.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("read salt: %w", err)
	}
	key, err := v.derive(secret, salt, v.params.KeyLen)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(salt) + ":" + hex.EncodeToString(key), nil
}

// Verify reports whether secret matches digest. Malformed digests never match.
func (v *Verifier) Verify(secret, digest string) bool {
	saltHex, keyHex, ok := strings.Cut(digest, ":")
	if !ok || saltHex == "" || keyHex == "" {
		return false
	}
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return false
	}
	stored, err := hex.DecodeString(keyHex)
	if err != nil || len(stored) == 0 {
		return false
	}
	derived, err := v.derive(secret, salt, len(stored))
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(derived, stored) == 1
}

// Fingerprint is a deterministic keyed digest of secret within scope. It
// backs uniqueness constraints and is useless without the server pepper.
func (v *Verifier) Fingerprint(scope, secret string) string {
	mac := hmac.New(sha256.New, v.pepper)
	mac.Write([]byte(scope))
	mac.Write([]byte{0})
	mac.Write([]byte(normalize(secret)))
	return hex.EncodeToString(mac.Sum(nil))
}

func (v *Verifier) derive(secret string, salt []byte, keyLen int) ([]byte, error) {
	key, err := scrypt.Key([]byte(normalize(secret)), salt, v.params.N, v.params.R, v.params.P, keyLen)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return key, nil
}

func normalize(s string) string {
	return norm.NFKC.String(s)
}
