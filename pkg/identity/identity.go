// Package identity defines the opaque caller token used by the contract.
//
// An Identity is a 20-byte address. It is comparable, so it can key maps and
// be compared with ==. The engine never verifies signatures; the transport
// layer resolves and authenticates callers before a call arrives.
package identity

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Size is the byte length of an Identity.
const Size = 20

// Identity is an address-like caller token.
type Identity [Size]byte

// Zero is the unset identity. It is never a valid caller or recipient.
var Zero Identity

// Parse decodes a 0x-prefixed, 40 hex digit address. Case is ignored.
func Parse(s string) (Identity, error) {
	var id Identity
	raw := strings.TrimSpace(s)
	if !strings.HasPrefix(raw, "0x") && !strings.HasPrefix(raw, "0X") {
		return id, fmt.Errorf("identity %q: missing 0x prefix", s)
	}
	raw = raw[2:]
	if len(raw) != Size*2 {
		return id, fmt.Errorf("identity %q: expected %d hex digits, got %d", s, Size*2, len(raw))
	}
	b, err := hex.DecodeString(raw)
	if err != nil {
		return id, fmt.Errorf("identity %q: %w", s, err)
	}
	copy(id[:], b)
	return id, nil
}

// MustParse is Parse for constants and tests.
func MustParse(s string) Identity {
	id, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}

// FromPublicKey derives an address as the last 20 bytes of Keccak-256(pub).
func FromPublicKey(pub []byte) Identity {
	h := sha3.NewLegacyKeccak256()
	_, _ = h.Write(pub)
	sum := h.Sum(nil)

	var id Identity
	copy(id[:], sum[len(sum)-Size:])
	return id
}

// IsZero reports whether id is the unset identity.
func (id Identity) IsZero() bool {
	return id == Zero
}

// String returns the lowercase 0x-prefixed hex form.
func (id Identity) String() string {
	return "0x" + hex.EncodeToString(id[:])
}

// Short returns an abbreviated form for log lines.
func (id Identity) Short() string {
	s := id.String()
	return s[:6] + "…" + s[len(s)-4:]
}

func (id Identity) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *Identity) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// DevAccounts returns n deterministic identities for local runs and tests.
// Account i is derived from an ed25519 key seeded with sha256("charter/dev/<i>").
func DevAccounts(n int) []Identity {
	out := make([]Identity, n)
	for i := 0; i < n; i++ {
		seed := sha256.Sum256([]byte(fmt.Sprintf("charter/dev/%d", i)))
		priv := ed25519.NewKeyFromSeed(seed[:])
		pub, _ := priv.Public().(ed25519.PublicKey)
		out[i] = FromPublicKey(pub)
	}
	return out
}
