// Package journal is the append-only, hash-chained record of committed calls.
//
// Each entry commits to the previous entry's hash and to the state hash it
// produced, so a journal can be verified on its own and replayed to rebuild
// the exact state.
package journal

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/gowebpki/jcs"

	"github.com/Mindburn-Labs/charter/pkg/identity"
	"github.com/Mindburn-Labs/charter/pkg/money"
)

// GenesisHash is the PrevHash of the first entry.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// Compatibility is the range of engine versions whose journals replay here.
const Compatibility = "^1"

var ErrCorrupt = errors.New("journal: chain verification failed")

// Entry is one committed call.
type Entry struct {
	Sequence      uint64            `json:"sequence"`
	CallID        string            `json:"call_id"`
	Op            string            `json:"op"`
	Caller        identity.Identity `json:"caller"`
	Value         money.Amount      `json:"value"`
	Args          json.RawMessage   `json:"args"`
	StateHash     string            `json:"state_hash"`
	PrevHash      string            `json:"prev_hash"`
	Hash          string            `json:"hash,omitempty"`
	EngineVersion string            `json:"engine_version"`
	CommittedAt   time.Time         `json:"committed_at"`
}

// Journal stores entries. Append assigns Sequence, PrevHash and Hash and
// returns the sealed entry. Nothing is stored when Append fails.
type Journal interface {
	Append(ctx context.Context, e Entry) (Entry, error)
	Entries(ctx context.Context) ([]Entry, error)
}

// ComputeHash returns the hex SHA-256 of the canonical entry without its
// Hash field.
func ComputeHash(e Entry) (string, error) {
	e.Hash = ""
	if len(e.Args) == 0 {
		e.Args = json.RawMessage("null")
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("journal: marshal entry %d: %w", e.Sequence, err)
	}
	canon, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("journal: canonicalize entry %d: %w", e.Sequence, err)
	}
	sum := sha256.Sum256(canon)
	return hex.EncodeToString(sum[:]), nil
}

// seal fills the chain fields of e as the successor of (seq, prev).
func seal(e Entry, seq uint64, prev string) (Entry, error) {
	e.Sequence = seq + 1
	e.PrevHash = prev
	e.CommittedAt = e.CommittedAt.UTC()
	h, err := ComputeHash(e)
	if err != nil {
		return Entry{}, err
	}
	e.Hash = h
	return e, nil
}

// Verify checks sequence numbering, hash links and entry hashes.
func Verify(entries []Entry) error {
	prev := GenesisHash
	for i, e := range entries {
		if e.Sequence != uint64(i)+1 {
			return fmt.Errorf("%w: entry %d has sequence %d", ErrCorrupt, i, e.Sequence)
		}
		if e.PrevHash != prev {
			return fmt.Errorf("%w: sequence %d links to %s, want %s", ErrCorrupt, e.Sequence, e.PrevHash, prev)
		}
		want, err := ComputeHash(e)
		if err != nil {
			return err
		}
		if e.Hash != want {
			return fmt.Errorf("%w: sequence %d hash mismatch", ErrCorrupt, e.Sequence)
		}
		prev = e.Hash
	}
	return nil
}

// CheckCompatible reports whether entries written by version can be replayed.
func CheckCompatible(version string) error {
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("journal: engine version %q: %w", version, err)
	}
	c, err := semver.NewConstraint(Compatibility)
	if err != nil {
		return fmt.Errorf("journal: constraint %q: %w", Compatibility, err)
	}
	if !c.Check(v) {
		return fmt.Errorf("journal: engine version %s is outside %s", v, Compatibility)
	}
	return nil
}
