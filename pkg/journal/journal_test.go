package journal

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/charter/pkg/identity"
	"github.com/Mindburn-Labs/charter/pkg/money"
)

var fixedTime = time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.UTC)

func sampleEntry(op string, args string) Entry {
	return Entry{
		CallID:        op + "-call",
		Op:            op,
		Caller:        identity.DevAccounts(1)[0],
		Value:         money.Zero,
		Args:          json.RawMessage(args),
		StateHash:     "abc123",
		EngineVersion: "1.0.0",
		CommittedAt:   fixedTime,
	}
}

func appendAll(t *testing.T, j Journal, entries ...Entry) []Entry {
	t.Helper()
	ctx := context.Background()
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		sealed, err := j.Append(ctx, e)
		require.NoError(t, err)
		out = append(out, sealed)
	}
	return out
}

func TestMemory_AppendChains(t *testing.T) {
	j := NewMemory()
	sealed := appendAll(t, j,
		sampleEntry("register", `{"name":"Alice"}`),
		sampleEntry("storeData", `{"key":"key1","value":"value1"}`),
	)

	assert.Equal(t, uint64(1), sealed[0].Sequence)
	assert.Equal(t, GenesisHash, sealed[0].PrevHash)
	assert.Equal(t, uint64(2), sealed[1].Sequence)
	assert.Equal(t, sealed[0].Hash, sealed[1].PrevHash)
	assert.Len(t, sealed[0].Hash, 64)

	entries, err := j.Entries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sealed, entries)
	assert.NoError(t, Verify(entries))
}

func TestMemory_FailNextStoresNothing(t *testing.T) {
	j := NewMemory()
	boom := errors.New("disk full")
	j.FailNext(boom)

	_, err := j.Append(context.Background(), sampleEntry("register", `{}`))
	assert.ErrorIs(t, err, boom)

	entries, _ := j.Entries(context.Background())
	assert.Empty(t, entries)

	sealed := appendAll(t, j, sampleEntry("register", `{}`))
	assert.Equal(t, uint64(1), sealed[0].Sequence)
}

func TestMemory_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMemory().Append(ctx, sampleEntry("register", `{}`))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestComputeHash_IgnoresArgFormatting(t *testing.T) {
	a := sampleEntry("storeData", `{"key":"k","value":"v"}`)
	b := sampleEntry("storeData", `{ "value": "v", "key": "k" }`)
	ha, err := ComputeHash(a)
	require.NoError(t, err)
	hb, err := ComputeHash(b)
	require.NoError(t, err)
	assert.Equal(t, ha, hb)
}

func TestComputeHash_IgnoresHashField(t *testing.T) {
	e := sampleEntry("register", `{}`)
	h1, _ := ComputeHash(e)
	e.Hash = "something"
	h2, _ := ComputeHash(e)
	assert.Equal(t, h1, h2)
}

func TestVerify_DetectsTampering(t *testing.T) {
	tests := []struct {
		name   string
		mutate func([]Entry)
	}{
		{"value changed", func(es []Entry) { es[0].Value = money.Ether(1) }},
		{"args changed", func(es []Entry) { es[1].Args = json.RawMessage(`{"name":"Mallory"}`) }},
		{"state hash changed", func(es []Entry) { es[1].StateHash = "ffff" }},
		{"broken link", func(es []Entry) { es[1].PrevHash = GenesisHash }},
		{"resequenced", func(es []Entry) { es[1].Sequence = 5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := NewMemory()
			appendAll(t, j, sampleEntry("register", `{"name":"Alice"}`), sampleEntry("register", `{"name":"Bob"}`))
			entries, _ := j.Entries(context.Background())

			tt.mutate(entries)
			assert.ErrorIs(t, Verify(entries), ErrCorrupt)
		})
	}
}

func TestVerify_DroppedEntry(t *testing.T) {
	j := NewMemory()
	appendAll(t, j, sampleEntry("a", `{}`), sampleEntry("b", `{}`), sampleEntry("c", `{}`))
	entries, _ := j.Entries(context.Background())

	assert.ErrorIs(t, Verify([]Entry{entries[0], entries[2]}), ErrCorrupt)
	assert.NoError(t, Verify(nil))
}

func TestCheckCompatible(t *testing.T) {
	assert.NoError(t, CheckCompatible("1.0.0"))
	assert.NoError(t, CheckCompatible("1.4.2"))
	assert.Error(t, CheckCompatible("2.0.0"))
	assert.Error(t, CheckCompatible("0.9.0"))
	assert.Error(t, CheckCompatible("not-a-version"))
}
