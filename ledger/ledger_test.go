package ledger

import (
	"testing"

	"github.com/poiesic/vecport/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open("", true)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestLedger_MarkAndRead(t *testing.T) {
	l := openTestLedger(t)

	err := l.Mark(core.CollectionEmbeddings, []int64{1, 2, 5}, "digest-a")
	require.NoError(t, err)

	ids, err := l.ImportedIDs(core.CollectionEmbeddings, "digest-a")
	require.NoError(t, err)

	assert.Len(t, ids, 3)
	assert.Contains(t, ids, int64(1))
	assert.Contains(t, ids, int64(2))
	assert.Contains(t, ids, int64(5))
	assert.NotContains(t, ids, int64(3))
}

func TestLedger_DigestBinding(t *testing.T) {
	l := openTestLedger(t)

	require.NoError(t, l.Mark(core.CollectionEmbeddings, []int64{1, 2}, "digest-a"))

	// A different snapshot digest invalidates the markers.
	ids, err := l.ImportedIDs(core.CollectionEmbeddings, "digest-b")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestLedger_CollectionsAreIsolated(t *testing.T) {
	l := openTestLedger(t)

	require.NoError(t, l.Mark(core.CollectionChunks, []int64{7}, "digest-a"))

	ids, err := l.ImportedIDs(core.CollectionEmbeddings, "digest-a")
	require.NoError(t, err)
	assert.Empty(t, ids)

	ids, err = l.ImportedIDs(core.CollectionChunks, "digest-a")
	require.NoError(t, err)
	assert.Contains(t, ids, int64(7))
}

func TestLedger_MarkIsIdempotent(t *testing.T) {
	l := openTestLedger(t)

	require.NoError(t, l.Mark(core.CollectionEmbeddings, []int64{4}, "digest-a"))
	require.NoError(t, l.Mark(core.CollectionEmbeddings, []int64{4}, "digest-a"))

	ids, err := l.ImportedIDs(core.CollectionEmbeddings, "digest-a")
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}

func TestLedger_MarkEmptyIsNoop(t *testing.T) {
	l := openTestLedger(t)
	assert.NoError(t, l.Mark(core.CollectionEmbeddings, nil, "digest-a"))
}

func TestEntryRoundTrip(t *testing.T) {
	entry := Entry{Digest: "abc123", ImportedAt: 1750000000}

	data := MarshalEntry(entry)
	decoded, err := UnmarshalEntry(data)
	require.NoError(t, err)
	assert.Equal(t, entry, decoded)
}

func TestUnmarshalEntry_Truncated(t *testing.T) {
	data := MarshalEntry(Entry{Digest: "abc123", ImportedAt: 1})
	_, err := UnmarshalEntry(data[:2])
	assert.Error(t, err)
}
