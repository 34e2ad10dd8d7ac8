package ledger

import (
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// Entry is one imported-record marker. Digest binds the marker to the
// exact snapshot artifact it was written for; markers from another
// snapshot must not suppress writes.
type Entry struct {
	Digest     string
	ImportedAt int64 // unix seconds
}

// EntryMUS serializes Entry values in the MUS format.
var EntryMUS = entryMUS{}

type entryMUS struct{}

func (s entryMUS) Marshal(entry Entry, bs []byte) (n int) {
	n = ord.String.Marshal(entry.Digest, bs)
	n += varint.Int64.Marshal(entry.ImportedAt, bs[n:])
	return n
}

func (s entryMUS) Unmarshal(bs []byte) (entry Entry, n int, err error) {
	entry.Digest, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return entry, n, err
	}
	var n1 int
	entry.ImportedAt, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	return entry, n, err
}

func (s entryMUS) Size(entry Entry) (size int) {
	size = ord.String.Size(entry.Digest)
	size += varint.Int64.Size(entry.ImportedAt)
	return size
}

// MarshalEntry serializes an Entry to bytes.
func MarshalEntry(entry Entry) []byte {
	buf := make([]byte, EntryMUS.Size(entry))
	EntryMUS.Marshal(entry, buf)
	return buf
}

// UnmarshalEntry deserializes an Entry from bytes.
func UnmarshalEntry(data []byte) (Entry, error) {
	entry, _, err := EntryMUS.Unmarshal(data)
	return entry, err
}
