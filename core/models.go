package core

import (
	"encoding/hex"

	"github.com/go-crypt/x/blake2b"
)

// MaxIdentityLength matches the width of the id column (VARCHAR(128)).
const MaxIdentityLength = 128

// Document is a unit of input to the ingestion pipeline.
// Documents are owned by the caller and must not be modified once handed over.
type Document struct {
	Identity string         // Globally unique logical key
	Content  string         // Text that gets embedded and stored
	Metadata map[string]any // Optional; nil means "no metadata"
}

// EmbeddedDocument is a Document after its embedding has been computed.
// It is also the row shape stores write and read back.
type EmbeddedDocument struct {
	Identity string
	Content  string
	Metadata *string // Serialized JSON, nil when the source had no metadata
	Vector   []float32
}

// Batch is an ordered group of embedded documents committed together.
type Batch struct {
	Index     int
	Documents []EmbeddedDocument
}

// Identities returns the member identities in batch order.
func (b *Batch) Identities() []string {
	ids := make([]string, len(b.Documents))
	for i := range b.Documents {
		ids[i] = b.Documents[i].Identity
	}
	return ids
}

// Len returns the number of documents in the batch.
func (b *Batch) Len() int {
	return len(b.Documents)
}

// ClassificationResult partitions a batch into rows that are new to the
// store and rows that already exist.
type ClassificationResult struct {
	ToInsert []EmbeddedDocument
	ToUpdate []EmbeddedDocument
}

// Len returns the total number of classified documents.
func (r *ClassificationResult) Len() int {
	return len(r.ToInsert) + len(r.ToUpdate)
}

// BatchKey returns a short, stable fingerprint of an ordered identity list
// using BLAKE2b. Identical identity lists always produce identical keys.
func BatchKey(identities []string) string {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	for _, id := range identities {
		h.Write([]byte(id))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
