// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package storage

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/vectorsink/core"
)

// DocumentMUS serializes an EmbeddedDocument with the MUS format.
// Layout: identity, content, metadata presence flag, metadata (if present),
// vector length, vector elements.
var DocumentMUS = documentMUS{}

type documentMUS struct{}

func (documentMUS) Marshal(v core.EmbeddedDocument, bs []byte) (n int) {
	n = ord.String.Marshal(v.Identity, bs)
	n += ord.String.Marshal(v.Content, bs[n:])
	n += ord.Bool.Marshal(v.Metadata != nil, bs[n:])
	if v.Metadata != nil {
		n += ord.String.Marshal(*v.Metadata, bs[n:])
	}
	n += varint.Int.Marshal(len(v.Vector), bs[n:])
	for _, f := range v.Vector {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	return n
}

func (documentMUS) Unmarshal(bs []byte) (v core.EmbeddedDocument, n int, err error) {
	var n1 int
	v.Identity, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	v.Content, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var present bool
	present, n1, err = ord.Bool.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	if present {
		var meta string
		meta, n1, err = ord.String.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
		v.Metadata = &meta
	}
	var length int
	length, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	if length < 0 || length > (len(bs)-n)/4 {
		err = ErrTruncatedData
		return
	}
	v.Vector = make([]float32, length)
	for i := range v.Vector {
		v.Vector[i], n1, err = raw.Float32.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	return
}

func (documentMUS) Size(v core.EmbeddedDocument) (size int) {
	size = ord.String.Size(v.Identity)
	size += ord.String.Size(v.Content)
	size += ord.Bool.Size(v.Metadata != nil)
	if v.Metadata != nil {
		size += ord.String.Size(*v.Metadata)
	}
	size += varint.Int.Size(len(v.Vector))
	for _, f := range v.Vector {
		size += raw.Float32.Size(f)
	}
	return size
}

// MarshalDocument serializes an EmbeddedDocument to bytes.
func MarshalDocument(doc *core.EmbeddedDocument) []byte {
	buf := make([]byte, DocumentMUS.Size(*doc))
	DocumentMUS.Marshal(*doc, buf)
	return buf
}

// UnmarshalDocument deserializes an EmbeddedDocument from bytes.
func UnmarshalDocument(data []byte) (*core.EmbeddedDocument, error) {
	doc, n, err := DocumentMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	if n != len(data) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrSerializationFailed, len(data)-n)
	}
	return &doc, nil
}

// EncodeEmbedding packs a vector as little-endian float32s, the BLOB
// layout used by the sqlite store.
func EncodeEmbedding(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// DecodeEmbedding is the inverse of EncodeEmbedding.
func DecodeEmbedding(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("%w: embedding blob of %d bytes", ErrTruncatedData, len(data))
	}
	v := make([]float32, len(data)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return v, nil
}
