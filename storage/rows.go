package storage

import (
	"fmt"

	"github.com/poiesic/vectorsink/core"
)

// LastWriteWins collapses rows sharing an identity so that each identity
// appears once, carrying the values of its last occurrence. The surviving
// rows keep the position of each identity's first occurrence.
//
// A single multi-row upsert statement may not touch the same key twice
// (Postgres rejects it outright), so stores apply this before writing.
func LastWriteWins(rows []core.EmbeddedDocument) []core.EmbeddedDocument {
	if len(rows) < 2 {
		return rows
	}
	pos := make(map[string]int, len(rows))
	out := make([]core.EmbeddedDocument, 0, len(rows))
	for _, row := range rows {
		if i, ok := pos[row.Identity]; ok {
			out[i] = row
			continue
		}
		pos[row.Identity] = len(out)
		out = append(out, row)
	}
	return out
}

// ValidateRows checks every row against the store's embedding dimension.
func ValidateRows(rows []core.EmbeddedDocument, dimension int) error {
	for i := range rows {
		row := &rows[i]
		if row.Identity == "" {
			return fmt.Errorf("%w: row %d: %w", ErrInvalidRow, i, core.ErrEmptyIdentity)
		}
		if len(row.Vector) != dimension {
			return fmt.Errorf("%w: row %q has %d dimensions, table has %d",
				ErrDimensionMismatch, row.Identity, len(row.Vector), dimension)
		}
	}
	return nil
}

// CloneRow returns a deep copy of row, so stores never alias caller memory.
func CloneRow(row core.EmbeddedDocument) core.EmbeddedDocument {
	out := row
	if row.Metadata != nil {
		m := *row.Metadata
		out.Metadata = &m
	}
	if row.Vector != nil {
		out.Vector = append([]float32(nil), row.Vector...)
	}
	return out
}
