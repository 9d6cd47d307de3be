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


package core

import (
	"fmt"
)

// ValidateDocument validates a Document according to domain rules.
//
// Validation rules:
//   - Identity must not be empty and must fit in MaxIdentityLength bytes
//   - Content must not be empty
//   - Metadata, when present, must be JSON serializable
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if doc.Identity == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyIdentity)
	}

	if len(doc.Identity) > MaxIdentityLength {
		return fmt.Errorf("%w: %w: %d bytes", ErrInvalidDocument, ErrIdentityTooLong, len(doc.Identity))
	}

	if doc.Content == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyContent)
	}

	if _, err := SerializeMetadata(doc.Metadata); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	return nil
}

// ValidateEmbeddedDocument checks an embedded document against the
// configured embedding dimension.
func ValidateEmbeddedDocument(doc *EmbeddedDocument, dimension int) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}
	if doc.Identity == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyIdentity)
	}
	if len(doc.Vector) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyVector)
	}
	if len(doc.Vector) != dimension {
		return fmt.Errorf("%w: vector has %d dimensions, expected %d", ErrInvalidDocument, len(doc.Vector), dimension)
	}
	return nil
}
