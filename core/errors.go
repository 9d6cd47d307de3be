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

import "errors"

// Domain validation errors
var (
	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrEmptyIdentity indicates the Identity field is empty.
	ErrEmptyIdentity = errors.New("identity cannot be empty")

	// ErrEmptyContent indicates the Content field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrIdentityTooLong indicates the Identity exceeds MaxIdentityLength bytes.
	ErrIdentityTooLong = errors.New("identity too long")

	// ErrInvalidMetadata indicates metadata could not be serialized to JSON.
	ErrInvalidMetadata = errors.New("metadata is not JSON serializable")

	// ErrEmptyVector indicates an embedded document has no vector.
	ErrEmptyVector = errors.New("vector cannot be empty")
)
