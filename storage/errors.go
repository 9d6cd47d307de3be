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

import "errors"

var (
	// ErrNotFound indicates that the requested row was not found.
	ErrNotFound = errors.New("row not found")

	// ErrTransactionFailed indicates that a commit or rollback failed.
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrStorageClosed indicates that the storage backend is closed.
	ErrStorageClosed = errors.New("storage is closed")

	// ErrSessionClosed indicates use of a session after Close.
	ErrSessionClosed = errors.New("session is closed")

	// ErrDimensionMismatch indicates a vector whose length differs from the table's.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrSchemaMismatch indicates an existing table that cannot hold the configured rows.
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrInvalidTableName indicates a table name that is not a plain SQL identifier.
	ErrInvalidTableName = errors.New("invalid table name")

	// ErrInvalidRow indicates a row that cannot be written.
	ErrInvalidRow = errors.New("invalid row")

	// ErrSerializationFailed indicates a serialization/deserialization failure.
	ErrSerializationFailed = errors.New("serialization failed")

	// ErrTruncatedData indicates that data was truncated during reading.
	ErrTruncatedData = errors.New("truncated data")
)
