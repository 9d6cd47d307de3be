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


// Package storage provides the storage abstraction layer for vectorsink.
//
// The ingestion pipeline writes through the narrow Session interface:
// existence checks, bulk insert, bulk update, commit and rollback. Every
// backend lays rows out the same way:
//
//	(id TEXT PRIMARY KEY, text TEXT NOT NULL, metadata JSON NULL, embedding VECTOR(dim))
//
// and both bulk writes are insert-on-conflict-do-update, so the store alone
// guarantees at most one row per identity. Existence checks only drive the
// inserted/updated counts.
//
// # Backends
//
//   - storage/postgres: PostgreSQL with pgvector (pgx)
//   - storage/sqlite: pure-Go SQLite, vectors stored as little-endian BLOBs
//   - storage/badger: embedded key-value store, rows encoded with MUS
//   - storage/memory: in-process store for tests
//
// # Constructor Return Type Pattern
//
// Public constructors return concrete types that satisfy both Store and
// Reader; callers that only write should hold a storage.Store.
//
//	store, err := sqlite.NewStore(ctx, sqlite.Config{Path: "docs.db", TableName: "docs", Dimension: 768})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
// # Sessions
//
// A Session begins its transaction lazily with the first operation, so a
// caller that embeds before touching the session keeps slow provider calls
// outside the transaction. Sessions are not safe for concurrent use.
package storage
