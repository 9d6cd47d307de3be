package badger

// NewMemoryStore creates an in-memory store for testing.
// Caller must close the store when done.
func NewMemoryStore(table string, dimension int) (*Store, error) {
	return NewStore(Config{InMemory: true, TableName: table, Dimension: dimension})
}
