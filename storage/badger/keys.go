package badger

import "strings"

// Key prefixes. Keys are namespaced by table so several tables can share
// one database directory.
const (
	rowPrefix  = "docrow"
	metaPrefix = "docmeta"
)

// makeRowPrefix returns the prefix shared by every row key of a table.
// Format: docrow:table:
func makeRowPrefix(table string) []byte {
	return []byte(rowPrefix + ":" + table + ":")
}

// makeRowKey generates a key for a row by identity.
// Format: docrow:table:identity
func makeRowKey(table, identity string) []byte {
	prefix := makeRowPrefix(table)
	buf := make([]byte, len(prefix)+len(identity))
	offset := copy(buf, prefix)
	copy(buf[offset:], identity)
	return buf
}

// identityFromKey strips the table prefix from a row key.
func identityFromKey(table string, key []byte) string {
	return strings.TrimPrefix(string(key), string(makeRowPrefix(table)))
}

// makeDimensionKey generates the key recording a table's embedding dimension.
// Format: docmeta:table:dim
func makeDimensionKey(table string) []byte {
	return []byte(metaPrefix + ":" + table + ":dim")
}
