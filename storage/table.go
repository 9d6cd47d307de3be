package storage

import (
	"fmt"
	"regexp"
	"strings"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// maxIdentifierLength is the Postgres NAMEDATALEN limit.
const maxIdentifierLength = 63

// ValidateTableName accepts a plain identifier or a schema-qualified one
// ("schema.table"). Table names are interpolated into SQL, so anything
// else is rejected.
func ValidateTableName(name string) error {
	parts := strings.Split(name, ".")
	if len(parts) > 2 {
		return fmt.Errorf("%w: %q", ErrInvalidTableName, name)
	}
	for _, part := range parts {
		if len(part) > maxIdentifierLength || !identifierPattern.MatchString(part) {
			return fmt.Errorf("%w: %q", ErrInvalidTableName, name)
		}
	}
	return nil
}

// QuoteTableName double-quotes each part of a validated table name.
func QuoteTableName(name string) string {
	parts := strings.Split(name, ".")
	for i, part := range parts {
		parts[i] = `"` + part + `"`
	}
	return strings.Join(parts, ".")
}
