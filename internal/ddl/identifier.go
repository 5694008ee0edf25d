package ddl

import (
	"regexp"
	"strings"

	"taxi-ingest/internal/domain"
)

// Schema and table names are plain ASCII words; anything DuckDB would need
// quoting to accept is refused before it reaches a statement.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

const maxIdentifierLen = 128

// ValidateIdentifier rejects schema and table names that are empty, longer
// than 128 bytes, or not of the form [A-Za-z_][A-Za-z0-9_]*.
func ValidateIdentifier(name string) error {
	switch {
	case name == "":
		return domain.ErrValidation("identifier is empty")
	case len(name) > maxIdentifierLen:
		return domain.ErrValidation("identifier %.16q... exceeds %d bytes", name, maxIdentifierLen)
	case !identifierPattern.MatchString(name):
		return domain.ErrValidation("identifier %q must be letters, digits or underscores and not start with a digit", name)
	}
	return nil
}

// QuoteIdentifier renders name as a double-quoted DuckDB identifier.
func QuoteIdentifier(name string) string {
	return quote(name, `"`)
}

// QuoteLiteral renders value as a single-quoted SQL string, used for file
// paths and globs.
func QuoteLiteral(value string) string {
	return quote(value, `'`)
}

// quote wraps s in q, doubling every q inside it.
func quote(s, q string) string {
	return q + strings.ReplaceAll(s, q, q+q) + q
}
