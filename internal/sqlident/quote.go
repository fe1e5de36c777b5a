// Package sqlident quotes and escapes the identifiers and literals the
// compiler stitches directly into generated SQL text (column names, table
// aliases, and the handful of values — full-text search terms — that cannot
// be bound as a placeholder because the indexed expression must match
// exactly what Postgres planned against).
package sqlident

import (
	"strings"
	"unicode"
)

// reservedWords are identifiers that always require quoting regardless of
// case or shape.
var reservedWords = map[string]bool{
	"user":   true,
	"order":  true,
	"group":  true,
	"select": true,
	"from":   true,
	"where":  true,
	"table":  true,
}

// NeedsQuoting reports whether identifier must be double-quoted to be used
// verbatim in generated SQL.
func NeedsQuoting(identifier string) bool {
	if identifier == "" {
		return false
	}

	if reservedWords[strings.ToLower(identifier)] {
		return true
	}

	for _, r := range identifier {
		if unicode.IsUpper(r) {
			return true
		}
	}

	for i, r := range identifier {
		if i == 0 && !unicode.IsLetter(r) && r != '_' {
			return true
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return true
		}
	}

	return false
}

// QuoteIdentifier adds double quotes to identifier if needed, doubling any
// embedded quote character so the result is safe to splice into SQL text
// even when identifier is attacker-controlled (a JSON-Schema property name).
func QuoteIdentifier(identifier string) string {
	if !NeedsQuoting(identifier) {
		return identifier
	}
	return `"` + strings.ReplaceAll(identifier, `"`, `""`) + `"`
}

// QualifyWithQuotes returns schema.name, quoting both parts as needed and
// omitting the schema qualifier when it matches targetSchema.
func QualifyWithQuotes(entitySchema, entityName, targetSchema string) string {
	quotedName := QuoteIdentifier(entityName)

	if entitySchema == targetSchema {
		return quotedName
	}

	return QuoteIdentifier(entitySchema) + "." + quotedName
}

// QuoteLiteral escapes s for use as a single-quoted SQL string literal,
// doubling embedded quotes and backslashes. Used only where a bound
// parameter cannot be used (see internal/fts).
func QuoteLiteral(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `''`)
	return "'" + s + "'"
}
