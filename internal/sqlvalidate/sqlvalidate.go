// Package sqlvalidate is the compiler's final defense-in-depth step
// (spec.md §4.4, this module's expansion): every SQL string internal/compiler
// assembles is parsed with pg_query_go before it is handed back to the
// caller. A string that could inject a second statement or leave a clause
// dangling almost always fails to parse as the single SELECT/CTE this
// compiler always emits.
package sqlvalidate

import (
	pgquery "github.com/pganalyze/pg_query_go/v6"
)

// Validate parses sql and returns a descriptive error if it is not valid
// Postgres SQL, or if it parses as more than one statement.
func Validate(sql string) error {
	result, err := pgquery.Parse(sql)
	if err != nil {
		return err
	}
	if len(result.Stmts) != 1 {
		return errTooManyStatements(len(result.Stmts))
	}
	return nil
}

type errTooManyStatements int

func (e errTooManyStatements) Error() string {
	if int(e) == 0 {
		return "compiled SQL contains no statements"
	}
	return "compiled SQL contains more than one statement"
}
