package sqlite

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/benjamonnguyen/enfoque"
)

type scannable interface {
	Scan(dest ...any) error
}

// generateParameters returns a parenthesised list of n placeholders, e.g. "(?, ?, ?)".
func generateParameters(n int) string {
	if n <= 0 {
		return "()"
	}
	return "(" + strings.Repeat("?, ", n-1) + "?)"
}

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return enfoque.ErrNotFound
	}
	return err
}

func nullString(o enfoque.Optional[string]) sql.NullString {
	if o.IsEmpty() {
		return sql.NullString{}
	}
	return sql.NullString{String: o.Get(), Valid: true}
}

func optionalString(s sql.NullString) enfoque.Optional[string] {
	if !s.Valid {
		return enfoque.None[string]()
	}
	return enfoque.Some(s.String)
}
