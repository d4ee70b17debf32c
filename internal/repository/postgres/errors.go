package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// IsPgDuplicateError checks if error is a unique constraint violation
func IsPgDuplicateError(err error) bool {
	return pgErrorCode(err) == "23505" // unique_violation
}

// IsPgNoRowsError checks if error is a "no rows" error
func IsPgNoRowsError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// IsPgForeignKeyError checks if error is a foreign key violation
func IsPgForeignKeyError(err error) bool {
	return pgErrorCode(err) == "23503" // foreign_key_violation
}

// IsPgInvalidInputError checks if a parameter failed to parse (e.g. a malformed UUID)
func IsPgInvalidInputError(err error) bool {
	return pgErrorCode(err) == "22P02" // invalid_text_representation
}

// IsPgMissingError treats "no rows" and unparseable identifiers alike,
// since neither can name an existing row
func IsPgMissingError(err error) bool {
	return IsPgNoRowsError(err) || IsPgInvalidInputError(err)
}

// ConstraintName returns the violated constraint, or "" for non-Postgres errors
func ConstraintName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
