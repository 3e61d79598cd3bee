package sqlstore

import (
	"database/sql"

	"github.com/cockroachdb/errors"
	"github.com/conduit-lang/graphmap/internal/orm/ormerrors"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// Constraint violation kinds reported by the database
var (
	// ErrUniqueViolation is returned when a unique constraint is violated
	ErrUniqueViolation = errors.New("unique constraint violation")

	// ErrForeignKeyViolation is returned when a foreign key constraint is violated
	ErrForeignKeyViolation = errors.New("foreign key constraint violation")

	// ErrCheckViolation is returned when a check constraint is violated
	ErrCheckViolation = errors.New("check constraint violation")

	// ErrNotNullViolation is returned when a NOT NULL constraint is violated
	ErrNotNullViolation = errors.New("not null constraint violation")
)

var constraintsByCode = map[string]error{
	"23505": ErrUniqueViolation,
	"23503": ErrForeignKeyViolation,
	"23514": ErrCheckViolation,
	"23502": ErrNotNullViolation,
}

// convertDBError maps driver errors onto the store's error kinds. Postgres
// errors are recognized from both pgx and lib/pq, SQLite errors by their
// extended constraint code.
func convertDBError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return ormerrors.ErrEntityNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if kind, ok := constraintsByCode[pgErr.Code]; ok {
			return errors.Mark(errors.Wrapf(err, "%s", pgErr.Detail), kind)
		}
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if kind, ok := constraintsByCode[string(pqErr.Code)]; ok {
			return errors.Mark(errors.Wrapf(err, "%s", pqErr.Detail), kind)
		}
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		switch liteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return errors.Mark(err, ErrUniqueViolation)
		case sqlite3.ErrConstraintForeignKey:
			return errors.Mark(err, ErrForeignKeyViolation)
		case sqlite3.ErrConstraintCheck:
			return errors.Mark(err, ErrCheckViolation)
		case sqlite3.ErrConstraintNotNull:
			return errors.Mark(err, ErrNotNullViolation)
		}
	}

	return err
}

// IsUniqueViolation returns true if the error is ErrUniqueViolation
func IsUniqueViolation(err error) bool {
	return errors.Is(err, ErrUniqueViolation)
}

// IsForeignKeyViolation returns true if the error is ErrForeignKeyViolation
func IsForeignKeyViolation(err error) bool {
	return errors.Is(err, ErrForeignKeyViolation)
}
