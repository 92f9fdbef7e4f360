package persistence

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"

	constraintProjectRefNum = "projects_ref_num_key"
)

var (
	ErrDuplicateRefNum  = errors.New("project reference number already exists")
	ErrMissingReference = errors.New("referenced metadata row does not exist")
)

// IsUniqueViolation reports a 23505 error, optionally for one constraint.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != codeUniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// mapWriteError turns constraint failures on project writes into errors a row
// report can show. Other errors pass through.
func mapWriteError(err error, refNum string) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case codeUniqueViolation:
		if pgErr.ConstraintName == constraintProjectRefNum {
			return fmt.Errorf("%w: %s (written by another import?)", ErrDuplicateRefNum, refNum)
		}
	case codeForeignKeyViolation:
		return fmt.Errorf("%w: %s", ErrMissingReference, pgErr.ConstraintName)
	}
	return err
}
