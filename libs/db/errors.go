package db

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	codeUniqueViolation    = "23505"
	codeExclusionViolation = "23P01"
	codeCheckViolation     = "23514"
)

// IsUniqueViolation reports a unique index violation, optionally restricted to
// one constraint name.
func IsUniqueViolation(err error, constraint ...string) bool {
	return isViolation(err, codeUniqueViolation, constraint)
}

// IsExclusionViolation reports an exclusion constraint violation, optionally
// restricted to one constraint name.
func IsExclusionViolation(err error, constraint ...string) bool {
	return isViolation(err, codeExclusionViolation, constraint)
}

func isViolation(err error, code string, constraint []string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != code {
		return false
	}
	if len(constraint) == 0 {
		return true
	}
	for _, c := range constraint {
		if pgErr.ConstraintName == c {
			return true
		}
	}
	return false
}

func IsCheckViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeCheckViolation
}

func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
