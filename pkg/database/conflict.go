// Copyright (C) 2025-2026, Praxis Contributors. All rights reserved.
// See LICENSE for license information.

package database

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// Conflict kinds distinguished by the facades.
const (
	ConflictUniqueness = "uniqueness"
	ConflictForeignKey = "foreign_key"
)

// Postgres SQLSTATE codes the facades translate.
const (
	pgCodeUniqueViolation     = "23505"
	pgCodeForeignKeyViolation = "23503"
)

// ConflictError reports a create or update rejected by a uniqueness or
// foreign-key constraint.
type ConflictError struct {
	Kind       string
	Constraint string
	Err        error
}

func (e *ConflictError) Error() string {
	if e.Constraint != "" {
		return fmt.Sprintf("%s conflict on %s: %v", e.Kind, e.Constraint, e.Err)
	}
	return fmt.Sprintf("%s conflict: %v", e.Kind, e.Err)
}

func (e *ConflictError) Unwrap() error {
	return e.Err
}

// AsConflict unwraps err to a ConflictError if one is in the chain.
func AsConflict(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// IsUniquenessConflict reports whether err is a uniqueness violation.
func IsUniquenessConflict(err error) bool {
	ce, ok := AsConflict(err)
	return ok && ce.Kind == ConflictUniqueness
}

// translateError maps driver constraint violations to ConflictError and
// passes everything else through. Both the postgres drivers and the sqlite
// driver used in tests are covered so callers can branch on one type.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		switch pgxErr.Code {
		case pgCodeUniqueViolation:
			return &ConflictError{Kind: ConflictUniqueness, Constraint: pgxErr.ConstraintName, Err: err}
		case pgCodeForeignKeyViolation:
			return &ConflictError{Kind: ConflictForeignKey, Constraint: pgxErr.ConstraintName, Err: err}
		}
		return err
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pgCodeUniqueViolation:
			return &ConflictError{Kind: ConflictUniqueness, Constraint: pqErr.Constraint, Err: err}
		case pgCodeForeignKeyViolation:
			return &ConflictError{Kind: ConflictForeignKey, Constraint: pqErr.Constraint, Err: err}
		}
		return err
	}

	msg := err.Error()
	if strings.Contains(msg, "UNIQUE constraint failed") {
		return &ConflictError{Kind: ConflictUniqueness, Constraint: sqliteConstraint(msg, "UNIQUE constraint failed"), Err: err}
	}
	if strings.Contains(msg, "FOREIGN KEY constraint failed") {
		return &ConflictError{Kind: ConflictForeignKey, Err: err}
	}
	return err
}

func sqliteConstraint(msg, prefix string) string {
	idx := strings.Index(msg, prefix)
	if idx < 0 {
		return ""
	}
	rest := strings.TrimSpace(msg[idx+len(prefix):])
	return strings.TrimPrefix(rest, ": ")
}
