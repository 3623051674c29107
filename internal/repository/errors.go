package repository

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrDuplicate is returned when an insert collides with a unique constraint.
	ErrDuplicate = errors.New("duplicate record")
	// ErrInvalidTransition is returned when a request is no longer pending.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrNoCapacity is returned when a mentor has no free slot left.
	ErrNoCapacity = errors.New("mentor at capacity")
	// ErrRoleMismatch is returned when the acting principal no longer holds
	// the role the operation needs.
	ErrRoleMismatch = errors.New("principal role changed")
)

const (
	uniqueViolation           = "23505"
	invalidTextRepresentation = "22P02"
)

// IsNotFound reports whether err means the addressed row does not exist. An
// id that Postgres cannot parse as its column type addresses no row either.
func IsNotFound(err error) bool {
	if errors.Is(err, sql.ErrNoRows) {
		return true
	}
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == invalidTextRepresentation
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	return false
}
