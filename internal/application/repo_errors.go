package application

import (
	"errors"

	"github.com/example/unispaces/internal/persistence"
)

// mapRepoError converts persistence sentinels into their application
// counterparts at the service boundary.
func mapRepoError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrConstraintViolation):
		vErr := &ValidationError{}
		vErr.add("request", "stored values violate a constraint")
		return vErr
	}
	return err
}
