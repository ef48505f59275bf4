package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	relay_errors "relaychat/pkg/errors"
)

// storeErr classifies driver and connection failures as ErrStoreUnavailable
// so callers can match them with errors.Is. Domain sentinels pass through.
func storeErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, relay_errors.ErrNotAMember),
		errors.Is(err, relay_errors.ErrNotFound),
		errors.Is(err, relay_errors.ErrInvalidInput),
		errors.Is(err, gorm.ErrRecordNotFound):
		return err
	}
	return fmt.Errorf("%v: %w", err, relay_errors.ErrStoreUnavailable)
}
