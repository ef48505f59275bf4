package repository

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	relay_errors "relaychat/pkg/errors"
)

func TestStoreErrWrapsDriverFailures(t *testing.T) {
	cause := errors.New("dial tcp 127.0.0.1:5432: connection refused")
	err := storeErr(cause)

	assert.ErrorIs(t, err, relay_errors.ErrStoreUnavailable)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestStoreErrPassesSentinelsThrough(t *testing.T) {
	for _, sentinel := range []error{
		relay_errors.ErrNotAMember,
		relay_errors.ErrNotFound,
		relay_errors.ErrInvalidInput,
		gorm.ErrRecordNotFound,
	} {
		got := storeErr(sentinel)
		assert.ErrorIs(t, got, sentinel)
		assert.NotErrorIs(t, got, relay_errors.ErrStoreUnavailable)
	}

	assert.NoError(t, storeErr(nil))
}
