package relay_errors

import "errors"

// Common errors
var (
	ErrNotAMember       = errors.New("not a conversation member")
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidToken     = errors.New("invalid token")
	ErrDeliveryTimeout  = errors.New("delivery timed out")
	ErrStoreUnavailable = errors.New("store unavailable")
)
