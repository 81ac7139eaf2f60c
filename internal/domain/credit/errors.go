package credit

import "errors"

var (
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrUserNotFound        = errors.New("user not found")
	ErrDuplicateReference  = errors.New("payment reference already credited")
	ErrInternal            = errors.New("internal error")
)
