package purchase

import "errors"

var (
	ErrInvalidPack = errors.New("unknown pack id")
	ErrRateLimited = errors.New("too many failed payment attempts")
	ErrNotFound    = errors.New("purchase not found")
)
