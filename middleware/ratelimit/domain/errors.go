package domain

import "errors"

var (
	ErrUnknownCategory = errors.New("unknown rate limit category")
	ErrInvalidPolicy   = errors.New("invalid rate limit policy")
)

func IsUnknownCategory(err error) bool {
	return errors.Is(err, ErrUnknownCategory)
}
