package errors

import "errors"

var (
	ErrCacheMiss = errors.New("cache miss")
)
