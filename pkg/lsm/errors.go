package lsm

import "errors"

var (
	// ErrClosed is returned by any operation attempted on a closed engine.
	ErrClosed = errors.New("lsm: engine closed")
)
