package pool

import "errors"

var (
	// ErrUnsupportedToken reports a token that is not part of the pool.
	ErrUnsupportedToken = errors.New("token not supported by pool")

	// ErrPermissionDenied reports a lifecycle or admin operation invoked out
	// of order or by the wrong caller.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrPoolHalted reports an operation attempted while the pool is halted.
	ErrPoolHalted = errors.New("pool is halted")
)
