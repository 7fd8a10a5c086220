package health

import "errors"

// ErrCheckFailed marks an unhealthy result that has no more specific cause.
var ErrCheckFailed = errors.New("health: check failed")

// ErrCheckTimeout is the error of a result whose check outlived its deadline.
var ErrCheckTimeout = errors.New("health: check timeout")

// ErrCheckerNotFound is returned when no checker is registered under a name.
var ErrCheckerNotFound = errors.New("health: checker not found")
