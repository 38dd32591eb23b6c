package service

import "errors"

// ErrComputation wraps failures absorbed while computing a recommendation.
var ErrComputation = errors.New("recommendation computation failed")
