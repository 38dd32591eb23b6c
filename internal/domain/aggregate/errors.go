package aggregate

import "errors"

// ErrJoin is returned when the fan-out could not settle: a branch panicked or
// the caller cancelled the request.
var ErrJoin = errors.New("context aggregation failed")
