package coordinator

import "errors"

// ErrBadID is returned when a request names an empty key.
var ErrBadID = errors.New("coordinator: bad id")
