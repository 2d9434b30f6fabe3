package auth

import "errors"

// ErrUnauthenticated is returned when no valid identity can be derived
// from the request. Handlers map it to 401.
var ErrUnauthenticated = errors.New("unauthenticated")
