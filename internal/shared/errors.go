package shared

import "errors"

// ErrMissingTenant occurs when no usable tenant is attached to a request.
var ErrMissingTenant = errors.New("tenant not specified")
