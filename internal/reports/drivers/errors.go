package drivers

import "errors"

// ErrObjectNotFound is returned by Get when nothing is stored under the key
var ErrObjectNotFound = errors.New("object not found")
