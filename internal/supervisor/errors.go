package supervisor

import "errors"

var ErrSupervise = errors.New("supervision failed")
