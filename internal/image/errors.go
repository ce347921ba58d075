package image

import "errors"

var (
	ErrReference = errors.New("invalid image reference")
	ErrTransport = errors.New("image transport error")
)
