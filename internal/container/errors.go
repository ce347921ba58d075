package container

import "errors"

var (
	ErrStart  = errors.New("container start failed")
	ErrDelete = errors.New("container delete failed")
)
