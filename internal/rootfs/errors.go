package rootfs

import "errors"

var ErrUnpack = errors.New("unpack failed")
