package spec

import "errors"

var ErrSpecBuild = errors.New("spec build failed")
