package handlers

import "errors"

var errInvalidCanvas = errors.New("snapshot width and height must be between 1 and 4096")
