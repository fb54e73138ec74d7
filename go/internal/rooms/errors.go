package rooms

import "errors"

// ErrRoomNotFound is returned when no room exists for the given id
var ErrRoomNotFound = errors.New("room not found")
