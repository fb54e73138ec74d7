package games

import "errors"

// ErrGameNotFound is returned when no game exists for the given id
var ErrGameNotFound = errors.New("game not found")

// ErrActiveGameExists is returned when a room already has a game in progress
var ErrActiveGameExists = errors.New("a game is already active in this room")

// ErrPlayerNotInGame is returned when a player submits a meal for a game they are not part of
var ErrPlayerNotInGame = errors.New("player is not part of this lunch game")

// ErrMealAlreadySubmitted is returned on a duplicate meal submission for the same player
var ErrMealAlreadySubmitted = errors.New("meal already submitted for this player")
