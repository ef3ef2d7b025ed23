/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package relay

import "errors"

var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrRoomFull           = errors.New("room is full")
	ErrRoomSpaceExhausted = errors.New("no room codes available")
	ErrScreenCannotJoin   = errors.New("screens cannot join as players")
	ErrMalformedRequest   = errors.New("malformed request")
)

// ErrorMessage returns the user-facing text sent to clients for err.
func ErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrRoomNotFound):
		return "Room not found"
	case errors.Is(err, ErrRoomFull):
		return "Room is full"
	case errors.Is(err, ErrRoomSpaceExhausted):
		return "No room codes available"
	case errors.Is(err, ErrScreenCannotJoin):
		return "Screens cannot join as players"
	case errors.Is(err, ErrMalformedRequest):
		return "Malformed request"
	default:
		return "Internal error"
	}
}
