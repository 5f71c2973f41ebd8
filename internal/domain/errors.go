package domain

import (
	"errors"
	"fmt"
)

// ErrorKind groups domain errors by how callers should react.
type ErrorKind string

const (
	KindNotFound     ErrorKind = "NOT_FOUND"
	KindInvalidState ErrorKind = "INVALID_STATE"
	KindValidation   ErrorKind = "VALIDATION"
)

// Error is a local, non-retryable domain failure. Two errors match with
// errors.Is when their codes are equal, so sentinel values below can be used
// as targets even after Detail adds context.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}

func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Detail returns a copy of e with a formatted message.
func (e *Error) Detail(format string, args ...any) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Message: fmt.Sprintf(format, args...)}
}

func newErr(kind ErrorKind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

var (
	ErrRoomNotFound   = newErr(KindNotFound, "room_not_found", "room not found")
	ErrMatchNotFound  = newErr(KindNotFound, "match_not_found", "match not found")
	ErrPlayerNotFound = newErr(KindNotFound, "player_not_found", "player not found")
	ErrBoardNotFound  = newErr(KindNotFound, "board_not_found", "board not found")
	ErrScoreNotFound  = newErr(KindNotFound, "score_not_found", "score not found")

	ErrSeatConflict     = newErr(KindInvalidState, "seat_conflict", "seat is taken by another player")
	ErrSeatsIncomplete  = newErr(KindInvalidState, "seats_incomplete", "room needs two seated players")
	ErrNotSeated        = newErr(KindInvalidState, "not_seated", "player does not hold a seat in this room")
	ErrMatchFull        = newErr(KindInvalidState, "match_full", "match already has two players")
	ErrNotInProgress    = newErr(KindInvalidState, "match_not_in_progress", "match is not in progress")
	ErrMatchTerminal    = newErr(KindInvalidState, "match_terminal", "match is already over")
	ErrNotParticipant   = newErr(KindInvalidState, "not_participant", "player is not part of this match")
	ErrNotYourTurn      = newErr(KindInvalidState, "not_your_turn", "it is not your turn")
	ErrOpponentNotReady = newErr(KindInvalidState, "opponent_not_ready", "opponent has not placed ships yet")
	ErrAlreadyTargeted  = newErr(KindInvalidState, "already_targeted", "cell was already attacked")
	ErrBoardLocked      = newErr(KindInvalidState, "board_locked", "board already received shots")
	ErrNotFinished      = newErr(KindInvalidState, "match_not_finished", "match is not finished")
	ErrRematchExpired   = newErr(KindInvalidState, "rematch_expired", "rematch window expired")
	ErrRematchStarted   = newErr(KindInvalidState, "rematch_started", "rematch already started")
	ErrNoRoom           = newErr(KindInvalidState, "match_without_room", "match has no room")
	ErrUndoNotAllowed   = newErr(KindInvalidState, "undo_not_allowed", "undo is not allowed in this state")

	ErrInvalidSeat       = newErr(KindValidation, "invalid_seat", "seat must be 1 or 2")
	ErrInvalidArgs       = newErr(KindValidation, "invalid_arguments", "invalid arguments")
	ErrInvalidCoordinate = newErr(KindValidation, "invalid_coordinate", "invalid coordinate")
	ErrInvalidPeriod     = newErr(KindValidation, "invalid_period", "unknown ranking period")
)

// KindOf returns the kind of a domain error, or "" for other errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// CodeOf returns the code of a domain error, or "".
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
