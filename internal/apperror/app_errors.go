package apperror

import "errors"

var (
	ErrMatchFull       = errors.New("match already has two players")
	ErrMatchNotFound   = errors.New("match not found")
	ErrNotInMatch      = errors.New("player is not seated in this match")
	ErrMatchNotStarted = errors.New("match is not started")
)
