package model

import "github.com/pkg/errors"

var (
	// ErrDataUnavailable means the schedule or the session could not be fetched.
	ErrDataUnavailable = errors.New("data unavailable")
	// ErrEmptyResult means the session loaded but holds no laps.
	ErrEmptyResult = errors.New("empty result")
	// ErrInvalidSelection means the chosen season, event or competitors cannot be charted.
	ErrInvalidSelection = errors.New("invalid selection")
)
