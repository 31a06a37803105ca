package model

import "errors"

var (
	// ErrInsufficientHistory is returned when a series is too short for the requested window.
	ErrInsufficientHistory = errors.New("insufficient history")

	// ErrDataUnavailable is returned when a venue cannot supply a pair, a quote or candles.
	ErrDataUnavailable = errors.New("data unavailable")

	// ErrInvalidConfiguration is returned by constructors and Validate methods.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)
