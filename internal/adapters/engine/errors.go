package engine

import "errors"

// Sentinel kinds for engine errors.
var (
	ErrEngine           = errors.New("battle engine failure")
	ErrNoResults        = errors.New("battle finished without results")
	ErrAborted          = errors.New("battle aborted")
	ErrNoCompetitors    = errors.New("no competitors to battle")
	ErrInvalidRecording = errors.New("invalid battle recording")
)
