package domain

import "errors"

var (
	// ya existe una sesión away para (guild, user)
	ErrSessionActive = errors.New("away session already active")

	// return/clear sin sesión abierta
	ErrNoActiveSession = errors.New("no active away session")

	ErrMalformedInput = errors.New("malformed input")

	ErrOutsideWorkHours = errors.New("outside work hours")

	ErrNoRecords = errors.New("no away records")
)
