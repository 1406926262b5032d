package services

import "errors"

// Service errors
var (
	// ErrSessionNotFound reports an unknown or expired session ID
	ErrSessionNotFound = errors.New("session not found")

	// ErrNoSheets is returned when a selection resolves to no months at all
	ErrNoSheets = errors.New("workbook has no sheets")
)
