package session

import "errors"

// Custom error types for better error discrimination
var (
	// ErrAlreadyOpen is returned when a transport is opened twice
	ErrAlreadyOpen = errors.New("transport already open")

	// ErrNotConnected is returned when an operation requires a live session
	ErrNotConnected = errors.New("session is not connected")

	// ErrAlreadyConnected is returned when Connect is called on a session
	// that already left the idle state
	ErrAlreadyConnected = errors.New("session already connected")

	// ErrNegotiationFailed is returned when the connection handshake fails
	ErrNegotiationFailed = errors.New("session negotiation failed")
)
