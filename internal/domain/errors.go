package domain

import "errors"

var (
	// ErrNotFound indicates resource not found
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidRequest indicates invalid request
	ErrInvalidRequest = errors.New("invalid request")
	// ErrUnauthorized indicates unauthorized access
	ErrUnauthorized = errors.New("unauthorized")
	// ErrTurnInProgress indicates another turn for the same session is still running
	ErrTurnInProgress = errors.New("a turn is already in progress for this session")
	// ErrIllegalTransition indicates a stage change the state machine does not allow
	ErrIllegalTransition = errors.New("illegal stage transition")
	// ErrUpstream indicates the completion service failed (network, auth, rate limit, timeout)
	ErrUpstream = errors.New("completion service unavailable")
	// ErrNotConfigured indicates missing credentials for an external collaborator
	ErrNotConfigured = errors.New("service not configured")
	// ErrAssessmentIncomplete indicates the screening has not been fully answered
	ErrAssessmentIncomplete = errors.New("assessment incomplete")
)
