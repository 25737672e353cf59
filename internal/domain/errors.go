package domain

import "errors"

var (
	// ErrInvalidLanguage is returned when an unsupported language is requested.
	ErrInvalidLanguage = errors.New("invalid or unsupported language")

	// ErrEmptySourceCode is returned when the main source is empty.
	ErrEmptySourceCode = errors.New("source code cannot be empty")

	// ErrPayloadTooLarge is returned when the source tree exceeds the size limit.
	ErrPayloadTooLarge = errors.New("source payload exceeds maximum size")

	// ErrInvalidPath is returned when a file name escapes the workspace.
	ErrInvalidPath = errors.New("file name must be a relative path inside the workspace")

	// ErrServerBusy is returned when the execution queue is full.
	ErrServerBusy = errors.New("execution queue is full, try again later")

	// ErrRunNotFound is returned when no run history exists for an execution ID.
	ErrRunNotFound = errors.New("run not found")

	// ErrSessionNotFound is returned when a session cannot be found by ID.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExists is returned when a generated session ID is already taken.
	ErrSessionExists = errors.New("session already exists")

	// ErrFileNotFound is returned when a file does not exist in a session.
	ErrFileNotFound = errors.New("file not found")

	// ErrFileExists is returned when a file name is already taken in a session.
	ErrFileExists = errors.New("file already exists in this session")

	// ErrForbidden is returned when a user acts on a session they do not own.
	ErrForbidden = errors.New("operation not permitted for this user")

	// ErrUnauthorized is returned when a bearer token is missing or invalid.
	ErrUnauthorized = errors.New("authentication required")

	// ErrDatabaseUnavailable is returned when the database is unreachable.
	ErrDatabaseUnavailable = errors.New("database is currently unavailable")
)
