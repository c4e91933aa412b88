package repositories

import "errors"

// Repository errors. Handlers match these with errors.Is to pick a status
// code without parsing error strings.
var (
	ErrPostNotFound         = errors.New("post not found")
	ErrInvalidPostID        = errors.New("invalid post ID format")
	ErrUserNotFound         = errors.New("user not found")
	ErrNotificationNotFound = errors.New("notification not found")
)
