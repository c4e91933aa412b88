package engagement

import "errors"

// Ledger errors. Every failure returned by a Ledger operation wraps exactly
// one of these; handlers translate them to 400/404/403/500.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrStorage      = errors.New("storage failure")
)
