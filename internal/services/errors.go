package services

import "errors"

// Sentinel errors returned by the service layer. Handlers translate them to
// HTTP statuses with errors.Is; the policy evaluators themselves never return
// an error for a plain denial — denial is a normal return value.
var (
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrValidation = errors.New("invalid input")
	ErrConflict   = errors.New("conflict")
)
