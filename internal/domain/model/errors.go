package model

import "errors"

// Session mutation errors.
var (
	ErrInvalidScore     = errors.New("score must be between 0 and 5")
	ErrUnknownCriterion = errors.New("unknown criterion")
	ErrUnknownTier      = errors.New("unknown seniority tier")
)
