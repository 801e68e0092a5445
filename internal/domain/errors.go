package domain

import "errors"

var (
	// Rate service errors. Both abort the run.
	ErrRateServiceUnavailable = errors.New("rate service unavailable")
	ErrRateServiceStatus      = errors.New("rate service returned non-success status")
	ErrRateServiceResponse    = errors.New("rate service returned malformed response")

	// Source errors
	ErrUnsupportedSource = errors.New("unsupported source format")
	ErrMalformedSource   = errors.New("malformed source file")

	// Configuration errors
	ErrInvalidDefaultDate = errors.New("default date must be YYYY-MM-DD")
)
