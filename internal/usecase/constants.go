package usecase

import "time"

const (
	// DefaultReferenceCurrency is the currency every amount is converted into.
	DefaultReferenceCurrency = "USD"

	// DefaultHighAmountThreshold is the converted amount above which a record is suspicious.
	DefaultHighAmountThreshold = 10000.0

	// DefaultRateLookupTimeout bounds a single rate resolution, cache plus service.
	DefaultRateLookupTimeout = 30 * time.Second

	// LatestRateKey replaces the date in cache keys for records without a timestamp.
	LatestRateKey = "latest"
)

// Pipeline stage names used for logging and metrics.
const (
	StageLoaded     = "loaded"
	StageNormalized = "normalized"
	StageValid      = "valid"
	StageInvalid    = "invalid"
	StageDuplicate  = "duplicate"
	StageClean      = "clean"
	StageSuspicious = "suspicious"
)

// Rate lookup outcomes.
const (
	RateLookupReference   = "reference"
	RateLookupCacheHit    = "cache_hit"
	RateLookupService     = "service"
	RateLookupUnavailable = "unavailable"
)
