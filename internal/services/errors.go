package services

import "errors"

var (
	// ErrCouldNotIdentify means the vision model produced no usable guess
	ErrCouldNotIdentify = errors.New("could not identify card")
	ErrUnsupportedGame  = errors.New("unsupported game")
	// ErrOracleDisabled is returned when no Gemini API key is configured
	ErrOracleDisabled = errors.New("card identification is not configured")
	ErrScanNotFound   = errors.New("scan not found")

	ErrScanImageNotFound = errors.New("no image kept for scan")
	// ErrPriceQuotaExceeded means the JustTCG daily request budget is spent
	ErrPriceQuotaExceeded = errors.New("JustTCG daily rate limit exceeded")
)
