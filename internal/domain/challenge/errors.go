package challenge

import "errors"

// Sentinel kinds for generation errors. These never escape the generator:
// any of them routes the request onto the deterministic fallback strategy.
var (
	ErrGeneration        = errors.New("challenge generation failed")
	ErrMalformedResponse = errors.New("malformed generation response")
)
