package api

import "errors"

var (
	// ErrAuthenticationFailed is returned when the endpoint login call fails.
	// Authentication failure is fatal: no subsequent query could succeed.
	ErrAuthenticationFailed = errors.New("endpoint authentication failed")
	// ErrInvalidConfig is returned for missing or contradictory settings.
	// Configuration problems abort a run before any item is processed.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrNoQAPairs is returned when a dataset contains no usable QA pairs.
	ErrNoQAPairs = errors.New("no valid QA pairs found")
	// ErrGenerationFailed is returned when a completion provider call fails.
	ErrGenerationFailed = errors.New("LLM generation failed")
)
