package ragscore

import "github.com/datar-psa/ragscore/api"

// Sentinel errors re-exported from the api package.
var (
	ErrAuthenticationFailed = api.ErrAuthenticationFailed
	ErrInvalidConfig        = api.ErrInvalidConfig
	ErrNoQAPairs            = api.ErrNoQAPairs
	ErrGenerationFailed     = api.ErrGenerationFailed
)
