package ai

import "errors"

// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
var ErrQuotaExceeded = errors.New("ai quota exceeded")

// ErrEmptyResponse indicates the provider answered without a body to parse.
var ErrEmptyResponse = errors.New("ai returned empty response")

// ErrUnsupportedMedia indicates the provider cannot accept this content type.
var ErrUnsupportedMedia = errors.New("media type not supported by provider")
