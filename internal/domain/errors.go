package domain

import "errors"

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrVectorDimMismatch signals that two vectors of different lengths were compared.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrInvalidK signals a negative result-size request.
	ErrInvalidK = errors.New("k must be non-negative")
	// ErrInvalidDislikeWeight signals a dislike weight outside [1,5].
	ErrInvalidDislikeWeight = errors.New("dislike weight must be between 1 and 5")
	// ErrInvalidLambda signals an MMR trade-off outside [0,1].
	ErrInvalidLambda = errors.New("lambda must be between 0 and 1")
	// ErrInvalidConfig signals invalid ranking parameters.
	ErrInvalidConfig = errors.New("invalid ranking config")
	// ErrInvalidItem signals a malformed catalog item.
	ErrInvalidItem = errors.New("invalid item")
	// ErrEmptyProfile signals a request with no usable preference signal.
	ErrEmptyProfile = errors.New("empty preference profile")
	// ErrUnsupportedEncoding signals an operation the configured encoder cannot perform.
	ErrUnsupportedEncoding = errors.New("unsupported encoding")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrStoreUnavailable signals that the preference store is not configured or unreachable.
	ErrStoreUnavailable = errors.New("store unavailable")
)
