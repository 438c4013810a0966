package domain

import "errors"

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists signals a duplicate resource.
	ErrAlreadyExists = errors.New("already exists")
	// ErrValidation signals a malformed or incomplete request.
	ErrValidation = errors.New("validation failed")
	// ErrUnauthorized signals a missing, invalid or expired credential.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden signals an authenticated caller without sufficient role.
	ErrForbidden = errors.New("forbidden")

	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrRerankProviderError signals a cross-encoder scoring failure.
	ErrRerankProviderError = errors.New("rerank provider error")
	// ErrGenerationFailed signals a generation model failure. It is the only
	// pipeline error surfaced to the caller as a server error.
	ErrGenerationFailed = errors.New("generation failed")
)
