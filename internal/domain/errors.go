package domain

import "errors"

var (
	// ErrBackendUnavailable signals a failed or timed-out model backend call.
	ErrBackendUnavailable = errors.New("model backend unavailable")
	// ErrMalformedResponse signals a structured model response that could not be parsed.
	ErrMalformedResponse = errors.New("malformed model response")
	// ErrNotFound signals a missing catalog record.
	ErrNotFound = errors.New("not found")
	// ErrIndexUnavailable signals a missing or failing vector index.
	ErrIndexUnavailable = errors.New("vector index unavailable")
	// ErrEmptyEmbedding signals an embedding response with no vector.
	ErrEmptyEmbedding = errors.New("empty embedding")
	// ErrUnknownCollection signals a curated collection tag that is not defined.
	ErrUnknownCollection = errors.New("unknown curated collection")
)
