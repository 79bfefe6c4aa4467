package model

import "errors"

var (
	// ErrSchemaViolation is returned when an entity or relation does not
	// satisfy the static graph schema.
	ErrSchemaViolation = errors.New("gdmrag: schema violation")

	// ErrInvalidQuery is returned for malformed traversal filters, such as
	// an unknown relation type.
	ErrInvalidQuery = errors.New("gdmrag: invalid query")

	// ErrEncoding is returned when embedding generation fails or when query
	// and index embedding model versions do not match.
	ErrEncoding = errors.New("gdmrag: embedding failed")

	// ErrRetrievalTimeout is returned when a retrieval modality exceeds its
	// deadline. The engine recovers from it locally; callers only see it on
	// direct retriever calls.
	ErrRetrievalTimeout = errors.New("gdmrag: retrieval timed out")

	// ErrNoContext is returned when both retrieval modalities come back
	// empty, so the caller can produce an honest low-confidence answer.
	ErrNoContext = errors.New("gdmrag: no context found")
)
