package gdmrag

import "github.com/graphclinic/gdmrag/model"

// Error taxonomy of the retrieval core. The sentinels live in the model
// package so that every subpackage can use them; they are re-exported here
// for callers of the facade.
var (
	ErrSchemaViolation  = model.ErrSchemaViolation
	ErrInvalidQuery     = model.ErrInvalidQuery
	ErrEncoding         = model.ErrEncoding
	ErrRetrievalTimeout = model.ErrRetrievalTimeout
	ErrNoContext        = model.ErrNoContext
)
