package commonModels

import "errors"

var (
	ErrConfiguration        = errors.New("configuration error")
	ErrDimensionMismatch    = errors.New("embedding dimension mismatch")
	ErrRetrievalFailed      = errors.New("retrieval failed")
	ErrDocumentNotFound     = errors.New("document not found")
	ErrInvalidDocumentName  = errors.New("invalid document name")
	ErrInvalidAccessLevel   = errors.New("invalid access level")
	ErrUnknownDepartment    = errors.New("unknown department")
	ErrNameConflict         = errors.New("document name already used by different content")
	ErrUnsupportedExtension = errors.New("unsupported file type")
	ErrEmptyQuestion        = errors.New("question is empty")
	ErrDepartmentRequired   = errors.New("a requester department is required")
)
