package pipeline

import "errors"

// Validation and stage errors. Stage errors reach callers only as text in
// stage results; the sentinels let tests and the transport layer classify
// failures without string matching.
var (
	ErrUnsupportedType = errors.New("unsupported document type")
	ErrFileTooLarge    = errors.New("file exceeds the size limit")
	ErrFileMissing     = errors.New("document file does not exist")
	ErrEmptyText       = errors.New("document contains no extractable text")
)
