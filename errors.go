package godbf

import "errors"

// Error kinds surfaced by Open and the read path. Callers can match them
// with errors.Is; the wrapped message carries the offending detail
// (version byte, field name, type code).
var (
	// ErrUnsupportedVersion is returned in strict mode when the header's
	// version byte is not in the dialect table.
	ErrUnsupportedVersion = errors.New("unknown/unsupported dBase version")

	// ErrDuplicateFieldName is returned when two field descriptors share a
	// name. This is a structural conflict and is fatal in both read modes.
	ErrDuplicateFieldName = errors.New("Duplicate field name")

	// ErrMemoFileNotFound is returned in strict mode on the first memo
	// access when the companion memo file is absent. Loose mode decodes
	// every memo field to nil instead.
	ErrMemoFileNotFound = errors.New("Memo file not found")

	// ErrUnsupportedFieldType is returned in strict mode when a field
	// carries a type code the decoder does not know.
	ErrUnsupportedFieldType = errors.New("unsupported field type")

	// ErrMalformedHeader is returned when the header lacks the structural
	// information needed to read the file safely. Fatal in both modes.
	ErrMalformedHeader = errors.New("malformed header")

	// ErrMalformedRecord is returned in strict mode for a record whose
	// deletion marker is neither the deleted nor the live sentinel.
	ErrMalformedRecord = errors.New("malformed record")
)
