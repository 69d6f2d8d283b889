package errors

// IndexError provides specialized error handling for index-related operations.
// This structure extends the base error system with index-specific context
// while properly supporting method chaining through all base error methods.
type IndexError struct {
	// Embed the base error to inherit all standard error functionality
	// including error chaining, structured details, and error codes.
	*baseError

	// Identifies which key was being processed when the error occurred.
	key string

	// Indicates which segment was involved in the error, if applicable.
	segmentID uint64

	// Describes what index operation was being performed when the
	// error occurred (e.g., "Get", "BuildOne", "BuildAll").
	operation string

	// Captures the size of the index at the time of the error.
	indexSize int
}

// NewIndexError creates a new index-specific error with the provided context.
func NewIndexError(err error, code ErrorCode, msg string) *IndexError {
	return &IndexError{baseError: NewBaseError(err, code, msg)}
}

// Override base error methods to return *IndexError instead of *baseError.

// WithMessage updates the error message while maintaining the IndexError type.
func (ie *IndexError) WithMessage(msg string) *IndexError {
	ie.baseError.WithMessage(msg)
	return ie
}

// WithCode sets the error code while preserving the IndexError type.
func (ie *IndexError) WithCode(code ErrorCode) *IndexError {
	ie.baseError.WithCode(code)
	return ie
}

// WithDetail adds contextual information while maintaining the IndexError type.
func (ie *IndexError) WithDetail(key string, value any) *IndexError {
	ie.baseError.WithDetail(key, value)
	return ie
}

// WithKey records which key was being processed when the error occurred.
func (ie *IndexError) WithKey(key string) *IndexError {
	ie.key = key
	return ie
}

// WithSegmentID captures which segment was involved in the error.
func (ie *IndexError) WithSegmentID(segmentID uint64) *IndexError {
	ie.segmentID = segmentID
	return ie
}

// WithOperation records what index operation was being performed.
func (ie *IndexError) WithOperation(operation string) *IndexError {
	ie.operation = operation
	return ie
}

// WithIndexSize captures the size of the index when the error occurred.
func (ie *IndexError) WithIndexSize(size int) *IndexError {
	ie.indexSize = size
	return ie
}

// Key returns the key that was being processed when the error occurred.
func (ie *IndexError) Key() string { return ie.key }

// SegmentID returns the segment identifier associated with the error.
func (ie *IndexError) SegmentID() uint64 { return ie.segmentID }

// Operation returns the name of the operation that was being performed.
func (ie *IndexError) Operation() string { return ie.operation }

// IndexSize returns the size of the index when the error occurred.
func (ie *IndexError) IndexSize() int { return ie.indexSize }

// NewSegmentIDError creates an error for references to a segment id with no
// registered index.
func NewSegmentIDError(segmentID uint64, key string) *IndexError {
	return NewIndexError(nil, ErrorCodeIndexInvalidSegmentID, "segment id has no registered index").
		WithSegmentID(segmentID).
		WithKey(key).
		WithOperation("Get")
}

// NewIndexCorruptionError creates an error for index build failures caused by
// a segment that could not be decoded end to end.
func NewIndexCorruptionError(operation string, indexSize int, cause error) *IndexError {
	return NewIndexError(cause, ErrorCodeIndexCorrupted, "failed to build segment index").
		WithOperation(operation).
		WithIndexSize(indexSize)
}
