package errors

import "errors"

// Domain errors
var (
	// Scan request errors
	ErrNoDomains      = errors.New("at least one domain is required")
	ErrInvalidDomain  = errors.New("invalid domain")
	ErrPublicSuffix   = errors.New("domain is a bare public suffix")
	ErrTooManyDomains = errors.New("too many domains in one request")
	ErrEmptyRequestID = errors.New("request ID cannot be empty")

	// Batch errors
	ErrBatchNotFound      = errors.New("batch not found")
	ErrBatchAlreadyExists = errors.New("batch already exists")
	ErrInvalidBatchID     = errors.New("invalid batch ID")

	// Result errors
	ErrResultNotFound = errors.New("scan result not found")

	// Repository errors
	ErrStoreDisabled         = errors.New("result store is disabled")
	ErrRepositoryOperation   = errors.New("repository operation failed")
	ErrSerializationFailed   = errors.New("serialization failed")
	ErrDeserializationFailed = errors.New("deserialization failed")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidInput    = errors.New("invalid input")
	ErrMissingRequired = errors.New("missing required field")
)
