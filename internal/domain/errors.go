package domain

import "errors"

var (
	// ErrValidation is returned for malformed or empty input, before any side effect.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a profile id is unknown.
	ErrNotFound = errors.New("not found")

	// ErrNotAdmissible is returned when a document fails the admissibility rubric.
	ErrNotAdmissible = errors.New("document is not admissible as a profile")

	// ErrUnsupportedFormat is returned by extractors for file types they cannot read.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrOracleUnavailable is returned when the embedding or scoring service
	// stays unreachable after the retry budget is spent.
	ErrOracleUnavailable = errors.New("oracle unavailable")

	// ErrStorage is returned for ledger or index I/O failures.
	ErrStorage = errors.New("storage failure")
)
