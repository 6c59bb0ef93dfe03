package domain

import (
	"errors"
)

// Sentinel errors for common domain failures
// Use with errors.Is() for checking and fmt.Errorf("%w", ...) for wrapping with context

var (
	// ErrInvalidIdentifier indicates an identifier is empty or has unsupported syntax
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// ErrInvalidRecordRef indicates a record reference could not be parsed
	ErrInvalidRecordRef = errors.New("invalid record reference")

	// ErrInvalidSentiment indicates a sentiment outside {positive, negative, neutral}
	ErrInvalidSentiment = errors.New("invalid sentiment")

	// ErrInvalidClaimCategory indicates a claim category outside {factual, subjective, predictive}
	ErrInvalidClaimCategory = errors.New("invalid claim category")

	// ErrInvalidChannel indicates an unknown discovery channel name
	ErrInvalidChannel = errors.New("invalid discovery channel")
)

// Validation errors for specific records

var (
	// ErrAttestationInvalid indicates attestation validation failed
	ErrAttestationInvalid = errors.New("attestation validation failed")

	// ErrOperatorInvalid indicates operator record validation failed
	ErrOperatorInvalid = errors.New("operator record validation failed")

	// ErrRecordInvalid indicates validation of a registry or follow record failed
	ErrRecordInvalid = errors.New("record validation failed")

	// ErrForeignSupersedes indicates an operator record supersedes a record
	// belonging to a different subject or of a different kind
	ErrForeignSupersedes = errors.New("supersedes references a different subject or kind")
)
