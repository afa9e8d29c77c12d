package snapshot

import "errors"

// Parse errors.
var (
	// ErrMalformed is returned when the input is neither valid JSON nor valid YAML.
	ErrMalformed = errors.New("snapshot: malformed document")

	// ErrUnsupportedVersion is returned when the version field is missing or not FormatVersion.
	ErrUnsupportedVersion = errors.New("snapshot: unsupported or missing version")

	// ErrInvalidStructure is returned when entities, objects or ownerships is not an array.
	ErrInvalidStructure = errors.New("snapshot: invalid structure")

	// ErrValidation is returned when a record has missing or out-of-range fields.
	ErrValidation = errors.New("snapshot: data validation failed")

	// ErrDanglingReference is returned by CheckReferences for ownerships that
	// point at nodes missing from the calculation.
	ErrDanglingReference = errors.New("snapshot: dangling reference")
)

// Editor errors.
var (
	ErrEmptyName        = errors.New("snapshot: name must not be empty")
	ErrDuplicateName    = errors.New("snapshot: name already exists")
	ErrUnknownEntity    = errors.New("snapshot: unknown entity")
	ErrUnknownObject    = errors.New("snapshot: unknown object")
	ErrUnknownOwnership = errors.New("snapshot: unknown ownership")
	ErrPercentRange     = errors.New("snapshot: percent must be greater than 0 and at most 100")
	ErrDuplicatePair    = errors.New("snapshot: ownership relationship already exists")
	ErrExceedsFull      = errors.New("snapshot: direct ownership would exceed 100%")
)

// IsParseErr returns true if err is one of the errors Parse can return.
func IsParseErr(err error) bool {
	return errors.Is(err, ErrMalformed) ||
		errors.Is(err, ErrUnsupportedVersion) ||
		errors.Is(err, ErrInvalidStructure) ||
		errors.Is(err, ErrValidation)
}

// IsDanglingReferenceErr returns true if err is or wraps ErrDanglingReference.
func IsDanglingReferenceErr(err error) bool {
	return errors.Is(err, ErrDanglingReference)
}

// IsExceedsFullErr returns true if err is or wraps ErrExceedsFull.
func IsExceedsFullErr(err error) bool {
	return errors.Is(err, ErrExceedsFull)
}

// IsNotFoundErr returns true if err reports a missing entity, object or ownership.
func IsNotFoundErr(err error) bool {
	return errors.Is(err, ErrUnknownEntity) ||
		errors.Is(err, ErrUnknownObject) ||
		errors.Is(err, ErrUnknownOwnership)
}
