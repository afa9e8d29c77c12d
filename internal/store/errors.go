package store

import "errors"

var (
	// ErrNotFound is returned when a calculation id has no stored row.
	ErrNotFound = errors.New("calculation not found")

	// ErrUnsupportedDriver is returned for driver names the store cannot talk to.
	ErrUnsupportedDriver = errors.New("unsupported database driver")

	// ErrNotMigrated is returned when the store tables do not exist yet.
	ErrNotMigrated = errors.New("store schema not migrated (run `ownership migrate`)")

	// ErrInvalidLayer is returned for result layers other than direct and indirect.
	ErrInvalidLayer = errors.New("invalid result layer")
)

// IsNotFoundErr returns true if err is or wraps ErrNotFound.
func IsNotFoundErr(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsNotMigratedErr returns true if err is or wraps ErrNotMigrated.
func IsNotMigratedErr(err error) bool {
	return errors.Is(err, ErrNotMigrated)
}
