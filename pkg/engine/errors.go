package engine

import (
	"errors"

	"github.com/Stoky555/ownership-graph/pkg/model"
)

// Sentinel errors for engine configuration. The computations themselves never
// fail: cycles are handled structurally and unknown names degrade to
// placeholders.
var (
	// ErrUnknownStrategy is returned by ParseStrategy for unrecognised names.
	ErrUnknownStrategy = errors.New("engine: unknown propagation strategy")

	// ErrInvalidSourceKey is returned when a source key is not "entity:<id>" or "object:<id>".
	ErrInvalidSourceKey = model.ErrInvalidSourceKey
)

// IsUnknownStrategyErr returns true if err is or wraps ErrUnknownStrategy.
func IsUnknownStrategyErr(err error) bool {
	return errors.Is(err, ErrUnknownStrategy)
}

// IsInvalidSourceKeyErr returns true if err is or wraps ErrInvalidSourceKey.
func IsInvalidSourceKeyErr(err error) bool {
	return errors.Is(err, ErrInvalidSourceKey)
}
