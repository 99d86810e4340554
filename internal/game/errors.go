package game

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidEntityID matches any InvalidEntityIDError.
	ErrInvalidEntityID = errors.New("invalid entity id")
	// ErrUnexpectedEntityType is returned when an entity is not the expected variant.
	ErrUnexpectedEntityType = errors.New("unexpected entity type")
)

// InvalidEntityIDError reports a reference to an entity missing from the world.
type InvalidEntityIDError struct {
	ID EntityID
}

func (e InvalidEntityIDError) Error() string {
	return fmt.Sprintf("invalid entity id %d", e.ID)
}

// Is lets errors.Is match ErrInvalidEntityID.
func (e InvalidEntityIDError) Is(target error) bool {
	return target == ErrInvalidEntityID
}

func unexpectedType(want, got EntityKind) error {
	return fmt.Errorf("%w: want %s, got %q", ErrUnexpectedEntityType, want, got)
}
