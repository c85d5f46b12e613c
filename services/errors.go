package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
	// ErrInUse is returned when deleting a record that others still reference.
	ErrInUse = errors.New("in use")
)

func notFound(resource string, key interface{}) error {
	return fmt.Errorf("%s %v: %w", resource, key, ErrNotFound)
}

func duplicate(resource, field string, value interface{}) error {
	return fmt.Errorf("%s with %s %v: %w", resource, field, value, ErrDuplicate)
}

// lookupErr turns gorm.ErrRecordNotFound into ErrNotFound and wraps anything else.
func lookupErr(err error, resource string, key interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound(resource, key)
	}
	return fmt.Errorf("failed to load %s %v: %w", resource, key, err)
}
