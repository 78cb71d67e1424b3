package workspace

import (
	"errors"
	"fmt"
)

// Sentinel errors for consistent error handling across workspace operations.
var (
	ErrNotFound        = errors.New("path does not exist")
	ErrNotAFolder      = errors.New("path is not a folder")
	ErrNotAFile        = errors.New("path is not a file")
	ErrExists          = errors.New("an item with that name already exists")
	ErrEmptyName       = errors.New("name cannot be empty")
	ErrInvalidName     = errors.New("name cannot contain '/'")
	ErrCyclicMove      = errors.New("cannot move a folder into itself or its own subtree")
	ErrTextNotFound    = errors.New("text not found in file")
	ErrAmbiguousEdit   = errors.New("exactly one of newContent or findText/replaceText must be provided")
	ErrInvalidNodeType = errors.New("type must be \"file\" or \"folder\"")
)

func notFound(path string) error {
	return fmt.Errorf("%q: %w", displayPath(path), ErrNotFound)
}

func notAFolder(path string) error {
	return fmt.Errorf("%q: %w", displayPath(path), ErrNotAFolder)
}

func notAFile(path string) error {
	return fmt.Errorf("%q: %w", displayPath(path), ErrNotAFile)
}

func alreadyExists(path string) error {
	return fmt.Errorf("%q: %w", displayPath(path), ErrExists)
}

func displayPath(path string) string {
	if path == "" {
		return "/"
	}
	return path
}
