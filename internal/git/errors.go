package git

import "errors"

// Metadata errors
var (
	ErrNoSourceFolder = errors.New("source folder is not set")
	ErrNotRepository  = errors.New("source folder is not a git repository")
)
