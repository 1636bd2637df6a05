package loader

import (
	"errors"
	"fmt"
)

var (
	// ErrParse marks a file that is not valid JSON or has the wrong top-level shape
	ErrParse = errors.New("malformed result file")

	// ErrMissingResults marks a JSON object without a "results" key
	ErrMissingResults = errors.New("missing results key")

	// ErrNoInputFiles is returned when no file in the input directory matches
	ErrNoInputFiles = errors.New("no input files match")
)

// FileError records why a file was skipped. The run continues without it.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}
