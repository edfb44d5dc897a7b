package core

import (
	"errors"
	"fmt"
)

// ErrUnsupportedFormat indicates a file extension the parser cannot read.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// ErrCorruptFile indicates a file whose container or text could not be decoded.
var ErrCorruptFile = errors.New("corrupt file")

// ErrEmptyData indicates a structurally valid file without data rows.
// The parser never returns it; callers raise it when emptiness matters.
var ErrEmptyData = errors.New("empty file: no data rows")

// ErrUnknownDataset indicates a dataset key that is not registered.
var ErrUnknownDataset = errors.New("unknown dataset")

// FileFormatError reports a file that could not be opened or parsed.
type FileFormatError struct {
	FileName string
	Format   string // "xlsx", "csv", "json" or the rejected extension
	Err      error
}

func (e *FileFormatError) Error() string {
	return fmt.Sprintf("parse %s (%s): %v", e.FileName, e.Format, e.Err)
}

func (e *FileFormatError) Unwrap() error {
	return e.Err
}

// NewFileFormatError creates a new FileFormatError.
func NewFileFormatError(fileName, format string, err error) *FileFormatError {
	return &FileFormatError{
		FileName: fileName,
		Format:   format,
		Err:      err,
	}
}
