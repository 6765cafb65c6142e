// Package apperr defines the error taxonomy shared by every surface.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Fatal input/configuration errors. Any of these aborts a run before a file is touched.
var (
	ErrFolderNotFound   = errors.New("diary folder does not exist")
	ErrTemplateNotFound = errors.New("diary template does not exist")
	ErrNoDiaries        = errors.New("no diary files found in the specified folder")
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrModelCall    = errors.New("model call failed")
	ErrConflict     = errors.New("conflict")
	ErrBusy         = errors.New("a summary run is already in progress")
)

// FileError is a recoverable failure scoped to a single diary file.
type FileError struct {
	Name string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Name, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err must abort a whole run rather than a single file.
func IsFatal(err error) bool {
	return errors.Is(err, ErrFolderNotFound) ||
		errors.Is(err, ErrTemplateNotFound) ||
		errors.Is(err, ErrNoDiaries)
}

// HTTPStatus maps err onto the status code reported by HTTP surfaces.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrFolderNotFound),
		errors.Is(err, ErrNoDiaries):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrBusy), errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrModelCall):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
