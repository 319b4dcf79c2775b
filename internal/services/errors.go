package services

import (
	"errors"

	"github.com/markdave123-py/StudyCoach/internal/core"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	// ErrHashMismatch is returned when a client-supplied content hash does not
	// match the hash of the extracted text.
	ErrHashMismatch = errors.New("content hash does not match document")
	// ErrGenerationFailed is returned when no chunk of a document produced notes.
	ErrGenerationFailed = errors.New("notes generation failed for every chunk")
	ErrNotFound         = core.ErrNotFound
)
