package models

import "familytodo/internal/apperr"

// ErrTextRequired is returned when a task has no text
var ErrTextRequired = apperr.Validation("Text is required")
