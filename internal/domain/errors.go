package domain

import (
	"errors"
	"strings"
)

var (
	// ErrUnknownIntent is returned for a bulk intent outside the supported set
	ErrUnknownIntent = errors.New("unknown bulk intent")
	// ErrDuplicateTag is returned when a tag is already present on a thread
	ErrDuplicateTag = errors.New("tag already exists on thread")
	// ErrTagTooLong is returned for tags longer than MaxTagLength
	ErrTagTooLong = errors.New("tag exceeds maximum length")
	// ErrEmptyTag is returned for blank tags
	ErrEmptyTag = errors.New("tag must not be empty")
)

// ValidationError represents a rejected change, keyed by field
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, k := range Fields(toAny(e.Fields)).Keys() {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func toAny(m map[string]string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
