package domain

import (
	"fmt"
)

// MutationIntent is a single-entity change applied by the mutation coordinator
type MutationIntent struct {
	EntityID string
	Changes  Fields
}

// FieldNames returns the names of the changed fields
func (i MutationIntent) FieldNames() []string {
	return i.Changes.Keys()
}

// BulkIntent is the action a bulk-action bar applies to every selected thread
type BulkIntent string

const (
	BulkResolve     BulkIntent = "resolve"
	BulkUnresolve   BulkIntent = "unresolve"
	BulkImportant   BulkIntent = "important"
	BulkUnimportant BulkIntent = "unimportant"
	BulkDelete      BulkIntent = "delete"
)

// Changes translates the intent into the per-thread field changes.
// Delete is a soft delete that archives the thread.
func (i BulkIntent) Changes() (Fields, error) {
	switch i {
	case BulkResolve:
		return Fields{"resolved": true}, nil
	case BulkUnresolve:
		return Fields{"resolved": false}, nil
	case BulkImportant:
		return Fields{"important": true}, nil
	case BulkUnimportant:
		return Fields{"important": false}, nil
	case BulkDelete:
		return Fields{"archived": true}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownIntent, string(i))
}

// Verb returns a past-tense label used in notifications
func (i BulkIntent) Verb() string {
	switch i {
	case BulkResolve:
		return "resolved"
	case BulkUnresolve:
		return "reopened"
	case BulkImportant:
		return "marked important"
	case BulkUnimportant:
		return "unmarked important"
	case BulkDelete:
		return "deleted"
	}
	return string(i)
}
