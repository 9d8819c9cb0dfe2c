package core

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by the metadata store when no record exists for an
// (agent, workspace slot) pair.
var ErrNotFound = errors.New("metadata record not found")

// SectionNotFoundError reports a declared section id with no resolvable text:
// it appears neither in the prompt config's overrides nor in the section
// resolver's backing store.
type SectionNotFoundError struct {
	ID string
}

func (e *SectionNotFoundError) Error() string {
	return fmt.Sprintf("prompt section %q not found", e.ID)
}

// AmbiguousVariableError reports a name declared in both the static variables
// map and the dynamic variables map. The conflict indicates contradictory
// operator intent and is never resolved by precedence.
type AmbiguousVariableError struct {
	Name string
}

func (e *AmbiguousVariableError) Error() string {
	return fmt.Sprintf("variable %q is declared in both variables and dynamic_variables", e.Name)
}

// StagingRequiredError reports a production push whose config hash has not
// been pushed to staging first.
type StagingRequiredError struct {
	Slot WorkspaceSlot
}

func (e *StagingRequiredError) Error() string {
	return fmt.Sprintf("push to %s requires this exact config to be pushed to staging first", e.Slot)
}

// MetadataCorruptError reports a stored metadata record that failed to parse.
type MetadataCorruptError struct {
	Key string
	Err error
}

func (e *MetadataCorruptError) Error() string {
	return fmt.Sprintf("metadata record %s is corrupt: %v", e.Key, e.Err)
}

func (e *MetadataCorruptError) Unwrap() error { return e.Err }
