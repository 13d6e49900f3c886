// Copyright SAP SE
// SPDX-License-Identifier: Apache-2.0

package flavor

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyDocument     = errors.New("empty document")
	ErrMultipleDocuments = errors.New("expected exactly one yaml document")
	ErrMissingField      = errors.New("missing required field")
	ErrUnknownField      = errors.New("unknown field")
	ErrDuplicateKey      = errors.New("duplicate key")
	ErrInvalidValue      = errors.New("invalid value")
	ErrDuplicateName     = errors.New("duplicate flavor name")
)

// Error returned by the loader. Any loader error aborts the whole load,
// since a partially loaded catalog would classify machines into lesser
// flavors without anyone noticing.
type LoaderError struct {
	// The offending file.
	File string
	// The offending field, e.g. "memory_gb" or "baseboard.gen9.disk_gb".
	// Empty if the error concerns the whole document.
	Field string
	// The underlying error.
	Err error
}

func (e *LoaderError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("flavor file %s: %v", e.File, e.Err)
	}
	return fmt.Sprintf("flavor file %s: field %s: %v", e.File, e.Field, e.Err)
}

func (e *LoaderError) Unwrap() error { return e.Err }
