package dispatch

import (
	"errors"
	"fmt"
)

// Lookup errors. All of them wrap ErrLookup.
var (
	ErrLookup           = errors.New("dispatch: lookup failed")
	ErrUnknownCluster   = fmt.Errorf("%w: unknown cluster", ErrLookup)
	ErrUnknownAttribute = fmt.Errorf("%w: unknown attribute", ErrLookup)
	ErrNotWritable      = fmt.Errorf("%w: attribute is not writable", ErrLookup)
)

// Argument contract errors. All of them wrap ErrContract and are returned
// before anything is sent.
var (
	ErrContract        = errors.New("dispatch: contract violation")
	ErrMissingArgument = fmt.Errorf("%w: missing argument", ErrContract)
	ErrArgumentType    = fmt.Errorf("%w: argument type mismatch", ErrContract)
	ErrTargetType      = fmt.Errorf("%w: target type mismatch", ErrContract)
)
