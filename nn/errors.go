package nn

import "errors"

// Sentinel errors for model construction and serialization.
var (
	// ErrInvalidTopology reports a malformed layer graph: a cycle, an
	// unreachable output, a missing input dimension, or mismatched
	// widths between connected layers. Detected at build time, never
	// silently repaired.
	ErrInvalidTopology = errors.New("invalid topology")

	// ErrNonSerializable reports that an architecture contains a layer
	// with non-declarative logic (a Lambda). Parameter serialization is
	// unaffected; only the architecture description cannot be written.
	ErrNonSerializable = errors.New("non-serializable layer")

	// ErrUnknownIdentifier reports a registry lookup for an activation,
	// initializer, regularizer, loss or optimizer name that is not
	// registered.
	ErrUnknownIdentifier = errors.New("unknown identifier")
)
