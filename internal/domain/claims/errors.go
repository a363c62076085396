package claims

import "errors"

// Conversion error kinds. All abort the conversion in progress; none are
// retried at this layer.
var (
	// ErrNotFound is returned by the record store on an exact-match miss.
	ErrNotFound = errors.New("record not found")

	// ErrUnmappedCategory marks a claim status, adjudication category, or
	// reason code with no entry in the static mapping tables.
	ErrUnmappedCategory = errors.New("unmapped category")

	// ErrUnresolvableReference marks a reference whose type tag matches no
	// known kind, or whose target record does not exist.
	ErrUnresolvableReference = errors.New("unresolvable reference")

	// ErrMissingClaimLink marks a response document whose root identifier
	// does not resolve to an existing claim.
	ErrMissingClaimLink = errors.New("response does not link to an existing claim")

	// ErrMissingRequiredExtension marks a document lacking an extension the
	// reverse conversion requires (billable period, item reference).
	ErrMissingRequiredExtension = errors.New("missing required extension")
)
