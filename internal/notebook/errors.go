package notebook

import "errors"

var (
	// ErrMalformedNotebook reports input that is structurally invalid for its
	// encoding: no cell regions in XML-tagged text, or a JSON document
	// without a "cells" array.
	ErrMalformedNotebook = errors.New("malformed notebook")
	// ErrInvalidJSON reports JSON-encoded input that does not parse.
	ErrInvalidJSON = errors.New("invalid notebook json")
)
