package codec

import "errors"

// ErrMalformedDocument is returned when an imported document lacks the
// required top-level shape. No session state is changed when it is returned.
var ErrMalformedDocument = errors.New("malformed document")
