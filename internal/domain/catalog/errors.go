package catalog

import "errors"

// Sentinel kinds for catalog construction errors.
var (
	ErrEmpty       = errors.New("catalog has no criteria")
	ErrEmptyID     = errors.New("criterion id is empty")
	ErrEmptyLayer  = errors.New("criterion layer is empty")
	ErrDuplicateID = errors.New("duplicate criterion id")
	ErrLoadCatalog = errors.New("load catalog failed")
)
