package collapse

import "errors"

// Collapse errors
var (
	ErrInvalidMaterialKind = errors.New("invalid material kind")
	ErrNoBuildingPresent   = errors.New("no building present")
)
