package errors

import (
	"fmt"
)

var (
	ErrInvalidConfig      = fmt.Errorf("caresetu: invalid config")
	ErrNotFound           = fmt.Errorf("caresetu: not found")
	ErrInvalidParams      = fmt.Errorf("caresetu: invalid params")
	ErrIndexUnavailable   = fmt.Errorf("caresetu: index unavailable")
	ErrConflictDetected   = fmt.Errorf("caresetu: conflict detected")
	ErrPersistenceFailure = fmt.Errorf("caresetu: persistence failure")
)
