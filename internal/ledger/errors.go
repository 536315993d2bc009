package ledger

import "errors"

// Sentinel errors returned by ledger operations. Callers must be able to tell
// "the input was bad" apart from "the audit trail itself could not be
// written"; the latter is a reportable incident in its own right.
var (
	ErrValidation  = errors.New("validation failed")
	ErrStorage     = errors.New("storage failure")
	ErrChainBroken = errors.New("hash chain broken")
	ErrNotFound    = errors.New("not found")
)
