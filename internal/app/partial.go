package lifecycle

import (
	"fmt"
	"strings"
)

// PartialFailure reports a multi-step operation that failed midway and
// could not be fully unwound. Completed names the steps still applied,
// in execution order, so callers can reconcile the cup manually.
type PartialFailure struct {
	Op          string
	Cup         string
	OperationID string
	Completed   []string
	Err         error
}

func (e *PartialFailure) Error() string {
	return fmt.Sprintf("%s %s (operation %s): steps [%s] left applied after failure: %v",
		e.Op, e.Cup, e.OperationID, strings.Join(e.Completed, ", "), e.Err)
}

func (e *PartialFailure) Unwrap() error {
	return e.Err
}
