package strategy

import (
	"fmt"

	"github.com/Angleito/walgit-sub001/analytics"
)

// OperationError is the enriched terminal error returned to callers:
// the original failure plus its category, attempt count, and a
// category-derived remediation hint.
type OperationError struct {
	Operation   string
	Category    analytics.Category
	Attempts    int
	Remediation string
	Err         error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("strategy: %s failed after %d attempt(s) (%s): %v", e.Operation, e.Attempts, e.Category, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// remediationFor maps a failure category to a remediation hint.
func remediationFor(category analytics.Category) string {
	switch category {
	case analytics.CategoryNetwork:
		return "check network connectivity and endpoint availability, then retry"
	case analytics.CategoryStorage:
		return "verify blob availability on the storage network before retrying"
	case analytics.CategoryTransaction:
		return "review gas budget and transaction parameters before resubmitting"
	case analytics.CategoryAuthentication:
		return "verify credentials and key material"
	case analytics.CategoryValidation:
		return "fix the request parameters; retrying will not help"
	default:
		return ""
	}
}
