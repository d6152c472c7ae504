package analytics

import "time"

// Category classifies a failure by its origin.
type Category string

const (
	CategoryNetwork        Category = "network"
	CategoryStorage        Category = "storage"
	CategoryTransaction    Category = "transaction"
	CategoryAuthentication Category = "authentication"
	CategoryValidation     Category = "validation"
	CategoryUnknown        Category = "unknown"
)

// Severity grades a failure's impact.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Classified is implemented by errors that declare their own failure
// category. Classification prefers it over keyword matching.
type Classified interface {
	FailureCategory() Category
}

// TransactionDetails carries ledger-transaction context for a failure.
type TransactionDetails struct {
	Digest    string `json:"digest,omitempty"`
	Sender    string `json:"sender,omitempty"`
	GasBudget uint64 `json:"gas_budget,omitempty"`
	GasUsed   uint64 `json:"gas_used,omitempty"`
	Status    string `json:"status,omitempty"`
}

// FailureRecord is an immutable account of one terminal failure.
type FailureRecord struct {
	ID          string              `json:"id"`
	Timestamp   time.Time           `json:"timestamp"`
	ErrorType   Category            `json:"error_type"`
	Severity    Severity            `json:"severity"`
	Operation   string              `json:"operation"`
	Component   string              `json:"component"`
	Message     string              `json:"message"`
	Metadata    map[string]string   `json:"metadata,omitempty"`
	Transaction *TransactionDetails `json:"transaction,omitempty"`
}

// Context supplies caller-known details when logging a failure. All
// fields are optional; Category and Severity override classification.
type Context struct {
	Operation   string
	Component   string
	Category    Category
	Severity    Severity
	Metadata    map[string]string
	Transaction *TransactionDetails
}

// OperationStats are rolling counters for one operation or component.
type OperationStats struct {
	Attempts       int64
	Successes      int64
	Failures       int64
	RecentFailures []FailureSummary
}

// FailureSummary is a compact reference to a recent failure.
type FailureSummary struct {
	ID        string
	Timestamp time.Time
	ErrorType Category
	Severity  Severity
	Message   string
}

func summarize(r *FailureRecord) FailureSummary {
	return FailureSummary{
		ID:        r.ID,
		Timestamp: r.Timestamp,
		ErrorType: r.ErrorType,
		Severity:  r.Severity,
		Message:   r.Message,
	}
}
