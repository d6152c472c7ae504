package analytics

import (
	"errors"
	"strings"

	"github.com/Angleito/walgit-sub001/resilience"
)

// Keyword tables for message-based classification. Heuristic and not
// exhaustive; unmatched errors classify as unknown.
var categoryKeywords = []struct {
	category Category
	terms    []string
}{
	{CategoryAuthentication, []string{
		"unauthorized", "forbidden", "auth", "credential", "permission denied", "keypair", "access denied",
	}},
	{CategoryValidation, []string{
		"validation", "invalid", "malformed", "schema",
	}},
	{CategoryTransaction, []string{
		"transaction", "gas", "ledger", "nonce", "sui", "checkpoint", "epoch", "move abort",
	}},
	{CategoryStorage, []string{
		"blob", "storage", "walrus", "upload", "download", "quota", "disk", "chunk",
	}},
	{CategoryNetwork, []string{
		"network", "connection", "timeout", "timed out", "dns", "unreachable", "refused", "reset", "socket", "eof", "rate limit",
	}},
}

// classifyCategory resolves a failure's category: an explicit context
// category wins, then an error's declared kind, then keyword matching.
func classifyCategory(err error, fctx Context) Category {
	if fctx.Category != "" {
		return fctx.Category
	}

	var classified Classified
	if errors.As(err, &classified) {
		return classified.FailureCategory()
	}
	if resilience.IsValidation(err) {
		return CategoryValidation
	}

	if err == nil {
		return CategoryUnknown
	}
	msg := strings.ToLower(err.Error())
	for _, entry := range categoryKeywords {
		for _, term := range entry.terms {
			if strings.Contains(msg, term) {
				return entry.category
			}
		}
	}
	return CategoryUnknown
}

// transientTerms mark messages that usually self-heal; such failures
// log at warning rather than error severity.
var transientTerms = []string{
	"timeout", "timed out", "connection reset", "connection refused",
	"rate limit", "too many requests", "temporarily unavailable", "try again",
}

// normalizeSeverity validates a caller-supplied severity and applies
// message-driven escalation: critical/fatal wording always escalates,
// transient wording downgrades an unspecified severity to warning.
func normalizeSeverity(sev Severity, message string) Severity {
	msg := strings.ToLower(message)
	if strings.Contains(msg, "critical") || strings.Contains(msg, "fatal") {
		return SeverityCritical
	}

	switch sev {
	case SeverityInfo, SeverityWarning, SeverityError, SeverityCritical:
		return sev
	}

	for _, term := range transientTerms {
		if strings.Contains(msg, term) {
			return SeverityWarning
		}
	}
	return SeverityError
}
