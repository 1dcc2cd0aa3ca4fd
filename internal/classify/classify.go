// Package classify normalizes an external classification capability into
// the closed request-type taxonomy. The Gateway owns every trust boundary
// around the backend: response validation, label mapping, timeout, and
// retry. Backends only produce a raw label and score.
package classify

import (
	"context"
	"errors"
	"math"
	"strings"
)

// Category is the closed set of request-type labels downstream routing
// understands.
type Category string

const (
	CategoryCommitmentChange Category = "CommitmentChange"
	CategoryFeePayment       Category = "FeePayment"
	CategoryMoneyMovement    Category = "MoneyMovement"

	// CategoryOther is the catch-all for low-confidence or unrecognized
	// content.
	CategoryOther Category = "Other"
)

// RequestTypes is the primary label vocabulary the backend is prompted
// with.
var RequestTypes = []string{
	"Adjustment",
	"AU Transfer",
	"Closing Notice",
	"Commitment Change",
	"Fee Payment",
	"Money Movement Inbound",
	"Money Movement Outbound",
}

// SubRequestTypes lists the allowed sub labels per primary label. A sub
// label outside its primary's set is dropped.
var SubRequestTypes = map[string][]string{
	"Closing Notice":          {"Reallocation Fees", "Amendment Fees", "Reallocation Principal"},
	"Commitment Change":       {"Cashless Roll", "Decrease", "Increase"},
	"Fee Payment":             {"Ongoing Fee", "Letter of Credit Fee"},
	"Money Movement Inbound":  {"Principal", "Interest", "Principal+Interest", "Principal+Interest+Fee"},
	"Money Movement Outbound": {"Timebound", "Foreign Currency"},
}

// RawResult is the strict intermediate shape a backend response is parsed
// into at the gateway boundary. Anything that does not fit is rejected
// with ErrMalformedResponse before it travels further into the pipeline.
type RawResult struct {
	Label      string
	SubLabel   string
	Confidence float64
}

// Backend is the external classification capability. Implementations make
// a single bounded network call and must honor ctx cancellation.
type Backend interface {
	ClassifyRaw(ctx context.Context, text string) (*RawResult, error)
}

// ErrMalformedResponse marks a backend response that failed structural
// validation. Not transient: the gateway never retries it.
var ErrMalformedResponse = errors.New("classify: malformed backend response")

// ErrBackendUnavailable marks timeout or transport failure after retry
// exhaustion.
var ErrBackendUnavailable = errors.New("classify: backend unavailable")

// Classification is the normalized outcome of classifying one message.
type Classification struct {
	Category   Category `json:"category"`
	Confidence float64  `json:"confidence"`

	// RawLabel and SubType preserve the backend's vocabulary for
	// downstream routing; both empty when the response was unusable.
	RawLabel string `json:"rawLabel,omitempty"`
	SubType  string `json:"subType,omitempty"`

	// BackendUnavailable is set when the backend timed out or was
	// unreachable and the result was downgraded to Other/0.
	BackendUnavailable bool `json:"backendUnavailable,omitempty"`
}

// mapLabel folds the backend vocabulary onto the closed Category set.
// Unrecognized labels fold to Other.
func mapLabel(label string) Category {
	switch canonical(label) {
	case "commitment change":
		return CategoryCommitmentChange
	case "fee payment":
		return CategoryFeePayment
	case "money movement inbound", "money movement outbound":
		return CategoryMoneyMovement
	default:
		return CategoryOther
	}
}

// validSubLabel reports whether sub is in the allowed set for the primary.
func validSubLabel(primary, sub string) bool {
	for allowedPrimary, subs := range SubRequestTypes {
		if canonical(allowedPrimary) != canonical(primary) {
			continue
		}
		for _, s := range subs {
			if canonical(s) == canonical(sub) {
				return true
			}
		}
	}
	return false
}

func canonical(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// clampConfidence forces a reported score into [0,1]; NaN becomes 0.
func clampConfidence(c float64) float64 {
	if math.IsNaN(c) {
		return 0
	}
	return math.Min(1, math.Max(0, c))
}
