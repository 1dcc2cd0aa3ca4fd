package triage

import (
	"time"

	"github.com/linnemanlabs/sift/internal/classify"
	"github.com/linnemanlabs/sift/internal/extract"
)

// AttachmentFields holds the fields extracted from a single attachment.
type AttachmentFields struct {
	Name   string         `json:"name"`
	Fields extract.Fields `json:"fields"`
}

// Result is the outcome of triaging one message. Immutable once stored:
// a fingerprint is triaged exactly once and never reclassified.
type Result struct {
	ID          string            `json:"id"`
	Fingerprint string            `json:"fingerprint"`
	Category    classify.Category `json:"category"`
	Confidence  float64           `json:"confidence"`

	// RawLabel and SubType carry the backend's own vocabulary for
	// downstream routing.
	RawLabel string `json:"rawLabel,omitempty"`
	SubType  string `json:"subType,omitempty"`

	// BackendUnavailable marks a result downgraded to Other/0 because
	// the classification backend timed out or was unreachable.
	BackendUnavailable bool `json:"backendUnavailable,omitempty"`

	Extracted   extract.Fields     `json:"extracted"`
	Attachments []AttachmentFields `json:"attachments,omitempty"`

	// DuplicateOf is set only on results returned for duplicate
	// submissions, pointing at the stored fingerprint. Never persisted.
	DuplicateOf string `json:"isDuplicateOf,omitempty"`

	Model     string    `json:"model,omitempty"`
	CreatedAt time.Time `json:"timestamp"`
	Duration  float64   `json:"durationSeconds,omitempty"`
}

// payloadEqual reports whether two results carry the same triage payload,
// ignoring run identity (ID, timing, duplicate marker).
func payloadEqual(a, b *Result) bool {
	if a.Fingerprint != b.Fingerprint ||
		a.Category != b.Category ||
		a.Confidence != b.Confidence ||
		a.RawLabel != b.RawLabel ||
		a.SubType != b.SubType ||
		a.BackendUnavailable != b.BackendUnavailable ||
		!fieldsEqual(a.Extracted, b.Extracted) ||
		len(a.Attachments) != len(b.Attachments) {
		return false
	}
	for i := range a.Attachments {
		if a.Attachments[i].Name != b.Attachments[i].Name ||
			!fieldsEqual(a.Attachments[i].Fields, b.Attachments[i].Fields) {
			return false
		}
	}
	return true
}

// fieldsEqual compares extracted fields by value (Amount is a pointer).
func fieldsEqual(a, b extract.Fields) bool {
	if a.DealName != b.DealName || a.ExpirationDate != b.ExpirationDate {
		return false
	}
	if (a.Amount == nil) != (b.Amount == nil) {
		return false
	}
	return a.Amount == nil || *a.Amount == *b.Amount
}
