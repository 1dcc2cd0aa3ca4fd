// Package message defines the inbound message model for triage.
package message

import (
	"fmt"
	"strings"
)

// Attachment is a named attachment carried with a message. Text holds the
// decoded text content when the attachment is textual, empty otherwise.
type Attachment struct {
	Name string `json:"name"`
	Text string `json:"text,omitempty"`
}

// Message is a raw inbound email or document. Immutable once received.
type Message struct {
	Subject     string       `json:"subject,omitempty"`
	Body        string       `json:"body"`
	Sender      string       `json:"sender,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// ValidationError reports a malformed message rejected before triage.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid message: %s %s", e.Field, e.Reason)
}

// Validate checks the message is well-formed enough to triage.
// A whitespace-only body is accepted (it still fingerprints), a missing
// body is not.
func (m *Message) Validate() error {
	if m.Body == "" {
		return &ValidationError{Field: "body", Reason: "is required"}
	}
	return nil
}

// Text returns the subject and body joined for classification input.
func (m *Message) Text() string {
	if strings.TrimSpace(m.Subject) == "" {
		return m.Body
	}
	return m.Subject + "\n\n" + m.Body
}
