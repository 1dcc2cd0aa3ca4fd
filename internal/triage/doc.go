// Package triage is the business boundary for sift's message triage
// pipeline. It defines the Service (fingerprint, dedup short-circuit,
// concurrent extraction and classification, atomic persistence), the
// Store interface, and the domain models.
package triage
