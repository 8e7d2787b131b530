package models

import "fmt"

// DiagnosticKind classifies a recovered per-item failure.
type DiagnosticKind string

const (
	DiagParseFailure     DiagnosticKind = "parse_failure"
	DiagIOFailure        DiagnosticKind = "io_failure"
	DiagEmbeddingFailure DiagnosticKind = "embedding_failure"
	DiagSummaryFailure   DiagnosticKind = "summary_failure"
)

// String implements fmt.Stringer for toon serialization.
func (k DiagnosticKind) String() string { return string(k) }

// Diagnostic records something that was skipped and why. Diagnostics never
// stop a stage; they accompany its output.
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind"`
	File    string         `json:"file,omitempty"`
	Class   string         `json:"class,omitempty"`
	Message string         `json:"message"`
}

// String renders a single human-readable line.
func (d Diagnostic) String() string {
	switch {
	case d.Class != "" && d.File != "":
		return fmt.Sprintf("%s: %s:%s: %s", d.Kind, d.File, d.Class, d.Message)
	case d.File != "":
		return fmt.Sprintf("%s: %s: %s", d.Kind, d.File, d.Message)
	default:
		return fmt.Sprintf("%s: %s", d.Kind, d.Message)
	}
}
