package ooxml

import "fmt"

// PackageCorruptionError indicates a required part or relationship is missing
// or unparsable on an edit target. Fatal for the operation, nothing is
// written.
type PackageCorruptionError struct {
	Part   string
	Reason string
}

func (e *PackageCorruptionError) Error() string {
	return fmt.Sprintf("package part %q: %s", e.Part, e.Reason)
}

// AnchorNotFoundError indicates the anchor text of one comment was not found
// in the document body. Reported per comment, the rest of the batch proceeds.
type AnchorNotFoundError struct {
	Anchor string
}

func (e *AnchorNotFoundError) Error() string {
	return fmt.Sprintf("anchor text %q not found in document", e.Anchor)
}

// MalformedRangeError indicates a comment range that would enclose no runs.
// Detected before any mutation.
type MalformedRangeError struct {
	Anchor string
}

func (e *MalformedRangeError) Error() string {
	return fmt.Sprintf("comment range for %q would enclose no runs", e.Anchor)
}
