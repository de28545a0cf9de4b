// Package eventerr collects per-event error occurrences and run totals.
package eventerr

import (
	"fmt"
	"strings"
)

// Category tags the subsystem that reported an occurrence.
type Category uint8

const (
	CategoryDatagram Category = iota
	CategoryEventContrib
	CategoryContext
	CategoryGEM
	CategoryTKR
	CategoryCAL
	CategoryACD
	CategoryUnrecognizedComponent
	numCategories
)

var categoryNames = [numCategories]string{
	CategoryDatagram:              "DATAGRAM_ERROR",
	CategoryEventContrib:          "EVENT_CONTRIB_ERROR",
	CategoryContext:               "CONTEXT_ERROR",
	CategoryGEM:                   "GEM_CONTRIB_ERROR",
	CategoryTKR:                   "TKR_CONTRIB_ERROR",
	CategoryCAL:                   "CAL_CONTRIB_ERROR",
	CategoryACD:                   "ACD_CONTRIB_ERROR",
	CategoryUnrecognizedComponent: "UNRECOGNIZED_COMPONENT",
}

// Categories lists every category in mask bit order.
func Categories() []Category {
	out := make([]Category, numCategories)
	for i := range out {
		out[i] = Category(i)
	}
	return out
}

func ParseCategory(raw string) (Category, error) {
	want := strings.ToUpper(strings.TrimSpace(raw))
	for i, name := range categoryNames {
		if name == want {
			return Category(i), nil
		}
	}
	return 0, fmt.Errorf("eventerr: unknown category %q", raw)
}

func (c Category) String() string {
	if c < numCategories {
		return categoryNames[c]
	}
	return fmt.Sprintf("CATEGORY_%d", uint8(c))
}

// Bit is the category's flag in a summary mask.
func (c Category) Bit() uint32 {
	return 1 << uint32(c)
}

// Code is the signed result every decoder handler returns.
// Negative aborts the current event, zero continues, positive continues but
// must be reported.
type Code int32

const (
	OK Code = 0

	CodeUnknownDatagram       Code = 1
	CodeContribNotInSummary   Code = 2
	CodeMissingContribution   Code = 3
	CodeDuplicateContribution Code = 4
	CodeUnrecognizedComponent Code = 5
	CodeTrailingBytes         Code = 6
	CodeShortContext          Code = 7
	CodeEmptyEvent            Code = 8

	// CodeUnknownErrorCode stands in for a non-zero handler result that
	// arrived without its own report. Arg1 of the occurrence carries the
	// returned code.
	CodeUnknownErrorCode Code = 1000

	CodeBadContributionLength Code = -1
	CodeShortEventHeader      Code = -2
	CodeTruncatedPayload      Code = -3
	CodeBadDiagnostic         Code = -4
	CodeBadDatagramLength     Code = -5
)

var codeNames = map[Code]string{
	OK:                        "OK",
	CodeUnknownDatagram:       "UNKNOWN_DATAGRAM",
	CodeContribNotInSummary:   "CONTRIB_NOT_IN_SUMMARY",
	CodeMissingContribution:   "MISSING_CONTRIBUTION",
	CodeDuplicateContribution: "DUPLICATE_CONTRIBUTION",
	CodeUnrecognizedComponent: "UNRECOGNIZED_COMPONENT",
	CodeTrailingBytes:         "TRAILING_BYTES",
	CodeShortContext:          "SHORT_CONTEXT",
	CodeEmptyEvent:            "EMPTY_EVENT",
	CodeUnknownErrorCode:      "UNKNOWN_ERROR_CODE",
	CodeBadContributionLength: "BAD_CONTRIBUTION_LENGTH",
	CodeShortEventHeader:      "SHORT_EVENT_HEADER",
	CodeTruncatedPayload:      "TRUNCATED_PAYLOAD",
	CodeBadDiagnostic:         "BAD_DIAGNOSTIC",
	CodeBadDatagramLength:     "BAD_DATAGRAM_LENGTH",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("CODE_%d", int32(c))
}

// Aborts reports whether the code unwinds the current event.
func (c Code) Aborts() bool {
	return c < 0
}

func (c Code) Severity() Severity {
	switch {
	case c < 0:
		return SeverityAbort
	case c > 0:
		return SeverityRecoverable
	default:
		return SeverityNone
	}
}

type Severity uint8

const (
	SeverityNone Severity = iota
	SeverityRecoverable
	SeverityAbort
)

func (s Severity) String() string {
	switch s {
	case SeverityRecoverable:
		return "recoverable"
	case SeverityAbort:
		return "abort"
	default:
		return "none"
	}
}
