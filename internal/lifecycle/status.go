package lifecycle

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Status is an application's lifecycle label. Staff may move an application
// from any status to any other; the order below is display order only.
type Status string

const (
	StatusSubmitted              Status = "submitted"
	StatusDocumentsReview        Status = "documents_review"
	StatusAdditionalDocsRequired Status = "additional_docs_required"
	StatusProcessing             Status = "processing"
	StatusSubmittedToEmbassy     Status = "submitted_to_embassy"
	StatusAwaitingResponse       Status = "awaiting_response"
	StatusApproved               Status = "approved"
	StatusRejected               Status = "rejected"
	StatusCompleted              Status = "completed"
	StatusCancelled              Status = "cancelled"
)

// Statuses is the closed set in canonical display order.
var Statuses = []Status{
	StatusSubmitted,
	StatusDocumentsReview,
	StatusAdditionalDocsRequired,
	StatusProcessing,
	StatusSubmittedToEmbassy,
	StatusAwaitingResponse,
	StatusApproved,
	StatusRejected,
	StatusCompleted,
	StatusCancelled,
}

type statusMeta struct {
	label   string
	variant string
}

var statusTable = map[Status]statusMeta{
	StatusSubmitted:              {"Submitted", "blue"},
	StatusDocumentsReview:        {"Documents Review", "warning"},
	StatusAdditionalDocsRequired: {"Additional Docs Required", "warning"},
	StatusProcessing:             {"Processing", "blue"},
	StatusSubmittedToEmbassy:     {"Submitted to Embassy", "blue"},
	StatusAwaitingResponse:       {"Awaiting Response", "blue"},
	StatusApproved:               {"Approved", "success"},
	StatusRejected:               {"Rejected", "error"},
	StatusCompleted:              {"Completed", "success"},
	StatusCancelled:              {"Cancelled", "gray"},
}

func (s Status) Valid() bool {
	_, ok := statusTable[s]
	return ok
}

// Label never fails: unknown values are titleized, empty is "Unknown".
func (s Status) Label() string {
	return StatusLabel(string(s))
}

// Variant is the badge tone used by both portals.
func (s Status) Variant() string {
	if m, ok := statusTable[s]; ok {
		return m.variant
	}
	return "gray"
}

// InProgress counts towards a client's "in progress" tile.
func (s Status) InProgress() bool {
	switch s {
	case StatusSubmitted, StatusDocumentsReview, StatusAdditionalDocsRequired,
		StatusProcessing, StatusSubmittedToEmbassy, StatusAwaitingResponse:
		return true
	}
	return false
}

// Done counts towards a client's "completed" tile.
func (s Status) Done() bool {
	return s == StatusApproved || s == StatusCompleted
}

func StatusLabel(raw string) string {
	if m, ok := statusTable[Status(raw)]; ok {
		return m.label
	}
	return titleize(raw)
}

func titleize(raw string) string {
	words := strings.FieldsFunc(raw, func(r rune) bool { return r == '_' || r == '-' || r == ' ' })
	if len(words) == 0 {
		return "Unknown"
	}
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

// ParseStatus accepts only members of the closed set.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.TrimSpace(raw))
	if !s.Valid() {
		return "", &ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", raw)}
	}
	return s, nil
}

type DocumentStatus string

const (
	DocumentPendingReview DocumentStatus = "pending_review"
	DocumentApproved      DocumentStatus = "approved"
	DocumentRejected      DocumentStatus = "rejected"
)

func (d DocumentStatus) Label() string {
	return StatusLabel(string(d))
}

// ParseDecision accepts the two review outcomes; pending_review is not a decision.
func ParseDecision(raw string) (DocumentStatus, error) {
	switch d := DocumentStatus(strings.TrimSpace(raw)); d {
	case DocumentApproved, DocumentRejected:
		return d, nil
	}
	return "", &ValidationError{Field: "status", Message: "decision must be approved or rejected"}
}
