package lifecycle

import (
	"errors"

	"itsaportal/internal/gateway"
)

var ErrValidation = errors.New("validation failed")

// ValidationError is raised before any gateway call and names the offending
// input so the view can show it next to that control.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

type Kind int

const (
	KindNone Kind = iota
	KindValidation
	KindConfiguration
	KindGateway
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConfiguration:
		return "configuration"
	case KindGateway:
		return "gateway"
	}
	return "none"
}

// KindOf places err in the portal's error taxonomy. Anything that is neither
// a validation nor a configuration failure came from the gateway.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, gateway.ErrNotConfigured):
		return KindConfiguration
	}
	return KindGateway
}

// Message is the banner text for err.
func Message(err error) string {
	if KindOf(err) == KindConfiguration {
		return gateway.NotConfiguredMessage
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
