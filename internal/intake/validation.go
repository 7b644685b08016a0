package intake

import (
	"regexp"
	"strings"
)

// ValidationKind classifies a caller-correctable rejection.
type ValidationKind string

const (
	KindMissingFields     ValidationKind = "MissingFields"
	KindInvalidEmail      ValidationKind = "InvalidEmail"
	KindPastDate          ValidationKind = "PastDate"
	KindInvalidStatus     ValidationKind = "InvalidStatus"
	KindInvalidTransition ValidationKind = "InvalidTransition"
)

// ValidationError is returned before anything is persisted or sent.
type ValidationError struct {
	Kind   ValidationKind
	Fields []string
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case KindMissingFields:
		return "Missing required fields"
	case KindInvalidEmail:
		return "Invalid email format"
	case KindPastDate:
		return "Appointment date must be in the future"
	case KindInvalidStatus:
		return "Invalid status"
	case KindInvalidTransition:
		return "Invalid status transition"
	default:
		return string(e.Kind)
	}
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether s has a local@domain.tld shape.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// Field pairs a wire name with its submitted value.
type Field struct {
	Name  string
	Value string
}

// MissingFields lists every blank field, in the order given.
func MissingFields(fields ...Field) []string {
	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(f.Value) == "" {
			missing = append(missing, f.Name)
		}
	}
	return missing
}

// CheckContact runs the presence check over required, then the email shape
// check, stopping at the first failure.
func CheckContact(email string, required ...Field) error {
	if missing := MissingFields(required...); len(missing) > 0 {
		return &ValidationError{Kind: KindMissingFields, Fields: missing}
	}
	if !ValidEmail(strings.TrimSpace(email)) {
		return &ValidationError{Kind: KindInvalidEmail}
	}
	return nil
}

// Response is the 400 body for a validation failure.
func (e *ValidationError) Response() map[string]any {
	body := map[string]any{"error": e.Error()}
	if e.Kind == KindMissingFields && len(e.Fields) > 0 {
		body["missingFields"] = e.Fields
	}
	return body
}
