package appointments

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// NotProvided is stored for optional fields the patient left blank.
const NotProvided = "Not provided"

// Status is the appointment lifecycle state.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
	StatusNoShow    Status = "NO_SHOW"
)

var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled, StatusNoShow},
}

// AllStatuses lists every status in display order.
var AllStatuses = []Status{StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow}

// ParseStatus accepts any casing and surrounding whitespace.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range AllStatuses {
		if st == known {
			return st, nil
		}
	}
	return "", fmt.Errorf("appointments: unknown status %q", s)
}

// CanTransition reports whether to is reachable from s in one step.
func (s Status) CanTransition(to Status) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// Reschedulable reports whether the date and time may still change.
func (s Status) Reschedulable() bool {
	return s == StatusPending || s == StatusConfirmed
}

// Type is the appointment category.
type Type string

const (
	TypeGeneral    Type = "general"
	TypeCardiology Type = "cardiology"
	TypePediatrics Type = "pediatrics"
	TypeLaboratory Type = "laboratory"
	TypePharmacy   Type = "pharmacy"
	TypeEmergency  Type = "emergency"
	TypePrimary    Type = "primary"
)

var typeAliases = map[string]Type{
	"general":      TypeGeneral,
	"consultation": TypeGeneral,
	"cardiology":   TypeCardiology,
	"pediatrics":   TypePediatrics,
	"paediatrics":  TypePediatrics,
	"lab":          TypeLaboratory,
	"laboratory":   TypeLaboratory,
	"pharmacy":     TypePharmacy,
	"emergency":    TypeEmergency,
	"primary":      TypePrimary,
}

var typeLabels = map[Type]string{
	TypeGeneral:    "General Consultation",
	TypeCardiology: "Cardiology",
	TypePediatrics: "Pediatrics",
	TypeLaboratory: "Laboratory Tests",
	TypePharmacy:   "Pharmacy",
	TypeEmergency:  "Emergency Care",
	TypePrimary:    "Primary Care",
}

// ParseType resolves aliases; unknown categories are kept lower-cased.
func ParseType(s string) Type {
	key := strings.ToLower(strings.TrimSpace(s))
	if t, ok := typeAliases[key]; ok {
		return t
	}
	return Type(key)
}

// Label is the human-readable category name used in mail.
func (t Type) Label() string {
	if label, ok := typeLabels[t]; ok {
		return label
	}
	return string(t)
}

// Appointment is the persisted booking record.
type Appointment struct {
	ID                string    `json:"id"`
	FirstName         string    `json:"firstName"`
	LastName          string    `json:"lastName"`
	Email             string    `json:"email"`
	Phone             string    `json:"phone"`
	DateOfBirth       string    `json:"dateOfBirth"`
	EmergencyContact  string    `json:"emergencyContact"`
	AppointmentType   Type      `json:"appointmentType"`
	PreferredDate     string    `json:"preferredDate"`
	PreferredTime     string    `json:"preferredTime"`
	Doctor            string    `json:"doctor"`
	Reason            string    `json:"reason"`
	Symptoms          string    `json:"symptoms"`
	PreviousVisit     bool      `json:"previousVisit"`
	HasInsurance      bool      `json:"hasInsurance"`
	InsuranceProvider string    `json:"insuranceProvider"`
	PolicyNumber      string    `json:"policyNumber"`
	Status            Status    `json:"status"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// FullName joins first and last name.
func (a Appointment) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// DoctorOr returns the assigned doctor or fallback when none is set.
func (a Appointment) DoctorOr(fallback string) string {
	if a.Doctor == "" || a.Doctor == NotProvided {
		return fallback
	}
	return a.Doctor
}

// Submission is the raw booking form as posted by the website.
type Submission struct {
	FirstName         string   `json:"firstName"`
	LastName          string   `json:"lastName"`
	Email             string   `json:"email"`
	Phone             string   `json:"phone"`
	DateOfBirth       string   `json:"dateOfBirth"`
	EmergencyContact  string   `json:"emergencyContact"`
	AppointmentType   string   `json:"appointmentType"`
	PreferredDate     string   `json:"preferredDate"`
	PreferredTime     string   `json:"preferredTime"`
	Doctor            string   `json:"doctor"`
	Reason            string   `json:"reason"`
	Symptoms          string   `json:"symptoms"`
	PreviousVisit     FlexBool `json:"previousVisit"`
	HasInsurance      FlexBool `json:"hasInsurance"`
	InsuranceProvider string   `json:"insuranceProvider"`
	PolicyNumber      string   `json:"policyNumber"`
	// Status is accepted on the wire and ignored: new records are always PENDING.
	Status string `json:"status,omitempty"`
}

// FlexBool decodes JSON booleans as well as the "yes"/"no" strings the
// booking form's radio buttons send.
type FlexBool bool

func (b *FlexBool) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*b = false
		return nil
	}
	var v bool
	if err := json.Unmarshal(data, &v); err == nil {
		*b = FlexBool(v)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("appointments: invalid boolean %s", data)
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "true", "y", "1", "on":
		*b = true
	case "", "no", "false", "n", "0", "off":
		*b = false
	default:
		return fmt.Errorf("appointments: invalid boolean %q", s)
	}
	return nil
}

// Normalize applies the store's write rules: trimmed strings, lower-cased
// email, canonical type and date, NotProvided for blank optionals and a
// PENDING status regardless of input.
func Normalize(sub Submission) Appointment {
	date := strings.TrimSpace(sub.PreferredDate)
	if d, err := parseDate(date); err == nil {
		date = d.Format(dateLayout)
	}
	return Appointment{
		FirstName:         strings.TrimSpace(sub.FirstName),
		LastName:          strings.TrimSpace(sub.LastName),
		Email:             strings.ToLower(strings.TrimSpace(sub.Email)),
		Phone:             strings.TrimSpace(sub.Phone),
		DateOfBirth:       optional(sub.DateOfBirth),
		EmergencyContact:  optional(sub.EmergencyContact),
		AppointmentType:   ParseType(sub.AppointmentType),
		PreferredDate:     date,
		PreferredTime:     strings.TrimSpace(sub.PreferredTime),
		Doctor:            optional(sub.Doctor),
		Reason:            strings.TrimSpace(sub.Reason),
		Symptoms:          optional(sub.Symptoms),
		PreviousVisit:     bool(sub.PreviousVisit),
		HasInsurance:      bool(sub.HasInsurance),
		InsuranceProvider: optional(sub.InsuranceProvider),
		PolicyNumber:      optional(sub.PolicyNumber),
		Status:            StatusPending,
	}
}

func optional(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return NotProvided
	}
	return s
}

// Filter narrows admin listings. Zero values match everything.
type Filter struct {
	Status Status
	Date   string
	Search string
}

// Matches applies the filter in memory.
func (f Filter) Matches(a Appointment) bool {
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	if f.Date != "" && a.PreferredDate != f.Date {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		haystack := []string{a.FirstName, a.LastName, a.Email, a.Phone}
		for _, h := range haystack {
			if strings.Contains(strings.ToLower(h), q) {
				return true
			}
		}
		return false
	}
	return true
}
