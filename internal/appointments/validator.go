package appointments

import (
	"strings"
	"time"

	"github.com/dohanimedicare/medicare-platform/internal/intake"
)

const dateLayout = "2006-01-02"

// Validate checks a submission before anything is stored: presence of every
// required field, then email shape, then that the preferred date is not
// before today. today is interpreted in its own location, date only.
func Validate(sub Submission, today time.Time) error {
	err := intake.CheckContact(sub.Email,
		intake.Field{Name: "firstName", Value: sub.FirstName},
		intake.Field{Name: "lastName", Value: sub.LastName},
		intake.Field{Name: "email", Value: sub.Email},
		intake.Field{Name: "phone", Value: sub.Phone},
		intake.Field{Name: "appointmentType", Value: sub.AppointmentType},
		intake.Field{Name: "preferredDate", Value: sub.PreferredDate},
		intake.Field{Name: "preferredTime", Value: sub.PreferredTime},
		intake.Field{Name: "reason", Value: sub.Reason},
	)
	if err != nil {
		return err
	}
	return ValidateDate(sub.PreferredDate, today)
}

// ValidateDate rejects dates that are unparseable or strictly before today.
func ValidateDate(value string, today time.Time) error {
	d, err := parseDate(value)
	if err != nil {
		return &intake.ValidationError{Kind: intake.KindPastDate, Fields: []string{"preferredDate"}}
	}
	y, m, day := today.Date()
	if d.Before(time.Date(y, m, day, 0, 0, 0, 0, time.UTC)) {
		return &intake.ValidationError{Kind: intake.KindPastDate, Fields: []string{"preferredDate"}}
	}
	return nil
}

// parseDate accepts YYYY-MM-DD or an RFC 3339 timestamp and returns the
// calendar date at UTC midnight.
func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if d, err := time.Parse(dateLayout, value); err == nil {
		return d, nil
	}
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, err
	}
	y, m, day := ts.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC), nil
}
