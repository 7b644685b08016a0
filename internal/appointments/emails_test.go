package appointments

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testMail = MailSettings{
	ClinicName:  "Dohani Medicare",
	ClinicPhone: "0798057622",
	ClinicEmail: "dohanimedicare@gmail.com",
	StaffEmail:  "staff@dohani.test",
}

func sampleAppointment() Appointment {
	a := Normalize(validSubmission())
	a.ID = "appt-1"
	return a
}

func TestPatientConfirmation(t *testing.T) {
	msg, err := PatientConfirmation(sampleAppointment(), testMail)
	require.NoError(t, err)

	assert.Equal(t, "amina@example.com", msg.To)
	assert.Equal(t, "Amina Otieno", msg.ToName)
	assert.Equal(t, "Appointment Confirmation - Dohani Medicare", msg.Subject)
	assert.Equal(t, "booking_patient", msg.Template)
	assert.Contains(t, msg.HTML, "Tuesday, 20 October 2026")
	assert.Contains(t, msg.HTML, "To be assigned")
	assert.Contains(t, msg.HTML, "Please arrive 15 minutes before your scheduled time")
	assert.Contains(t, msg.HTML, "0798057622")
	assert.Contains(t, msg.Body, "Reference: appt-1")
}

func TestPatientConfirmation_EscapesInput(t *testing.T) {
	a := sampleAppointment()
	a.FirstName = "<script>alert(1)</script>"

	msg, err := PatientConfirmation(a, testMail)
	require.NoError(t, err)
	assert.NotContains(t, msg.HTML, "<script>")
	assert.Contains(t, msg.HTML, "&lt;script&gt;")
}

func TestStaffSummary_InsuranceBlockOnlyWhenInsured(t *testing.T) {
	received := time.Date(2026, 10, 16, 9, 15, 0, 0, time.UTC)
	a := sampleAppointment()

	msg, err := StaffSummary(a, testMail, received)
	require.NoError(t, err)
	assert.Equal(t, "staff@dohani.test", msg.To)
	assert.Equal(t, "📅 New Appointment: Amina Otieno", msg.Subject)
	assert.Equal(t, "booking_staff", msg.Template)
	assert.Contains(t, msg.HTML, "No preference")
	assert.Contains(t, msg.HTML, "Please review this appointment and confirm the booking.")
	assert.Contains(t, msg.HTML, "16 Oct 2026 09:15 UTC")
	assert.NotContains(t, msg.HTML, "Insurance Information")
	assert.NotContains(t, msg.Body, "Policy Number")

	a.HasInsurance = true
	a.InsuranceProvider = "NHIF"
	a.PolicyNumber = "POL-77"
	msg, err = StaffSummary(a, testMail, received)
	require.NoError(t, err)
	assert.Contains(t, msg.HTML, "Insurance Information")
	assert.Contains(t, msg.HTML, "POL-77")
	assert.Contains(t, msg.Body, "Policy Number: POL-77")
}

func TestTemplateFor_EveryKind(t *testing.T) {
	tests := []struct {
		kind    NotificationKind
		subject string
		color   string
		snippet string
	}{
		{NotifyConfirmed, "Appointment Confirmed - Dohani Medicare", "#10b981", "Important Reminders"},
		{NotifyCancelled, "Appointment Cancelled - Dohani Medicare", "#ef4444", "Need to Reschedule?"},
		{NotifyCompleted, "Appointment Completed - Dohani Medicare", "#3b82f6", "Follow-up Care"},
		{NotifyRescheduled, "Appointment Rescheduled - Dohani Medicare", "#f59e0b", "Please check the new date and time below."},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			tpl, err := TemplateFor(tt.kind)
			require.NoError(t, err)
			assert.Equal(t, tt.subject, tpl.Subject)
			assert.Equal(t, tt.color, tpl.Color)

			msg, err := StatusNotification(sampleAppointment(), tt.kind, testMail)
			require.NoError(t, err)
			assert.Equal(t, tt.subject, msg.Subject)
			assert.Equal(t, "status_"+tt.kind.String(), msg.Template)
			assert.Contains(t, msg.HTML, tt.snippet)
			assert.Contains(t, msg.HTML, tt.color)
		})
	}
}

func TestTemplateFor_UnknownKind(t *testing.T) {
	_, err := TemplateFor(NotificationKind(99))
	assert.Error(t, err)

	_, err = StatusNotification(sampleAppointment(), NotificationKind(0), testMail)
	assert.Error(t, err)
}

func TestNotificationFor(t *testing.T) {
	kind, ok := notificationFor(StatusConfirmed)
	assert.True(t, ok)
	assert.Equal(t, NotifyConfirmed, kind)

	_, ok = notificationFor(StatusNoShow)
	assert.False(t, ok)
	_, ok = notificationFor(StatusPending)
	assert.False(t, ok)
}
