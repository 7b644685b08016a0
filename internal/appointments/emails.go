package appointments

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/dohanimedicare/medicare-platform/internal/notify"
)

// MailSettings carries the clinic details rendered into every message.
type MailSettings struct {
	ClinicName  string
	ClinicPhone string
	ClinicEmail string
	StaffEmail  string
	Location    *time.Location
}

func (m MailSettings) withDefaults() MailSettings {
	if m.ClinicName == "" {
		m.ClinicName = "Dohani Medicare"
	}
	if m.Location == nil {
		m.Location = time.UTC
	}
	return m
}

// NotificationKind selects the patient template for a lifecycle change.
type NotificationKind int

const (
	NotifyConfirmed NotificationKind = iota + 1
	NotifyCancelled
	NotifyCompleted
	NotifyRescheduled
)

func (k NotificationKind) String() string {
	switch k {
	case NotifyConfirmed:
		return "confirmed"
	case NotifyCancelled:
		return "cancelled"
	case NotifyCompleted:
		return "completed"
	case NotifyRescheduled:
		return "rescheduled"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// notificationFor maps a new status to its template. PENDING and NO_SHOW
// have no patient-facing message.
func notificationFor(s Status) (NotificationKind, bool) {
	switch s {
	case StatusConfirmed:
		return NotifyConfirmed, true
	case StatusCancelled:
		return NotifyCancelled, true
	case StatusCompleted:
		return NotifyCompleted, true
	default:
		return 0, false
	}
}

type block int

const (
	blockNone block = iota
	blockReminders
	blockRebook
	blockFollowUp
)

// StatusTemplate is the framing of one status notification.
type StatusTemplate struct {
	Subject string
	Title   string
	Message string
	Color   string
	Label   string
	block   block
}

// TemplateFor returns the template for kind. Every NotificationKind has a
// case; an unknown value is an error rather than a silent default.
func TemplateFor(kind NotificationKind) (StatusTemplate, error) {
	switch kind {
	case NotifyConfirmed:
		return StatusTemplate{
			Subject: "Appointment Confirmed - Dohani Medicare",
			Title:   "Your Appointment is Confirmed! ✅",
			Message: "Great news! Your appointment has been confirmed by our medical team.",
			Color:   "#10b981",
			Label:   string(StatusConfirmed),
			block:   blockReminders,
		}, nil
	case NotifyCancelled:
		return StatusTemplate{
			Subject: "Appointment Cancelled - Dohani Medicare",
			Title:   "Appointment Cancelled",
			Message: "We regret to inform you that your appointment has been cancelled. Please contact us to reschedule.",
			Color:   "#ef4444",
			Label:   string(StatusCancelled),
			block:   blockRebook,
		}, nil
	case NotifyCompleted:
		return StatusTemplate{
			Subject: "Appointment Completed - Dohani Medicare",
			Title:   "Thank You for Your Visit! 🏥",
			Message: "Your appointment has been completed. Thank you for choosing Dohani Medicare for your healthcare needs.",
			Color:   "#3b82f6",
			Label:   string(StatusCompleted),
			block:   blockFollowUp,
		}, nil
	case NotifyRescheduled:
		return StatusTemplate{
			Subject: "Appointment Rescheduled - Dohani Medicare",
			Title:   "Appointment Rescheduled",
			Message: "Your appointment has been rescheduled. Please check the new date and time below.",
			Color:   "#f59e0b",
			Label:   "RESCHEDULED",
			block:   blockNone,
		}, nil
	default:
		return StatusTemplate{}, fmt.Errorf("appointments: no template for notification kind %s", kind)
	}
}

const layoutHTML = `{{define "contact"}}
<div style="margin-top:30px">
  <h3 style="color:#1e40af">Contact Information</h3>
  <p><strong>Phone:</strong> {{.Mail.ClinicPhone}}</p>
  <p><strong>Email:</strong> {{.Mail.ClinicEmail}}</p>
  <p><strong>Location:</strong> {{.Mail.ClinicName}} Hospital</p>
  <p><strong>Hours:</strong> Monday to Saturday: 8:00 AM - 6:00 PM</p>
</div>{{end}}
{{define "reminders"}}
<div style="background-color:#fef3c7;padding:15px;border-radius:8px;margin:20px 0">
  <h4 style="color:#92400e;margin-top:0">Important Reminders</h4>
  <ul style="color:#92400e;margin-bottom:0">
    <li>Please arrive 15 minutes before your scheduled time</li>
    <li>Bring a valid ID and insurance card (if applicable)</li>
    <li>Bring any previous medical records or test results</li>
    <li>If you need to cancel or reschedule, please call us at least 24 hours in advance</li>
  </ul>
</div>{{end}}
{{define "header"}}
<div style="text-align:center;margin-bottom:30px">
  <h1 style="color:#2563eb;margin-bottom:10px">{{.Mail.ClinicName}}</h1>
  <p style="color:#6b7280">Quality Healthcare Services</p>
</div>{{end}}
{{define "footer"}}
<div style="margin-top:30px;padding-top:20px;border-top:1px solid #e5e7eb;text-align:center;font-size:14px;color:#6b7280">
  <p>Best regards,<br>The {{.Mail.ClinicName}} Team</p>
  <p>This is an automated email.</p>
</div>{{end}}`

const patientConfirmationHTML = `<html><body style="font-family:Arial,sans-serif;line-height:1.6;color:#333">
<div style="max-width:600px;margin:0 auto;padding:20px">
{{template "header" .}}
<h2 style="color:#1e40af">Appointment Confirmation</h2>
<p>Dear {{.Appt.FirstName}} {{.Appt.LastName}},</p>
<p>Thank you for booking an appointment with {{.Mail.ClinicName}}. Your appointment has been successfully scheduled.</p>
<div style="background-color:#f0f9ff;padding:20px;border-radius:8px;margin:20px 0;border-left:4px solid #2563eb">
  <h3 style="color:#1e40af;margin-top:0">Appointment Details</h3>
  <p><strong>Reference:</strong> {{.Appt.ID}}</p>
  <p><strong>Date:</strong> {{.Date}}</p>
  <p><strong>Time:</strong> {{.Appt.PreferredTime}}</p>
  <p><strong>Type:</strong> {{.Appt.AppointmentType.Label}}</p>
  <p><strong>Doctor:</strong> {{.Appt.DoctorOr "To be assigned"}}</p>
  <p><strong>Status:</strong> {{.Appt.Status}}</p>
</div>
{{template "reminders" .}}
{{template "contact" .}}
{{template "footer" .}}
</div></body></html>`

const staffSummaryHTML = `<html><body style="font-family:Arial,sans-serif;line-height:1.6;color:#333">
<div style="max-width:600px;margin:0 auto;padding:20px">
<h2 style="color:#2563eb;border-bottom:2px solid #2563eb;padding-bottom:10px">📅 New Appointment Booking</h2>
<div style="background-color:#f8fafc;padding:20px;border-radius:8px;margin:20px 0">
  <h3 style="color:#1e40af;margin-top:0">Patient Information</h3>
  <p><strong>Name:</strong> {{.Appt.FirstName}} {{.Appt.LastName}}</p>
  <p><strong>Email:</strong> {{.Appt.Email}}</p>
  <p><strong>Phone:</strong> {{.Appt.Phone}}</p>
  <p><strong>Date of Birth:</strong> {{.Appt.DateOfBirth}}</p>
  <p><strong>Emergency Contact:</strong> {{.Appt.EmergencyContact}}</p>
</div>
<div style="background-color:#f0f9ff;padding:20px;border-radius:8px;margin:20px 0">
  <h3 style="color:#1e40af;margin-top:0">Appointment Details</h3>
  <p><strong>Reference:</strong> {{.Appt.ID}}</p>
  <p><strong>Date:</strong> {{.Date}}</p>
  <p><strong>Time:</strong> {{.Appt.PreferredTime}}</p>
  <p><strong>Type:</strong> {{.Appt.AppointmentType.Label}}</p>
  <p><strong>Preferred Doctor:</strong> {{.Appt.DoctorOr "No preference"}}</p>
  <p><strong>Reason:</strong> {{.Appt.Reason}}</p>
  <p><strong>Symptoms:</strong> {{.Appt.Symptoms}}</p>
  <p><strong>Previous Visit:</strong> {{if .Appt.PreviousVisit}}Yes{{else}}No{{end}}</p>
</div>
{{if .Appt.HasInsurance}}<div style="background-color:#f0fdf4;padding:20px;border-radius:8px;margin:20px 0">
  <h3 style="color:#166534;margin-top:0">Insurance Information</h3>
  <p><strong>Provider:</strong> {{.Appt.InsuranceProvider}}</p>
  <p><strong>Policy Number:</strong> {{.Appt.PolicyNumber}}</p>
</div>{{end}}
<div style="background-color:#fef3c7;padding:15px;border-radius:8px;margin:20px 0">
  <h4 style="color:#92400e;margin-top:0">Action Required</h4>
  <p style="margin-bottom:0;color:#92400e">Please review this appointment and confirm the booking. Contact the patient if any clarification is needed.</p>
</div>
<div style="margin-top:30px;padding-top:20px;border-top:1px solid #e5e7eb;font-size:14px;color:#6b7280">
  <p>Booking received at: {{.ReceivedAt}}</p>
  <p>This notification was generated by the {{.Mail.ClinicName}} appointment system.</p>
</div>
</div></body></html>`

const statusUpdateHTML = `<html><body style="font-family:Arial,sans-serif;line-height:1.6;color:#333">
<div style="max-width:600px;margin:0 auto;padding:20px">
{{template "header" .}}
<div style="padding:20px;border-radius:8px;margin:20px 0;border-left:4px solid {{.Tpl.Color | css}}">
  <h2 style="color:{{.Tpl.Color | css}};margin-top:0">{{.Tpl.Title}}</h2>
  <p style="color:#374151;margin-bottom:0">{{.Tpl.Message}}</p>
</div>
<div style="background-color:#f8fafc;padding:20px;border-radius:8px;margin:20px 0">
  <h3 style="color:#1e40af;margin-top:0">Appointment Details</h3>
  <p><strong>Patient:</strong> {{.Appt.FirstName}} {{.Appt.LastName}}</p>
  <p><strong>Date:</strong> {{.Date}}</p>
  <p><strong>Time:</strong> {{.Appt.PreferredTime}}</p>
  <p><strong>Type:</strong> {{.Appt.AppointmentType.Label}}</p>
  <p><strong>Doctor:</strong> {{.Appt.DoctorOr "To be assigned"}}</p>
  <p><strong>Status:</strong> <strong>{{.Tpl.Label}}</strong></p>
</div>
{{if .Reminders}}{{template "reminders" .}}{{end}}
{{if .Rebook}}<div style="background-color:#fef2f2;padding:15px;border-radius:8px;margin:20px 0">
  <h4 style="color:#dc2626;margin-top:0">Need to Reschedule?</h4>
  <p style="color:#dc2626;margin-bottom:0">Please contact us at {{.Mail.ClinicPhone}} or email {{.Mail.ClinicEmail}} to book a new appointment.</p>
</div>{{end}}
{{if .FollowUp}}<div style="background-color:#f0f9ff;padding:15px;border-radius:8px;margin:20px 0">
  <h4 style="color:#1d4ed8;margin-top:0">Follow-up Care</h4>
  <p style="color:#1d4ed8;margin-bottom:0">If you have any questions about your visit or need follow-up care, please don't hesitate to contact us.</p>
</div>{{end}}
{{template "contact" .}}
{{template "footer" .}}
</div></body></html>`

func css(s string) template.CSS { return template.CSS(s) }

var (
	baseTemplates   = template.Must(template.New("layout").Funcs(template.FuncMap{"css": css}).Parse(layoutHTML))
	patientTemplate = template.Must(template.Must(baseTemplates.Clone()).New("patient").Parse(patientConfirmationHTML))
	staffTemplate   = template.Must(template.Must(baseTemplates.Clone()).New("staff").Parse(staffSummaryHTML))
	statusTmpl      = template.Must(template.Must(baseTemplates.Clone()).New("status").Parse(statusUpdateHTML))
)

type mailView struct {
	Appt       Appointment
	Mail       MailSettings
	Date       string
	ReceivedAt string
	Tpl        StatusTemplate
	Reminders  bool
	Rebook     bool
	FollowUp   bool
}

func render(t *template.Template, view mailView) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("appointments: render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}

// displayDate renders YYYY-MM-DD as "Friday, 16 October 2026".
func displayDate(value string) string {
	d, err := parseDate(value)
	if err != nil {
		return value
	}
	return d.Format("Monday, 2 January 2006")
}

// PatientConfirmation builds the booking acknowledgement sent to the patient.
func PatientConfirmation(a Appointment, m MailSettings) (notify.EmailMessage, error) {
	m = m.withDefaults()
	html, err := render(patientTemplate, mailView{Appt: a, Mail: m, Date: displayDate(a.PreferredDate)})
	if err != nil {
		return notify.EmailMessage{}, err
	}
	text := fmt.Sprintf("Dear %s,\n\nThank you for booking an appointment with %s.\n\nReference: %s\nDate: %s\nTime: %s\nType: %s\nDoctor: %s\nStatus: %s\n\nPlease arrive 15 minutes early. Call %s to cancel or reschedule at least 24 hours in advance.\n",
		a.FullName(), m.ClinicName, a.ID, displayDate(a.PreferredDate), a.PreferredTime,
		a.AppointmentType.Label(), a.DoctorOr("To be assigned"), a.Status, m.ClinicPhone)
	return notify.EmailMessage{
		To:       a.Email,
		ToName:   a.FullName(),
		Subject:  "Appointment Confirmation - " + m.ClinicName,
		Body:     text,
		HTML:     html,
		Template: "booking_patient",
	}, nil
}

// StaffSummary builds the internal new-booking notice.
func StaffSummary(a Appointment, m MailSettings, receivedAt time.Time) (notify.EmailMessage, error) {
	m = m.withDefaults()
	received := receivedAt.In(m.Location).Format("2 Jan 2006 15:04 MST")
	html, err := render(staffTemplate, mailView{Appt: a, Mail: m, Date: displayDate(a.PreferredDate), ReceivedAt: received})
	if err != nil {
		return notify.EmailMessage{}, err
	}

	var text strings.Builder
	fmt.Fprintf(&text, "New appointment booking\n\nPatient: %s\nEmail: %s\nPhone: %s\nDate of Birth: %s\nEmergency Contact: %s\n\n",
		a.FullName(), a.Email, a.Phone, a.DateOfBirth, a.EmergencyContact)
	fmt.Fprintf(&text, "Reference: %s\nDate: %s\nTime: %s\nType: %s\nPreferred Doctor: %s\nReason: %s\nSymptoms: %s\nPrevious Visit: %t\n",
		a.ID, displayDate(a.PreferredDate), a.PreferredTime, a.AppointmentType.Label(), a.DoctorOr("No preference"), a.Reason, a.Symptoms, a.PreviousVisit)
	if a.HasInsurance {
		fmt.Fprintf(&text, "\nInsurance Provider: %s\nPolicy Number: %s\n", a.InsuranceProvider, a.PolicyNumber)
	}
	fmt.Fprintf(&text, "\nBooking received at: %s\n", received)

	return notify.EmailMessage{
		To:       m.StaffEmail,
		Subject:  fmt.Sprintf("📅 New Appointment: %s", a.FullName()),
		Body:     text.String(),
		HTML:     html,
		Template: "booking_staff",
	}, nil
}

// StatusNotification builds the patient message for a lifecycle change.
func StatusNotification(a Appointment, kind NotificationKind, m MailSettings) (notify.EmailMessage, error) {
	m = m.withDefaults()
	tpl, err := TemplateFor(kind)
	if err != nil {
		return notify.EmailMessage{}, err
	}
	view := mailView{
		Appt:      a,
		Mail:      m,
		Date:      displayDate(a.PreferredDate),
		Tpl:       tpl,
		Reminders: tpl.block == blockReminders,
		Rebook:    tpl.block == blockRebook,
		FollowUp:  tpl.block == blockFollowUp,
	}
	html, err := render(statusTmpl, view)
	if err != nil {
		return notify.EmailMessage{}, err
	}
	text := fmt.Sprintf("Dear %s,\n\n%s\n\nDate: %s\nTime: %s\nType: %s\nDoctor: %s\nStatus: %s\n\nPhone: %s\nEmail: %s\n",
		a.FullName(), tpl.Message, view.Date, a.PreferredTime, a.AppointmentType.Label(),
		a.DoctorOr("To be assigned"), tpl.Label, m.ClinicPhone, m.ClinicEmail)
	return notify.EmailMessage{
		To:       a.Email,
		ToName:   a.FullName(),
		Subject:  tpl.Subject,
		Body:     text,
		HTML:     html,
		Template: "status_" + kind.String(),
	}, nil
}
