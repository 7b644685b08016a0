package messages

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/dohanimedicare/medicare-platform/internal/notify"
)

// MailSettings carries clinic contact details and the staff inbox address.
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

var staffTemplate = template.Must(template.New("staff").Parse(`<html><body style="font-family:Arial,sans-serif;line-height:1.6;color:#333">
<div style="max-width:600px;margin:0 auto;padding:20px">
<h2 style="color:#2563eb;border-bottom:2px solid #2563eb;padding-bottom:10px">New Message from {{.Mail.ClinicName}} Website</h2>
<div style="background-color:#f8fafc;padding:20px;border-radius:8px;margin:20px 0">
  <p><strong>From:</strong> {{.Msg.Name}}</p>
  <p><strong>Email:</strong> {{.Msg.Email}}</p>
  <p><strong>Received:</strong> {{.Received}}</p>
</div>
<h3 style="color:#1e40af">Message:</h3>
<div style="padding:15px;border-left:4px solid #2563eb">{{.Body}}</div>
<p style="font-size:14px;color:#6b7280">Please respond to the patient at: <a href="mailto:{{.Msg.Email}}">{{.Msg.Email}}</a></p>
</div></body></html>`))

var confirmationTemplate = template.Must(template.New("confirmation").Parse(`<html><body style="font-family:Arial,sans-serif;line-height:1.6;color:#333">
<div style="max-width:600px;margin:0 auto;padding:20px">
<h1 style="color:#2563eb;text-align:center">{{.Mail.ClinicName}}</h1>
<h2 style="color:#1e40af">Thank you for contacting us!</h2>
<p>Dear {{.Msg.Name}},</p>
<p>We have received your message and appreciate you reaching out to {{.Mail.ClinicName}}. Our team will review your inquiry and get back to you as soon as possible, typically within 24 hours.</p>
<div style="background-color:#f0f9ff;padding:20px;border-radius:8px;margin:20px 0;border-left:4px solid #2563eb">
  <h3 style="color:#1e40af;margin-top:0">Your Message:</h3>
  {{.Body}}
</div>
<div style="background-color:#fef3c7;padding:15px;border-radius:8px;margin:20px 0">
  <h4 style="color:#92400e;margin-top:0">Emergency Services</h4>
  <p style="color:#92400e;margin-bottom:0">If this is a medical emergency, please call us immediately at <strong>{{.Mail.ClinicPhone}}</strong> or visit our hospital directly.</p>
</div>
<p><strong>Phone:</strong> {{.Mail.ClinicPhone}}<br><strong>Email:</strong> {{.Mail.ClinicEmail}}</p>
<p>Best regards,<br>The {{.Mail.ClinicName}} Team</p>
</div></body></html>`))

var chatbotTemplate = template.Must(template.New("chatbot").Parse(`<html><body style="font-family:Arial,sans-serif;line-height:1.6;color:#333">
<h2>New Chatbot Request</h2>
<p><strong>Type:</strong> {{.Req.Type}}</p>
<p><strong>Content:</strong></p>
<p>{{.Req.Content}}</p>
<p><strong>User Info:</strong> {{.Msg.Name}} ({{.Msg.Email}})</p>
<p><strong>Reference:</strong> {{.Msg.ID}}</p>
<p><strong>Timestamp:</strong> {{.Received}}</p>
</body></html>`))

type mailView struct {
	Msg      Message
	Req      ChatbotRequest
	Mail     MailSettings
	Body     template.HTML
	Received string
}

func render(t *template.Template, view mailView) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("messages: render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}

func newView(m Message, settings MailSettings) mailView {
	return mailView{
		Msg:  m,
		Mail: settings,
		// HTML was built by Paragraphs, which escapes every line.
		Body:     template.HTML(Paragraphs(m.Body)),
		Received: m.CreatedAt.In(settings.Location).Format("2 Jan 2006 15:04 MST"),
	}
}

// StaffNotice alerts the clinic inbox to a new website message.
func StaffNotice(m Message, settings MailSettings) (notify.EmailMessage, error) {
	settings = settings.withDefaults()
	html, err := render(staffTemplate, newView(m, settings))
	if err != nil {
		return notify.EmailMessage{}, err
	}
	return notify.EmailMessage{
		To:       settings.StaffEmail,
		Subject:  "New Website Message from " + m.Name,
		Body:     fmt.Sprintf("New message from %s (%s): %s", m.Name, m.Email, m.Body),
		HTML:     html,
		Template: "contact_staff",
	}, nil
}

// SenderConfirmation acknowledges receipt to whoever filled in the form.
func SenderConfirmation(m Message, settings MailSettings) (notify.EmailMessage, error) {
	settings = settings.withDefaults()
	html, err := render(confirmationTemplate, newView(m, settings))
	if err != nil {
		return notify.EmailMessage{}, err
	}
	return notify.EmailMessage{
		To:       m.Email,
		ToName:   m.Name,
		Subject:  "Thank you for contacting " + settings.ClinicName,
		Body:     fmt.Sprintf("Dear %s, thank you for contacting %s. We have received your message and will get back to you soon.", m.Name, settings.ClinicName),
		HTML:     html,
		Template: "contact_confirmation",
	}, nil
}

// ChatbotNotice forwards a chatbot escalation to staff.
func ChatbotNotice(m Message, req ChatbotRequest, settings MailSettings) (notify.EmailMessage, error) {
	settings = settings.withDefaults()
	view := newView(m, settings)
	view.Req = req
	html, err := render(chatbotTemplate, view)
	if err != nil {
		return notify.EmailMessage{}, err
	}
	return notify.EmailMessage{
		To:       settings.StaffEmail,
		Subject:  "Chatbot Request: " + req.Type,
		Body:     fmt.Sprintf("Chatbot request (%s) from %s <%s>: %s", req.Type, m.Name, m.Email, req.Content),
		HTML:     html,
		Template: "chatbot_staff",
	}, nil
}
