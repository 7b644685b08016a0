// Package messages handles contact-form submissions and chatbot escalations:
// persistence, staff notification and the admin inbox.
package messages

import (
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// Status tracks staff handling of a message.
type Status string

const (
	StatusUnread  Status = "UNREAD"
	StatusRead    Status = "READ"
	StatusReplied Status = "REPLIED"
)

// ParseStatus accepts any casing. NEW is the dashboard's older name for UNREAD.
func ParseStatus(s string) (Status, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "UNREAD", "NEW":
		return StatusUnread, nil
	case "READ":
		return StatusRead, nil
	case "REPLIED":
		return StatusReplied, nil
	default:
		return "", fmt.Errorf("messages: unknown status %q", s)
	}
}

// Source records which surface produced the message.
type Source string

const (
	SourceWebsite Source = "WEBSITE"
	SourceChatbot Source = "CHATBOT"
)

// ErrNotFound is returned when no message has the requested id.
var ErrNotFound = errors.New("messages: not found")

// Message is a stored inbox entry.
type Message struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Body      string    `json:"message"`
	HTML      string    `json:"html"`
	Status    Status    `json:"status"`
	Source    Source    `json:"source"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Submission is the website contact form.
type Submission struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// ChatbotRequest is an escalation raised by the site assistant.
type ChatbotRequest struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	Name    string `json:"name"`
	Email   string `json:"email"`
}

const (
	chatbotDefaultName  = "Chatbot User"
	chatbotDefaultEmail = "chatbot@system"
)

// Filter narrows inbox listings. An empty Statuses matches every status.
type Filter struct {
	Statuses []Status
	Source   Source
}

func (f Filter) matches(m Message) bool {
	if f.Source != "" && m.Source != f.Source {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if m.Status == s {
			return true
		}
	}
	return false
}

// Paragraphs renders body as escaped <p> blocks, one per line.
func Paragraphs(body string) string {
	lines := strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n")
	var b strings.Builder
	for _, line := range lines {
		b.WriteString("<p>")
		b.WriteString(template.HTMLEscapeString(line))
		b.WriteString("</p>")
	}
	return b.String()
}

// fromParagraphs flattens CMS rich text back to plain lines. It reverses
// Paragraphs and tolerates editor markup such as <br> and inline tags.
func fromParagraphs(markup string) string {
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(markup))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.TrimSuffix(b.String(), "\n")
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.SelfClosingTagToken:
			if name, _ := z.TagName(); string(name) == "br" {
				b.WriteByte('\n')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "p", "div", "li", "h1", "h2", "h3", "h4", "h5", "h6":
				b.WriteByte('\n')
			}
		}
	}
}

// newWebsiteMessage applies the write rules for a contact-form submission.
func newWebsiteMessage(sub Submission) Message {
	body := strings.TrimSpace(sub.Message)
	return Message{
		Name:   strings.TrimSpace(sub.Name),
		Email:  strings.ToLower(strings.TrimSpace(sub.Email)),
		Body:   body,
		HTML:   Paragraphs(body),
		Status: StatusUnread,
		Source: SourceWebsite,
	}
}

func newChatbotMessage(req ChatbotRequest) Message {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = chatbotDefaultName
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		email = chatbotDefaultEmail
	}
	body := fmt.Sprintf("[Chatbot Request - %s] %s", strings.TrimSpace(req.Type), strings.TrimSpace(req.Content))
	return Message{
		Name:   name,
		Email:  email,
		Body:   body,
		HTML:   Paragraphs(body),
		Status: StatusUnread,
		Source: SourceChatbot,
	}
}
