package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/xavierca1/ligue-pipeline/internal/entity"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

func NewEmailSender(host string, port int, user, password, from string) *EmailSender {
	return &EmailSender{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
		From:     from,
	}
}

// WithSender replaces SMTP delivery.
func (s *EmailSender) WithSender(sender gomail.Sender) *EmailSender {
	s.sender = sender
	return s
}

// SendStageNotification mails a pipeline event to the given recipients.
// Only lead.moved and stage.deleted have templates; other events are ignored.
func (s *EmailSender) SendStageNotification(to []string, ev entity.PipelineEvent) error {
	var tmpl, subject string
	switch ev.Type {
	case entity.EventLeadMoved:
		tmpl = "lead_moved.html"
		subject = fmt.Sprintf("[%s] %s moved to %s", ev.PipelineName, ev.LeadName, ev.ToStage)
	case entity.EventStageDeleted:
		tmpl = "stage_deleted.html"
		subject = fmt.Sprintf("[%s] stage %s removed", ev.PipelineName, ev.Stage)
	default:
		return nil
	}
	if len(to) == 0 {
		return nil
	}

	data := StageNotificationData{
		PipelineName: ev.PipelineName,
		LeadName:     ev.LeadName,
		LeadEmail:    ev.LeadEmail,
		FromStage:    ev.FromStage,
		ToStage:      ev.ToStage,
		Stage:        ev.Stage,
		OccurredAt:   ev.OccurredAt.Format(time.RFC1123),
	}

	var body bytes.Buffer
	if err := templates.ExecuteTemplate(&body, tmpl, data); err != nil {
		return fmt.Errorf("failed to render %s: %w", tmpl, err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", to...)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body.String())

	if s.sender != nil {
		if err := gomail.Send(s.sender, m); err != nil {
			return fmt.Errorf("failed to send notification: %w", err)
		}
		return nil
	}

	d := gomail.NewDialer(s.Host, s.Port, s.User, s.Password)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send notification over SMTP: %w", err)
	}
	return nil
}
