package mail

import "gopkg.in/gomail.v2"

type StageNotificationData struct {
	PipelineName string
	LeadName     string
	LeadEmail    string
	FromStage    string
	ToStage      string
	Stage        string
	OccurredAt   string
}

type EmailSender struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string

	// sender overrides SMTP delivery; tests plug a gomail.SendFunc here.
	sender gomail.Sender
}
