package notify

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/hairizuan-noorazman/repair-desk/job"
	"github.com/hairizuan-noorazman/repair-desk/shop"
)

// Kind names the event an email is about.
type Kind string

const (
	KindNewJob       Kind = "new"
	KindStatusUpdate Kind = "update"
)

// Message is a plain-text email addressed to one customer.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

var (
	newJobSubject = template.Must(template.New("new_subject").Parse(
		`Repair Job Received - #{{.Job.Number}} - {{.Shop.Name}}`))

	newJobBody = template.Must(template.New("new_body").Parse(`Dear {{.Job.CustomerName}},

We have received your device for repair.

Job ID: {{.Job.Number}}
Device: {{.Job.DeviceModel}} ({{.Job.DeviceType}})
Serial: {{.Job.SerialNumber}}
Problem: {{.Job.Problem}}
Estimated Cost ({{.Shop.Currency}}): {{.Job.EstimatedCost}}

We will notify you when the repair is complete.

Thank you,
{{.Shop.Name}}
{{.Shop.Motto}}
{{.Shop.PrimaryPhone}}`))

	updateSubject = template.Must(template.New("update_subject").Parse(
		`Update on Repair Job #{{.Job.Number}} - {{.Job.Status}}`))

	updateBody = template.Must(template.New("update_body").Parse(`Dear {{.Job.CustomerName}},

The status of your repair job (#{{.Job.Number}}) has changed to: {{.Job.Status}}.

Device: {{.Job.DeviceModel}}

Thank you,
{{.Shop.Name}}`))
)

type templateData struct {
	Shop shop.Profile
	Job  *job.Job
}

// NewJobMessage builds the intake confirmation email.
func NewJobMessage(p shop.Profile, j *job.Job) (Message, error) {
	return render(p, j, newJobSubject, newJobBody)
}

// StatusUpdateMessage builds the status change email for the job's current status.
func StatusUpdateMessage(p shop.Profile, j *job.Job) (Message, error) {
	return render(p, j, updateSubject, updateBody)
}

// BuildMessage picks the template for kind.
func BuildMessage(kind Kind, p shop.Profile, j *job.Job) (Message, error) {
	switch kind {
	case KindNewJob:
		return NewJobMessage(p, j)
	case KindStatusUpdate:
		return StatusUpdateMessage(p, j)
	}
	return Message{}, fmt.Errorf("unknown message kind %q", kind)
}

// BasicMessage is a template-free status note used when a template cannot
// be rendered, so the fallback compose action always has content.
func BasicMessage(p shop.Profile, j *job.Job) Message {
	return Message{
		To:      strings.TrimSpace(j.Email),
		Subject: fmt.Sprintf("Repair Job #%s - %s", j.Number, p.Name),
		Text: fmt.Sprintf("Dear %s,\n\nYour repair job (#%s) is currently: %s.\n\nThank you,\n%s",
			j.CustomerName, j.Number, j.Status, p.Name),
	}
}

func render(p shop.Profile, j *job.Job, subject, body *template.Template) (Message, error) {
	data := templateData{Shop: p, Job: j}

	var s, b bytes.Buffer
	if err := subject.Execute(&s, data); err != nil {
		return Message{}, fmt.Errorf("failed to render subject: %w", err)
	}
	if err := body.Execute(&b, data); err != nil {
		return Message{}, fmt.Errorf("failed to render body: %w", err)
	}

	return Message{
		To:      strings.TrimSpace(j.Email),
		Subject: s.String(),
		Text:    b.String(),
	}, nil
}

// NormalizeText restores literal newlines in a body that arrived with
// URL-encoded (%0D%0A) or CRLF line breaks.
func NormalizeText(text string) string {
	r := strings.NewReplacer(
		"%0D%0A", "\n",
		"%0d%0a", "\n",
		"\r\n", "\n",
	)
	return r.Replace(text)
}
