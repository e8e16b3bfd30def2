package notifier

import (
	"bytes"
	"embed"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"
)

//go:embed templates/*
var templateFS embed.FS

// Templates holds parsed email templates.
type Templates struct {
	html  *htmltemplate.Template
	plain *texttemplate.Template
}

// TemplateData contains data for template rendering.
type TemplateData struct {
	Subject   string
	Body      string
	Lines     []string
	Details   []Detail
	Timestamp string
}

// LoadTemplates loads embedded email templates.
func LoadTemplates() (*Templates, error) {
	htmlTmpl, err := htmltemplate.ParseFS(templateFS, "templates/alert.html")
	if err != nil {
		return nil, err
	}

	plainTmpl, err := texttemplate.ParseFS(templateFS, "templates/alert.txt")
	if err != nil {
		return nil, err
	}

	return &Templates{
		html:  htmlTmpl,
		plain: plainTmpl,
	}, nil
}

// RenderHTML renders the HTML email body.
func (t *Templates) RenderHTML(data *TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := t.html.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderPlain renders the plain text email body.
func (t *Templates) RenderPlain(data *TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := t.plain.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// MessageToTemplateData converts a message to template data.
func MessageToTemplateData(msg Message, now time.Time) *TemplateData {
	return &TemplateData{
		Subject:   msg.Subject,
		Body:      msg.Body,
		Lines:     strings.Split(strings.TrimSpace(msg.Body), "\n"),
		Details:   msg.Details,
		Timestamp: now.UTC().Format("2006-01-02 15:04:05 MST"),
	}
}

// renderEmail returns the plain and HTML bodies for msg.
func renderEmail(t *Templates, msg Message) (plain, html string, err error) {
	data := MessageToTemplateData(msg, time.Now())
	if plain, err = t.RenderPlain(data); err != nil {
		return "", "", err
	}
	if html, err = t.RenderHTML(data); err != nil {
		return "", "", err
	}
	return plain, html, nil
}
