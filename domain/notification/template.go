package notification

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// TemplateData contains all the fields available for email template rendering
type TemplateData struct {
	Greeting   string // Dynamic greeting based on recipient count
	Filename   string
	What       string // "audio" or "video", from the file extension
	Link       string
	SenderName string
}

// EmailTemplate contains the templates for rendering emails
type EmailTemplate struct {
	SubjectFormat string
	PlainText     string
	HTML          string
}

// DefaultTemplate is the standard email template for a shared export
var DefaultTemplate = EmailTemplate{
	SubjectFormat: "Cleaned-up {{.What}}: {{.Filename}}",
	PlainText: `{{.Greeting}}

Here is the {{.What}} with the background music turned down.

{{.Filename}}: {{.Link}}

Thanks!
~{{.SenderName}}`,
	HTML: `<div dir="ltr">{{.Greeting}}<br><br>
Here is the <a href="{{.Link}}">{{.What}}</a> with the background music turned down.<br><br>
Thanks!<br>
~{{.SenderName}}</div>`,
}

// NewTemplateData derives the template fields for req
func NewTemplateData(req *ShareRequest) TemplateData {
	return TemplateData{
		Greeting:   FormatGreeting(req.To),
		Filename:   req.Filename,
		What:       DescribeFile(req.Filename),
		Link:       req.Link,
		SenderName: req.SenderName,
	}
}

// DescribeFile names the kind of media in filename
func DescribeFile(filename string) string {
	switch {
	case strings.HasSuffix(strings.ToLower(filename), ".mp4"):
		return "video"
	default:
		return "audio"
	}
}

// FormatGreeting creates an appropriate greeting based on number of recipients
// 1 recipient: "Dear John,"
// 2 recipients: "Dear John & Jane,"
// 3+ recipients: "Hey Everyone!"
func FormatGreeting(recipients []Recipient) string {
	switch len(recipients) {
	case 0:
		return "Hello,"
	case 1:
		return fmt.Sprintf("Dear %s,", getFirstName(recipients[0].Name))
	case 2:
		return fmt.Sprintf("Dear %s & %s,", getFirstName(recipients[0].Name), getFirstName(recipients[1].Name))
	default:
		return "Hey Everyone!"
	}
}

// getFirstName extracts the first name from a full name
func getFirstName(fullName string) string {
	if fullName == "" {
		return "Friend"
	}
	first, _, _ := strings.Cut(fullName, " ")
	return first
}

// RenderSubject renders the email subject using the template
func (t *EmailTemplate) RenderSubject(data TemplateData) (string, error) {
	return renderTemplate("subject", t.SubjectFormat, data)
}

// RenderPlainText renders the plain text email body
func (t *EmailTemplate) RenderPlainText(data TemplateData) (string, error) {
	return renderTemplate("plaintext", t.PlainText, data)
}

// RenderHTML renders the HTML email body
func (t *EmailTemplate) RenderHTML(data TemplateData) (string, error) {
	return renderTemplate("html", t.HTML, data)
}

func renderTemplate(name, tmplStr string, data TemplateData) (string, error) {
	tmpl, err := template.New(name).Parse(tmplStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}
