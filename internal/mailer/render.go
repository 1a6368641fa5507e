package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	texttemplate "text/template"
)

// Validate reports whether body parses as an HTML template.
func Validate(body string) error {
	if _, err := template.New("body").Parse(body); err != nil {
		return fmt.Errorf("template body: %w", err)
	}
	return nil
}

// Render executes the subject as plain text and the body as HTML with data.
func Render(subject, body string, data interface{}) (string, string, error) {
	st, err := texttemplate.New("subject").Option("missingkey=zero").Parse(subject)
	if err != nil {
		return "", "", fmt.Errorf("template subject: %w", err)
	}
	bt, err := template.New("body").Option("missingkey=zero").Parse(body)
	if err != nil {
		return "", "", fmt.Errorf("template body: %w", err)
	}

	var sb, bb bytes.Buffer
	if err := st.Execute(&sb, data); err != nil {
		return "", "", fmt.Errorf("render subject: %w", err)
	}
	if err := bt.Execute(&bb, data); err != nil {
		return "", "", fmt.Errorf("render body: %w", err)
	}
	return sb.String(), bb.String(), nil
}
