package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/smallbiznis/slotwise/internal/notification/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

// Renderer turns a notification into an email subject and HTML body.
type Renderer struct {
	templates map[domain.Template]*template.Template
}

func NewRenderer() (*Renderer, error) {
	r := &Renderer{templates: make(map[domain.Template]*template.Template, len(domain.Templates))}
	for _, name := range domain.Templates {
		t, err := template.New(string(name)).
			Option("missingkey=zero").
			ParseFS(templateFS, "templates/"+string(name)+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		r.templates[name] = t
	}
	return r, nil
}

func (r *Renderer) Render(msg domain.Message) (string, string, error) {
	t, ok := r.templates[msg.Template]
	if !ok {
		return "", "", domain.ErrUnknownTemplate
	}

	data := make(map[string]any, len(msg.Data)+1)
	for k, v := range msg.Data {
		data[k] = v
	}
	data["recipient_name"] = msg.Recipient.Name

	var subject, body bytes.Buffer
	if err := t.ExecuteTemplate(&subject, "subject", data); err != nil {
		return "", "", fmt.Errorf("render subject %s: %w", msg.Template, err)
	}
	if err := t.ExecuteTemplate(&body, "body", data); err != nil {
		return "", "", fmt.Errorf("render body %s: %w", msg.Template, err)
	}
	return strings.TrimSpace(subject.String()), body.String(), nil
}
