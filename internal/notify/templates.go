package notify

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"gopkg.in/yaml.v2"
)

// MessageTemplate is a subject/body pair in text/template syntax
type MessageTemplate struct {
	Subject string `yaml:"subject"`
	Body    string `yaml:"body"`
}

type TemplatesConfig struct {
	Templates map[Kind]MessageTemplate `yaml:"templates"`
}

// MessageData is the value every template is executed against
type MessageData struct {
	RecipientName string
	CollectId     string
	CollectTitle  string
	Amount        string
	PayerName     string
	Comment       string
}

var defaultTemplates = map[Kind]MessageTemplate{
	KindCollectCreated: {
		Subject: `Your collect "{{.CollectTitle}}" has been created`,
		Body: `Hi {{.RecipientName}},

Your collect "{{.CollectTitle}}" is now open for contributions.

- MoneyCollect`,
	},
	KindPaymentRecorded: {
		Subject: `Thank you for supporting "{{.CollectTitle}}"`,
		Body: `Hi {{.RecipientName}},

Your payment of {{.Amount}} to "{{.CollectTitle}}" has been recorded.

- MoneyCollect`,
	},
	KindPaymentReceived: {
		Subject: `New payment for "{{.CollectTitle}}"`,
		Body: `Hi {{.RecipientName}},

{{.PayerName}} contributed {{.Amount}} to "{{.CollectTitle}}".
{{- if .Comment}}

Comment: {{.Comment}}
{{- end}}

- MoneyCollect`,
	},
}

type compiledTemplate struct {
	subject *template.Template
	body    *template.Template
}

// Renderer turns message data into subject and body text
type Renderer struct {
	templates map[Kind]compiledTemplate
}

// NewRenderer compiles the built-in templates with any overrides applied.
// An override with an empty subject or body keeps the default for that part.
func NewRenderer(overrides map[Kind]MessageTemplate) (*Renderer, error) {
	r := &Renderer{templates: make(map[Kind]compiledTemplate, len(defaultTemplates))}

	for kind, def := range defaultTemplates {
		mt := def
		if o, ok := overrides[kind]; ok {
			if o.Subject != "" {
				mt.Subject = o.Subject
			}
			if o.Body != "" {
				mt.Body = o.Body
			}
		}

		subject, err := template.New(string(kind) + ".subject").Parse(mt.Subject)
		if err != nil {
			return nil, fmt.Errorf("invalid subject template for %s: %w", kind, err)
		}
		body, err := template.New(string(kind) + ".body").Parse(mt.Body)
		if err != nil {
			return nil, fmt.Errorf("invalid body template for %s: %w", kind, err)
		}
		r.templates[kind] = compiledTemplate{subject: subject, body: body}
	}

	for kind := range overrides {
		if _, ok := defaultTemplates[kind]; !ok {
			return nil, fmt.Errorf("unknown notification kind %q", kind)
		}
	}

	return r, nil
}

func DefaultRenderer() *Renderer {
	r, err := NewRenderer(nil)
	if err != nil {
		panic(err)
	}
	return r
}

// LoadRenderer reads template overrides from a YAML file. An empty path
// yields the built-in templates. Relative paths resolve against the working directory.
func LoadRenderer(templatesFile string) (*Renderer, error) {
	if templatesFile == "" {
		return DefaultRenderer(), nil
	}

	templatesPath := templatesFile
	if !filepath.IsAbs(templatesFile) {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		templatesPath = filepath.Join(wd, templatesFile)
	}

	data, err := os.ReadFile(templatesPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", templatesFile, err)
	}

	var config TemplatesConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", templatesFile, err)
	}

	return NewRenderer(config.Templates)
}

func (r *Renderer) Render(kind Kind, data MessageData) (string, string, error) {
	t, ok := r.templates[kind]
	if !ok {
		return "", "", fmt.Errorf("no template for %s", kind)
	}

	var subject, body bytes.Buffer
	if err := t.subject.Execute(&subject, data); err != nil {
		return "", "", fmt.Errorf("render %s subject: %w", kind, err)
	}
	if err := t.body.Execute(&body, data); err != nil {
		return "", "", fmt.Errorf("render %s body: %w", kind, err)
	}
	return subject.String(), body.String(), nil
}
