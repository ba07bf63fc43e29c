package templates

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	textTemplate "text/template"

	"gopkg.in/yaml.v3"
)

//go:embed alerts/*
var alertTemplates embed.FS

// AlertConfig holds operator alert branding and copy from alerts/config.yaml
type AlertConfig struct {
	Branding struct {
		Name         string `yaml:"name"`
		Website      string `yaml:"website"`
		DashboardURL string `yaml:"dashboard_url"`
	} `yaml:"branding"`

	Design struct {
		PrimaryColor string `yaml:"primary_color"`
		TextColor    string `yaml:"text_color"`
		MutedColor   string `yaml:"muted_color"`
		CodeBg       string `yaml:"code_bg"`
		BorderColor  string `yaml:"border_color"`
	} `yaml:"design"`

	Subjects struct {
		DeadLetter string `yaml:"dead_letter"`
	} `yaml:"subjects"`

	DeadLetter struct {
		Intro      string `yaml:"intro"`
		ButtonText string `yaml:"button_text"`
		Outro      string `yaml:"outro"`
	} `yaml:"dead_letter"`
}

// LoadAlertConfig loads alert configuration from the embedded config.yaml
func LoadAlertConfig() (*AlertConfig, error) {
	data, err := alertTemplates.ReadFile("alerts/config.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read alert config: %w", err)
	}

	var config AlertConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse alert config: %w", err)
	}

	return &config, nil
}

// DeadLetterData is the template payload for a dead-letter alert email
type DeadLetterData struct {
	BrandName       string
	Website         string
	DashboardURL    string
	DeliveryID      string
	SubscriptionID  string
	SubscriptionURL string
	EventType       string
	Attempts        int
	LastError       string
	Intro           string
	ButtonText      string
	Outro           string
	PrimaryColor    string
	TextColor       string
	MutedColor      string
	CodeBg          string
	BorderColor     string
}

// RenderDeadLetterHTML renders the HTML body of a dead-letter alert
func RenderDeadLetterHTML(data DeadLetterData) (string, error) {
	tmpl, err := template.ParseFS(alertTemplates, "alerts/dead_letter.html")
	if err != nil {
		return "", fmt.Errorf("failed to parse dead letter html template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render dead letter html template: %w", err)
	}
	return buf.String(), nil
}

// RenderDeadLetterText renders the plain-text body of a dead-letter alert
func RenderDeadLetterText(data DeadLetterData) (string, error) {
	tmpl, err := textTemplate.ParseFS(alertTemplates, "alerts/dead_letter.txt")
	if err != nil {
		return "", fmt.Errorf("failed to parse dead letter text template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render dead letter text template: %w", err)
	}
	return buf.String(), nil
}
