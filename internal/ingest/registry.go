package ingest

import (
	"embed"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed config/mailboxes.yaml
var mailboxesYAML embed.FS

// Registry holds the configuration for all inbound mailboxes.
type Registry struct {
	Mailboxes []MailboxConfig `yaml:"mailboxes"`
}

// MailboxConfig defines a single inbound address vendors can send quotes to.
type MailboxConfig struct {
	ID          string `yaml:"id"`
	Address     string `yaml:"address"`
	DisplayName string `yaml:"display_name,omitempty"`
	Description string `yaml:"description,omitempty"`
	Active      bool   `yaml:"active"`
	// WebhookSecret authenticates the provider posting to the inbound
	// endpoint. Usually an env reference like ${INBOUND_WEBHOOK_SECRET}.
	WebhookSecret string `yaml:"webhook_secret,omitempty"`
}

// LoadRegistry reads the embedded mailboxes.yaml and returns a Registry.
// The path parameter is a filesystem fallback for local development.
func LoadRegistry(path string) (*Registry, error) {
	data, err := mailboxesYAML.ReadFile("config/mailboxes.yaml")
	if err != nil {
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, err
		}
	}

	// Expand environment variables within the YAML content (e.g. ${SECRET})
	expanded := os.ExpandEnv(string(data))

	var reg Registry
	if err := yaml.Unmarshal([]byte(expanded), &reg); err != nil {
		return nil, err
	}

	return &reg, nil
}

// Lookup returns the active mailbox matching a normalized address, or nil.
func (r *Registry) Lookup(address string) *MailboxConfig {
	addr := ExtractAddress(address)
	for i := range r.Mailboxes {
		mb := &r.Mailboxes[i]
		if mb.Active && strings.EqualFold(mb.Address, addr) {
			return mb
		}
	}
	return nil
}
