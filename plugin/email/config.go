package email

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/usevoxlog/voxlog/internal/profile"
)

// Config holds the SMTP settings for comment notification emails.
// These are provided by the self-hosted instance administrator.
type Config struct {
	SMTPHost     string
	SMTPUsername string
	SMTPPassword string
	FromEmail    string
	SMTPPort     int
}

// NewConfigFromProfile builds an email config from the instance profile.
func NewConfigFromProfile(p *profile.Profile) *Config {
	return &Config{
		SMTPHost:     p.SMTPHost,
		SMTPPort:     p.SMTPPort,
		SMTPUsername: p.SMTPUsername,
		SMTPPassword: p.SMTPPassword,
		FromEmail:    p.SMTPFrom,
	}
}

// Enabled reports whether enough configuration is present to send mail.
// An instance without SMTP settings runs fine, it just skips notifications.
func (c *Config) Enabled() bool {
	return c.SMTPHost != "" && c.FromEmail != ""
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.SMTPHost == "" {
		return errors.New("SMTP host is required")
	}
	if c.SMTPPort <= 0 || c.SMTPPort > 65535 {
		return errors.New("SMTP port must be between 1 and 65535")
	}
	if c.FromEmail == "" {
		return errors.New("from email is required")
	}
	return nil
}

// GetServerAddress returns the SMTP server address in the format "host:port".
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.SMTPHost, c.SMTPPort)
}
