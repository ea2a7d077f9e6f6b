package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	// EnvConfigJSONPath is the env var that points to the JSON config file.
	EnvConfigJSONPath = "MAILREADER_CONFIG_JSON"
)

var validEncryptions = map[string]struct{}{
	"": {}, "tls": {}, "notls": {}, "ssl": {}, "starttls": {}, "none": {},
}

// IMAPSettings holds connection settings for one mailbox server.
type IMAPSettings struct {
	Host string `json:"host"`
	Port int    `json:"port"`

	// Protocol is the mailbox access protocol, default "imap".
	Protocol string `json:"protocol,omitempty"`
	// Encryption is one of tls, ssl, starttls, notls, none.
	Encryption string `json:"encryption,omitempty"`
	// ValidateCert enables TLS certificate verification.
	ValidateCert bool `json:"validate_cert"`

	Username string `json:"username"`
	Password string `json:"password,omitempty"`

	// SASL authenticates with SASL PLAIN instead of LOGIN.
	SASL bool `json:"sasl,omitempty"`
}

// AccountConfig holds one mail account.
//
// See ExampleRootConfig for the expected JSON shape.
type AccountConfig struct {
	Name  string `json:"name"`
	Email string `json:"email"`

	IMAP IMAPSettings `json:"imap"`

	// AttachmentDir is where attachments are saved by default.
	AttachmentDir string `json:"attachment_dir,omitempty"`
	// NameDecoder selects the attachment name decoding strategy:
	// "utf-8" (default) or "mime".
	NameDecoder string `json:"name_decoder,omitempty"`
}

// Domain returns the domain part of the account email address.
// Returns "localhost" if no domain can be extracted.
func (a *AccountConfig) Domain() string {
	if idx := strings.Index(a.Email, "@"); idx >= 0 {
		return a.Email[idx+1:]
	}
	return "localhost"
}

// Config holds the application configuration
//
// accounts is a map keyed by account name.
// default_account selects the account when none is specified.
type Config struct {
	Accounts       map[string]AccountConfig `json:"accounts"`
	DefaultAccount string                   `json:"default_account,omitempty"`
}

// RootConfig wraps the app config under a top-level "mail" key.
type RootConfig struct {
	Mail Config `json:"mail"`
}

// LoadConfig loads configuration from the JSON file specified by
// EnvConfigJSONPath.
func LoadConfig() (*Config, error) {
	path, err := GetEnvConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadConfigFile(path)
}

// LoadConfigFile loads configuration from a JSON file path.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return parseRootConfig(data)
}

// SaveConfig saves configuration to a JSON file path.
func SaveConfig(path string, root *RootConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(root, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetEnvConfigPath returns the config file path from EnvConfigJSONPath.
func GetEnvConfigPath() (string, error) {
	path := strings.TrimSpace(os.Getenv(EnvConfigJSONPath))
	if path == "" {
		return "", fmt.Errorf("%s is not set", EnvConfigJSONPath)
	}
	return path, nil
}

// GetAccount returns an account by name or email.
func (c *Config) GetAccount(identifier string) (*AccountConfig, error) {
	if len(c.Accounts) == 0 {
		return nil, fmt.Errorf("no accounts configured")
	}

	if identifier == "" {
		if c.DefaultAccount != "" {
			identifier = c.DefaultAccount
		} else {
			// Deterministic fallback to the first key
			keys := make([]string, 0, len(c.Accounts))
			for k := range c.Accounts {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			identifier = keys[0]
		}
	}

	// Direct name match (map key)
	if acc, ok := c.Accounts[identifier]; ok {
		return &acc, nil
	}

	// Search by name or email fields
	for name, acc := range c.Accounts {
		if acc.Name == identifier || acc.Email == identifier {
			if acc.Name == "" {
				acc.Name = name
			}
			return &acc, nil
		}
	}

	return nil, fmt.Errorf("account not found: %s", identifier)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if len(c.Accounts) == 0 {
		return fmt.Errorf("no accounts configured")
	}

	for name, acc := range c.Accounts {
		if acc.Name == "" {
			acc.Name = name
		}
		if acc.IMAP.Host == "" {
			return fmt.Errorf("account %s: imap host is required", acc.Name)
		}
		if acc.IMAP.Port <= 0 {
			return fmt.Errorf("account %s: imap port is required", acc.Name)
		}
		if _, ok := validEncryptions[strings.ToLower(acc.IMAP.Encryption)]; !ok {
			return fmt.Errorf("account %s: unknown encryption %q", acc.Name, acc.IMAP.Encryption)
		}
		switch acc.NameDecoder {
		case "", "utf-8", "mime":
		default:
			return fmt.Errorf("account %s: unknown name_decoder %q", acc.Name, acc.NameDecoder)
		}
	}

	if c.DefaultAccount != "" {
		if _, ok := c.Accounts[c.DefaultAccount]; !ok {
			return fmt.Errorf("default_account not found: %s", c.DefaultAccount)
		}
	}

	return nil
}

// ExampleRootConfig returns an example configuration for "init".
func ExampleRootConfig() *RootConfig {
	return &RootConfig{
		Mail: Config{
			DefaultAccount: "work",
			Accounts: map[string]AccountConfig{
				"work": {
					Name:  "Work Account",
					Email: "user@example.com",
					IMAP: IMAPSettings{
						Host:         "imap.example.com",
						Port:         993,
						Encryption:   "ssl",
						ValidateCert: true,
						Username:     "user@example.com",
					},
					NameDecoder: "utf-8",
				},
			},
		},
	}
}

// --- internal helpers ---

func parseRootConfig(data []byte) (*Config, error) {
	var root RootConfig
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg := &root.Mail
	if cfg.Accounts == nil {
		return nil, fmt.Errorf("missing required key: mail.accounts")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
