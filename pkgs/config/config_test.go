package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testConfigJSON = `{
  "mail": {
    "default_account": "work",
    "accounts": {
      "work": {
        "name": "Work Account",
        "email": "user@example.com",
        "imap": {
          "host": "imap.example.com",
          "port": 993,
          "encryption": "ssl",
          "validate_cert": true,
          "username": "user@example.com",
          "password": "secret"
        },
        "attachment_dir": "/tmp/attachments",
        "name_decoder": "mime"
      },
      "personal": {
        "email": "me@example.org",
        "imap": {
          "host": "mail.example.org",
          "port": 143,
          "username": "me"
        }
      }
    }
  }
}`

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigFile(t *testing.T) {
	path := writeTestConfig(t, testConfigJSON)

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile() error: %v", err)
	}
	if len(cfg.Accounts) != 2 {
		t.Fatalf("Accounts = %d, want 2", len(cfg.Accounts))
	}

	work := cfg.Accounts["work"]
	if work.IMAP.Host != "imap.example.com" || work.IMAP.Port != 993 {
		t.Errorf("IMAP = %+v", work.IMAP)
	}
	if work.IMAP.Encryption != "ssl" || !work.IMAP.ValidateCert {
		t.Errorf("IMAP security = %+v", work.IMAP)
	}
	if work.AttachmentDir != "/tmp/attachments" || work.NameDecoder != "mime" {
		t.Errorf("account extras = %+v", work)
	}
}

func TestLoadConfig_Env(t *testing.T) {
	path := writeTestConfig(t, testConfigJSON)
	t.Setenv(EnvConfigJSONPath, path)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.DefaultAccount != "work" {
		t.Errorf("DefaultAccount = %q", cfg.DefaultAccount)
	}
}

func TestLoadConfig_EnvUnset(t *testing.T) {
	t.Setenv(EnvConfigJSONPath, "")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error when env var is unset")
	}
}

func TestGetAccount(t *testing.T) {
	path := writeTestConfig(t, testConfigJSON)
	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatal(err)
	}

	// By map key.
	if acc, err := cfg.GetAccount("personal"); err != nil || acc.Email != "me@example.org" {
		t.Errorf("by key: %v %+v", err, acc)
	}
	// By email.
	if acc, err := cfg.GetAccount("me@example.org"); err != nil || acc.IMAP.Host != "mail.example.org" {
		t.Errorf("by email: %v %+v", err, acc)
	}
	// Empty falls back to default_account.
	if acc, err := cfg.GetAccount(""); err != nil || acc.Email != "user@example.com" {
		t.Errorf("default: %v %+v", err, acc)
	}
	// Unknown.
	if _, err := cfg.GetAccount("nobody"); err == nil {
		t.Error("expected error for unknown account")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  string
		wantErr string
	}{
		{"missing host", `"host": "imap.example.com",`, "imap host is required"},
		{"bad encryption", `"encryption": "ssl",`, "unknown encryption"},
		{"bad decoder", `"name_decoder": "mime"`, "unknown name_decoder"},
	}
	replacements := map[string]string{
		"missing host":   `"host": "",`,
		"bad encryption": `"encryption": "rot13",`,
		"bad decoder":    `"name_decoder": "base64"`,
	}
	for _, tt := range tests {
		broken := strings.Replace(testConfigJSON, tt.mutate, replacements[tt.name], 1)
		path := writeTestConfig(t, broken)
		_, err := LoadConfigFile(path)
		if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
			t.Errorf("%s: err = %v, want %q", tt.name, err, tt.wantErr)
		}
	}
}

func TestValidate_MissingAccountsKey(t *testing.T) {
	path := writeTestConfig(t, `{"mail": {}}`)
	if _, err := LoadConfigFile(path); err == nil {
		t.Fatal("expected error for missing accounts")
	}
}

func TestSaveAndReloadExample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.json")
	if err := SaveConfig(path, ExampleRootConfig()); err != nil {
		t.Fatalf("SaveConfig() error: %v", err)
	}

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile() error: %v", err)
	}
	if _, err := cfg.GetAccount(""); err != nil {
		t.Errorf("GetAccount on example config: %v", err)
	}
}

func TestAccountDomain(t *testing.T) {
	acc := AccountConfig{Email: "user@example.com"}
	if got := acc.Domain(); got != "example.com" {
		t.Errorf("Domain() = %q", got)
	}
	acc.Email = "nodomain"
	if got := acc.Domain(); got != "localhost" {
		t.Errorf("Domain() = %q, want localhost", got)
	}
}
