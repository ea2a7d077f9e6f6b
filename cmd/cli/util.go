package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/minsksanek/mailreader/pkgs/config"
	"github.com/minsksanek/mailreader/pkgs/mail"
)

// cliDateLayout is the date format accepted by --since and --on.
const cliDateLayout = "2006-01-02"

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func (a *app) loadAccount() *config.AccountConfig {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err)
		fmt.Fprintf(os.Stderr, "Run 'mailreader init' to create a config file\n")
		os.Exit(1)
	}
	acc, err := cfg.GetAccount(a.account)
	if err != nil {
		fatal("%v", err)
	}
	return acc
}

// newSession builds a session from the account config and connects it.
func newSession(a *app, acc *config.AccountConfig) (*mail.Session, error) {
	level := slog.LevelWarn
	if a.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	s := mail.NewSession(mail.Options{
		Host:          acc.IMAP.Host,
		Port:          acc.IMAP.Port,
		Protocol:      acc.IMAP.Protocol,
		Encryption:    acc.IMAP.Encryption,
		ValidateCert:  acc.IMAP.ValidateCert,
		Username:      acc.IMAP.Username,
		Password:      acc.IMAP.Password,
		SASL:          acc.IMAP.SASL,
		NameDecoder:   acc.NameDecoder,
		AttachmentDir: acc.AttachmentDir,
		Logger:        logger,
	})
	if err := s.Connect(mail.DefaultAttempts); err != nil {
		return nil, err
	}
	return s, nil
}

func parseCLIDate(value string) (time.Time, error) {
	t, err := time.Parse(cliDateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD)", value)
	}
	return t, nil
}

func formatAddress(addr mail.Address) string {
	if addr.Full != "" {
		return addr.Full
	}
	return addr.Mail
}

func formatAddressList(addrs []mail.Address) string {
	if len(addrs) == 0 {
		return ""
	}
	parts := make([]string, len(addrs))
	for i, a := range addrs {
		parts[i] = formatAddress(a)
	}
	return strings.Join(parts, ", ")
}

// truncate truncates a string to maxLen runes, preserving UTF-8 boundaries.
func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen]) + "..."
}
