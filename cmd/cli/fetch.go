package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/minsksanek/mailreader/pkgs/config"
	"github.com/minsksanek/mailreader/pkgs/mail"
	flag "github.com/spf13/pflag"
)

type fetchFlags struct {
	uid    uint32
	folder string
	output string
	format string
}

func parseFetchFlags(args []string) fetchFlags {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	var f fetchFlags
	fs.Uint32Var(&f.uid, "uid", 0, "Message UID to fetch")
	fs.StringVar(&f.folder, "folder", "INBOX", "Folder containing the message")
	fs.StringVar(&f.output, "output", "", "Output file (default: stdout)")
	fs.StringVar(&f.format, "format", "text", "Output format: text or html")
	if err := fs.Parse(args); err != nil {
		fatal("fetch: %v", err)
	}
	return f
}

func handleFetch(a *app, acc *config.AccountConfig, f fetchFlags) error {
	if f.uid == 0 {
		return fmt.Errorf("--uid is required")
	}

	s, err := newSession(a, acc)
	if err != nil {
		return err
	}
	defer s.Disconnect()

	if err := s.OpenFolder(f.folder, mail.DefaultAttempts); err != nil {
		return err
	}

	msg, err := s.DecodeMessage(imap.UID(f.uid))
	if err != nil {
		return err
	}

	var out io.Writer = os.Stdout
	if f.output != "" {
		file, err := os.Create(f.output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer file.Close()
		out = file
	}

	switch f.format {
	case "html":
		if msg.HTMLBody() == "" {
			return fmt.Errorf("no HTML body available")
		}
		fmt.Fprintln(out, msg.HTMLBody())
	case "text", "":
		fmt.Fprintf(out, "From: %s\n", formatAddressList(msg.From))
		fmt.Fprintf(out, "To: %s\n", formatAddressList(msg.To))
		if len(msg.Cc) > 0 {
			fmt.Fprintf(out, "Cc: %s\n", formatAddressList(msg.Cc))
		}
		fmt.Fprintf(out, "Subject: %s\n", msg.Subject)
		fmt.Fprintf(out, "Date: %s\n", msg.Date.Format(time.RFC1123))
		fmt.Fprintf(out, "Message-ID: %s\n", msg.MessageID)
		if msg.InReplyTo != "" {
			fmt.Fprintf(out, "In-Reply-To: %s\n", msg.InReplyTo)
		}

		if len(msg.Attachments) > 0 {
			fmt.Fprintf(out, "\nAttachments (%d):\n", len(msg.Attachments))
			for i, att := range msg.Attachments {
				fmt.Fprintf(out, "  [%d] %s (%s, %d bytes)\n", i+1, att.Name, att.ContentType, len(att.Content))
			}
		}

		fmt.Fprintf(out, "\n%s\n", msg.TextBody())
	default:
		return fmt.Errorf("unsupported format: %s", f.format)
	}
	return nil
}
