package main

import (
	"fmt"
	"os"
	"time"

	"github.com/emersion/go-mbox"
	"github.com/minsksanek/mailreader/pkgs/config"
	"github.com/minsksanek/mailreader/pkgs/mail"
	flag "github.com/spf13/pflag"
)

type exportFlags struct {
	folder string
	output string
	since  string
	unseen bool
}

func parseExportFlags(args []string) exportFlags {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	var f exportFlags
	fs.StringVar(&f.folder, "folder", "INBOX", "Folder to export")
	fs.StringVar(&f.output, "output", "", "Target mbox file")
	fs.StringVar(&f.since, "since", "", "Limit to messages on or after this date (YYYY-MM-DD)")
	fs.BoolVar(&f.unseen, "unseen", false, "Limit to unseen messages")
	if err := fs.Parse(args); err != nil {
		fatal("export: %v", err)
	}
	return f
}

func handleExport(a *app, acc *config.AccountConfig, f exportFlags) error {
	if f.output == "" {
		return fmt.Errorf("--output is required")
	}

	s, err := newSession(a, acc)
	if err != nil {
		return err
	}
	defer s.Disconnect()

	if err := s.OpenFolder(f.folder, mail.DefaultAttempts); err != nil {
		return err
	}

	q := mail.NewSearch(s, "UTF-8")
	if f.since != "" {
		t, err := parseCLIDate(f.since)
		if err != nil {
			return err
		}
		q.WhereSince(t)
	}
	if f.unseen {
		q.WhereUnseen()
	}

	uids, err := q.Execute()
	if err != nil {
		return err
	}
	if len(uids) == 0 {
		fmt.Println("No messages to export.")
		return nil
	}

	file, err := os.Create(f.output)
	if err != nil {
		return fmt.Errorf("failed to create mbox file: %w", err)
	}
	defer file.Close()

	w := mbox.NewWriter(file)
	defer w.Close()

	for _, uid := range uids {
		raw, err := s.RawMessage(uid)
		if err != nil {
			return err
		}
		msg, err := s.DecodeMessage(uid)
		if err != nil {
			return err
		}
		from := "unknown@unknown"
		if len(msg.From) > 0 && msg.From[0].Mail != "" {
			from = msg.From[0].Mail
		}
		date := msg.Date
		if date.IsZero() {
			date = time.Now()
		}
		mw, err := w.CreateMessage(from, date)
		if err != nil {
			return fmt.Errorf("failed to start mbox entry: %w", err)
		}
		if _, err := mw.Write(raw); err != nil {
			return fmt.Errorf("failed to write mbox entry: %w", err)
		}
	}

	fmt.Printf("Exported %d message(s) to %s\n", len(uids), f.output)
	return nil
}
