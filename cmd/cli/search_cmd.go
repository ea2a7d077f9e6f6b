package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/minsksanek/mailreader/pkgs/config"
	"github.com/minsksanek/mailreader/pkgs/mail"
	flag "github.com/spf13/pflag"
)

type searchFlags struct {
	folder   string
	since    string
	on       string
	unseen   bool
	where    []string
	uidsOnly bool
}

func parseSearchFlags(args []string) searchFlags {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	var f searchFlags
	fs.StringVar(&f.folder, "folder", "INBOX", "Folder to search")
	fs.StringVar(&f.since, "since", "", "Messages on or after this date (YYYY-MM-DD)")
	fs.StringVar(&f.on, "on", "", "Messages on this date (YYYY-MM-DD)")
	fs.BoolVar(&f.unseen, "unseen", false, "Only unseen messages")
	fs.StringArrayVar(&f.where, "where", nil, "Raw search predicate, repeatable (KEYWORD or KEYWORD=value)")
	fs.BoolVar(&f.uidsOnly, "uids-only", false, "Print matching UIDs without fetching headers")
	if err := fs.Parse(args); err != nil {
		fatal("search: %v", err)
	}
	return f
}

// buildQuery translates the command-line filters into a search query.
func buildQuery(s *mail.Session, f searchFlags) (*mail.SearchQuery, error) {
	q := mail.NewSearch(s, "UTF-8")

	if f.since != "" {
		t, err := parseCLIDate(f.since)
		if err != nil {
			return nil, err
		}
		q.WhereSince(t)
	}
	if f.on != "" {
		t, err := parseCLIDate(f.on)
		if err != nil {
			return nil, err
		}
		q.WhereOn(t)
	}
	if f.unseen {
		q.WhereUnseen()
	}

	for _, raw := range f.where {
		keyword, value := raw, ""
		if idx := strings.Index(raw, "="); idx >= 0 {
			keyword, value = raw[:idx], raw[idx+1:]
		}
		if err := q.Where(keyword, value); err != nil {
			return nil, err
		}
	}

	return q, nil
}

func handleSearch(a *app, acc *config.AccountConfig, f searchFlags) error {
	s, err := newSession(a, acc)
	if err != nil {
		return err
	}
	defer s.Disconnect()

	if err := s.OpenFolder(f.folder, mail.DefaultAttempts); err != nil {
		return err
	}

	q, err := buildQuery(s, f)
	if err != nil {
		return err
	}
	if a.verbose {
		fmt.Fprintf(os.Stderr, "Query: %s\n", q.Render())
	}

	uids, err := q.Execute()
	if err != nil {
		return err
	}
	if len(uids) == 0 {
		fmt.Println("No messages found.")
		return nil
	}

	if f.uidsOnly {
		for _, uid := range uids {
			fmt.Println(uid)
		}
		return nil
	}

	for _, uid := range uids {
		msg, err := s.DecodeMessage(uid)
		if err != nil {
			return err
		}
		fmt.Printf("%6d  %s  %-30s  %s\n",
			msg.UID,
			msg.Date.Format("2006-01-02 15:04"),
			truncate(formatAddressList(msg.From), 30),
			truncate(msg.Subject, 60))
	}
	fmt.Printf("\n%d message(s)\n", len(uids))
	return nil
}
