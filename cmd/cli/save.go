package main

import (
	"fmt"
	"os"

	"github.com/emersion/go-imap/v2"
	"github.com/minsksanek/mailreader/pkgs/config"
	"github.com/minsksanek/mailreader/pkgs/mail"
	flag "github.com/spf13/pflag"
)

type saveFlags struct {
	uid    uint32
	folder string
	dir    string
}

func parseSaveFlags(args []string) saveFlags {
	fs := flag.NewFlagSet("save", flag.ExitOnError)
	var f saveFlags
	fs.Uint32Var(&f.uid, "uid", 0, "Message UID whose attachments to save")
	fs.StringVar(&f.folder, "folder", "INBOX", "Folder containing the message")
	fs.StringVar(&f.dir, "dir", "", "Target directory (default: account attachment_dir)")
	if err := fs.Parse(args); err != nil {
		fatal("save: %v", err)
	}
	return f
}

func handleSave(a *app, acc *config.AccountConfig, f saveFlags) error {
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
	if len(msg.Attachments) == 0 {
		fmt.Println("No attachments.")
		return nil
	}

	for i, att := range msg.Attachments {
		path, err := att.Save(f.dir, "")
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "  [%d] Saved: %s\n", i+1, path)
	}
	return nil
}
