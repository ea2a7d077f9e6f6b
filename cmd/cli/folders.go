package main

import (
	"fmt"
	"strings"

	"github.com/minsksanek/mailreader/pkgs/config"
	"github.com/minsksanek/mailreader/pkgs/mail"
	flag "github.com/spf13/pflag"
)

type foldersFlags struct {
	flat   bool
	parent string
}

func parseFoldersFlags(args []string) foldersFlags {
	fs := flag.NewFlagSet("folders", flag.ExitOnError)
	var f foldersFlags
	fs.BoolVar(&f.flat, "flat", false, "Flat listing instead of the hierarchy tree")
	fs.StringVar(&f.parent, "parent", "", "List only the subtree under this folder")
	if err := fs.Parse(args); err != nil {
		fatal("folders: %v", err)
	}
	return f
}

func handleFolders(a *app, acc *config.AccountConfig, f foldersFlags) error {
	s, err := newSession(a, acc)
	if err != nil {
		return err
	}
	defer s.Disconnect()

	folders, err := s.ListFolders(!f.flat, f.parent)
	if err != nil {
		return err
	}

	fmt.Println("Folders:")
	printFolders(folders, 0)
	return nil
}

func printFolders(folders []*mail.Folder, depth int) {
	indent := strings.Repeat("  ", depth+1)
	for _, f := range folders {
		var marks []string
		if f.NoSelect {
			marks = append(marks, "noselect")
		}
		if f.Marked {
			marks = append(marks, "marked")
		}
		suffix := ""
		if len(marks) > 0 {
			suffix = " [" + strings.Join(marks, ", ") + "]"
		}
		fmt.Printf("%s%s%s\n", indent, f.Name, suffix)
		printFolders(f.Children, depth+1)
	}
}
