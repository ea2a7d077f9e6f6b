package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"
)

const version = "1.0.0"

// app holds global options parsed from the command line
type app struct {
	account string
	verbose bool
}

func main() {
	a := &app{}

	// Global flags
	flag.StringVar(&a.account, "account", "", "Account name or email to use")
	flag.BoolVarP(&a.verbose, "verbose", "v", false, "Verbose output")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Usage = printUsage
	flag.Parse()

	if *showVersion {
		fmt.Printf("mailreader CLI v%s\n", version)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	cmd := args[0]
	cmdArgs := args[1:]

	// "init" doesn't need config loaded
	if cmd == "init" {
		if err := handleInit(); err != nil {
			fatal("init: %v", err)
		}
		return
	}

	// Load config and resolve account
	acc := a.loadAccount()

	switch cmd {
	case "folders":
		opts := parseFoldersFlags(cmdArgs)
		if err := handleFolders(a, acc, opts); err != nil {
			fatal("folders: %v", err)
		}
	case "search":
		opts := parseSearchFlags(cmdArgs)
		if err := handleSearch(a, acc, opts); err != nil {
			fatal("search: %v", err)
		}
	case "fetch":
		opts := parseFetchFlags(cmdArgs)
		if err := handleFetch(a, acc, opts); err != nil {
			fatal("fetch: %v", err)
		}
	case "save":
		opts := parseSaveFlags(cmdArgs)
		if err := handleSave(a, acc, opts); err != nil {
			fatal("save: %v", err)
		}
	case "export":
		opts := parseExportFlags(cmdArgs)
		if err := handleExport(a, acc, opts); err != nil {
			fatal("export: %v", err)
		}
	case "help":
		printUsage()
		os.Exit(0)
	default:
		fatal("unknown command '%s'", cmd)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `mailreader CLI v%s - Command-line mailbox reader

Usage:
  mailreader [global options] <command> [command options]

Commands:
  folders    List mailbox folders
  search     Search messages in a folder
  fetch      Fetch and display a message
  save       Save a message's attachments
  export     Export messages to an mbox file
  init       Initialize configuration file

Global Options:
  --account <name>   Account name or email to use
  -v, --verbose      Verbose output
  --version          Show version information

Config Resolution:
  Set env var MAILREADER_CONFIG_JSON to a JSON config file.
  Run 'mailreader init' to create one.

Folders Options:
  --flat                 Flat listing instead of the hierarchy tree
  --parent <path>        List only the subtree under this folder

Search Options:
  --folder <name>        Folder to search (default: INBOX)
  --since <date>         Messages on or after this date (YYYY-MM-DD)
  --on <date>            Messages on this date (YYYY-MM-DD)
  --unseen               Only unseen messages
  --where <KEYWORD[=v]>  Raw search predicate, repeatable (e.g. FROM=bob)
  --uids-only            Print matching UIDs without fetching headers

Fetch Options:
  --uid <uid>            Message UID to fetch
  --folder <name>        Folder containing the message (default: INBOX)
  --output <path>        Output file (default: stdout)
  --format <format>      Output format: text or html (default: text)

Save Options:
  --uid <uid>            Message UID whose attachments to save
  --folder <name>        Folder containing the message (default: INBOX)
  --dir <path>           Target directory (default: account attachment_dir)

Export Options:
  --folder <name>        Folder to export (default: INBOX)
  --output <path>        Target mbox file (required)
  --since <date>         Limit to messages on or after this date
  --unseen               Limit to unseen messages

Examples:
  mailreader folders
  mailreader -v search --since 2026-01-01 --unseen
  mailreader search --where FROM=alice@example.com --where UNSEEN
  mailreader fetch --uid 12345 --format html --output mail.html
  mailreader save --uid 12345 --dir ./attachments
  mailreader export --folder Archive --output archive.mbox
  mailreader init
`, version)
}
