package mail

import (
	"errors"
	"testing"

	"github.com/emersion/go-imap/v2"
)

func TestFolderFromRecord(t *testing.T) {
	s := NewSession(Options{Host: "localhost", Port: 143})

	f := s.folderFromRecord(&imap.ListData{
		Attrs:   []imap.MailboxAttr{imap.MailboxAttrNoSelect, imap.MailboxAttrHasChildren},
		Delim:   '.',
		Mailbox: "Work.Reports",
	})

	if f.Path != "Work.Reports" {
		t.Errorf("Path = %q", f.Path)
	}
	if f.Name != "Reports" {
		t.Errorf("Name = %q, want Reports", f.Name)
	}
	if f.Delimiter != "." {
		t.Errorf("Delimiter = %q, want .", f.Delimiter)
	}
	if !f.NoSelect || !f.HasChildren {
		t.Errorf("flags: NoSelect=%v HasChildren=%v", f.NoSelect, f.HasChildren)
	}
	if f.NoInferiors || f.Marked || f.Referral {
		t.Error("unexpected flags set")
	}
}

func TestFolderFromRecord_DefaultDelimiter(t *testing.T) {
	s := NewSession(Options{Host: "localhost", Port: 143})

	for _, delim := range []rune{0, ' '} {
		f := s.folderFromRecord(&imap.ListData{Delim: delim, Mailbox: "INBOX"})
		if f.Delimiter != "/" {
			t.Errorf("Delim %q: Delimiter = %q, want /", delim, f.Delimiter)
		}
	}
}

func TestFolderFromRecord_UTF7Name(t *testing.T) {
	s := NewSession(Options{Host: "localhost", Port: 143})

	f := s.folderFromRecord(&imap.ListData{Delim: '/', Mailbox: "Entw&APw-rfe"})
	if f.FullName != "Entwürfe" {
		t.Errorf("FullName = %q, want Entwürfe", f.FullName)
	}
	if f.Name != "Entwürfe" {
		t.Errorf("Name = %q, want Entwürfe", f.Name)
	}
	// Path keeps the wire form for SELECT.
	if f.Path != "Entw&APw-rfe" {
		t.Errorf("Path = %q", f.Path)
	}
}

func TestFolderAttrMask(t *testing.T) {
	mask := folderAttrMask([]imap.MailboxAttr{
		imap.MailboxAttrNoInferiors,
		imap.MailboxAttrMarked,
		`\Referral`,
		`\SomeUnknownAttr`,
	})
	want := FolderNoInferiors | FolderMarked | FolderReferral
	if mask != want {
		t.Errorf("mask = %#x, want %#x", mask, want)
	}
}

func TestListFoldersFlat(t *testing.T) {
	addr, _ := newTestIMAPServer(t)
	createTestMailbox(t, addr, "Archive")
	createTestMailbox(t, addr, "Archive/2026")
	s := newTestSession(t, addr)

	folders, err := s.ListFolders(false, "")
	if err != nil {
		t.Fatalf("ListFolders() error: %v", err)
	}

	names := map[string]bool{}
	for _, f := range folders {
		names[f.Path] = true
		if len(f.Children) != 0 {
			t.Errorf("flat listing should not populate Children (%s)", f.Path)
		}
	}
	for _, want := range []string{"INBOX", "Archive", "Archive/2026"} {
		if !names[want] {
			t.Errorf("missing folder %s in %v", want, names)
		}
	}
}

func TestListFoldersHierarchical(t *testing.T) {
	s := NewSession(Options{Host: "localhost", Port: 143})

	listings := map[string][]*imap.ListData{
		"%": {
			{Mailbox: "INBOX", Delim: '/'},
			{Mailbox: "Archive", Delim: '/', Attrs: []imap.MailboxAttr{imap.MailboxAttrHasChildren}},
		},
		"Archive/%": {
			{Mailbox: "Archive/2026", Delim: '/'},
		},
	}
	list := func(pattern string) ([]*imap.ListData, error) {
		return listings[pattern], nil
	}

	folders, err := s.listFolders(true, "", list)
	if err != nil {
		t.Fatalf("listFolders() error: %v", err)
	}

	if len(folders) != 2 {
		t.Fatalf("got %d top-level folders, want 2", len(folders))
	}
	var archive *Folder
	for _, f := range folders {
		if f.Path == "Archive/2026" {
			t.Error("child leaked into the top level")
		}
		if f.Path == "Archive" {
			archive = f
		}
	}
	if archive == nil {
		t.Fatal("Archive not listed")
	}
	if len(archive.Children) != 1 || archive.Children[0].Path != "Archive/2026" {
		t.Fatalf("Archive children = %+v", archive.Children)
	}
	if archive.Children[0].Name != "2026" {
		t.Errorf("child Name = %q, want 2026", archive.Children[0].Name)
	}
}

func TestListFoldersHierarchical_ListError(t *testing.T) {
	s := NewSession(Options{Host: "localhost", Port: 143})

	list := func(pattern string) ([]*imap.ListData, error) {
		return nil, errors.New("LIST refused")
	}

	_, err := s.listFolders(true, "", list)
	var lerr *ListError
	if !errors.As(err, &lerr) {
		t.Fatalf("error = %v, want *ListError", err)
	}
	if lerr.Pattern != "%" {
		t.Errorf("Pattern = %q", lerr.Pattern)
	}
}

func TestFolderMessages(t *testing.T) {
	addr, _ := newTestIMAPServer(t)
	appendTestMail(t, addr, "INBOX", testMailBasic)
	s := newTestSession(t, addr)

	folders, err := s.ListFolders(false, "")
	if err != nil {
		t.Fatal(err)
	}
	var inbox *Folder
	for _, f := range folders {
		if f.Path == "INBOX" {
			inbox = f
		}
	}
	if inbox == nil {
		t.Fatal("INBOX not listed")
	}

	q, err := inbox.Messages("")
	if err != nil {
		t.Fatalf("Messages() error: %v", err)
	}
	if s.FolderPath() != "INBOX" {
		t.Fatalf("FolderPath() = %q after Messages", s.FolderPath())
	}

	uids, err := q.Execute()
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if len(uids) != 1 {
		t.Fatalf("got %d messages, want 1", len(uids))
	}
}
