package mail

import (
	"strings"

	"github.com/emersion/go-imap/v2"
)

// Mailbox attribute bits, matching the classic c-client LATT_* values.
const (
	FolderNoInferiors = 1 << 0
	FolderNoSelect    = 1 << 1
	FolderMarked      = 1 << 2
	FolderReferral    = 1 << 4
	FolderHasChildren = 1 << 5
)

// Folder is one mailbox from a listing. Values are immutable after
// construction except for Children, attached during hierarchical
// listing.
type Folder struct {
	session *Session

	// Path is the raw wire form of the mailbox name, used for SELECT.
	Path string
	// FullName is the decoded mailbox path.
	FullName string
	// Name is the display name: the last path segment.
	Name string
	// Delimiter separates hierarchy levels, "/" when the server
	// reports none.
	Delimiter string

	NoInferiors bool
	NoSelect    bool
	Marked      bool
	HasChildren bool
	Referral    bool

	Children []*Folder
}

// folderFromRecord builds a Folder from one mailbox-listing record.
// The raw name carries the server's modified UTF-7 encoding and is
// decoded for display; attribute flags are derived from a bitmask,
// unknown bits are ignored.
func (s *Session) folderFromRecord(record *imap.ListData) *Folder {
	f := &Folder{
		session:   s,
		Path:      record.Mailbox,
		Delimiter: normalizeDelimiter(record.Delim),
	}
	f.FullName = decodeUTF7(record.Mailbox)
	segments := strings.Split(f.FullName, f.Delimiter)
	f.Name = segments[len(segments)-1]

	mask := folderAttrMask(record.Attrs)
	f.NoInferiors = mask&FolderNoInferiors != 0
	f.NoSelect = mask&FolderNoSelect != 0
	f.Marked = mask&FolderMarked != 0
	f.Referral = mask&FolderReferral != 0
	f.HasChildren = mask&FolderHasChildren != 0
	return f
}

func normalizeDelimiter(delim rune) string {
	switch delim {
	case 0, ' ':
		return "/"
	default:
		return string(delim)
	}
}

func folderAttrMask(attrs []imap.MailboxAttr) int {
	var mask int
	for _, attr := range attrs {
		switch {
		case strings.EqualFold(string(attr), string(imap.MailboxAttrNoInferiors)):
			mask |= FolderNoInferiors
		case strings.EqualFold(string(attr), string(imap.MailboxAttrNoSelect)):
			mask |= FolderNoSelect
		case strings.EqualFold(string(attr), string(imap.MailboxAttrMarked)):
			mask |= FolderMarked
		case strings.EqualFold(string(attr), `\Referral`):
			mask |= FolderReferral
		case strings.EqualFold(string(attr), string(imap.MailboxAttrHasChildren)):
			mask |= FolderHasChildren
		}
	}
	return mask
}

// Messages selects the folder and returns a search builder bound to
// it. charset is passed through to search execution.
func (f *Folder) Messages(charset string) (*SearchQuery, error) {
	if err := f.session.OpenFolder(f.Path, DefaultAttempts); err != nil {
		return nil, err
	}
	return NewSearch(f.session, charset), nil
}
