package mail

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	gomessage "github.com/emersion/go-message"
	gomail "github.com/emersion/go-message/mail"
)

// Body kinds produced by the structure walk.
const (
	BodyText = "text"
	BodyHTML = "html"
)

var angleBrackets = strings.NewReplacer("<", "", ">", "")

// Message is one fully decoded message: header attributes, the
// text/html bodies found during the structure walk, and the named
// attachments. Messages are read-only to consumers.
type Message struct {
	session *Session
	folder  string

	UID    imap.UID
	SeqNum uint32

	Subject    string
	From       []Address
	To         []Address
	Cc         []Address
	Bcc        []Address
	ReplyTo    []Address
	Sender     []Address
	MessageID  string
	InReplyTo  string
	References string
	Date       time.Time

	// Bodies maps body kind (BodyText, BodyHTML) to decoded content.
	Bodies map[string]string

	// Attachments in walk order. Attachments carrying a content-id are
	// additionally addressable through AttachmentByID.
	Attachments []*Attachment

	byContentID map[string]int
}

// AttachmentByID returns the attachment with the given content-id.
func (m *Message) AttachmentByID(id string) (*Attachment, bool) {
	idx, ok := m.byContentID[id]
	if !ok {
		return nil, false
	}
	return m.Attachments[idx], true
}

// TextBody returns the decoded text/plain body, "" when absent.
func (m *Message) TextBody() string { return m.Bodies[BodyText] }

// HTMLBody returns the decoded text/html body, "" when absent.
func (m *Message) HTMLBody() string { return m.Bodies[BodyHTML] }

// DecodeMessage fetches and decodes the message with the given
// identifier from the currently selected folder: header attributes
// first, then the MIME structure walk that produces bodies and
// attachments. The folder selection is re-asserted (idempotently)
// before each server round trip.
func (s *Session) DecodeMessage(uid imap.UID) (*Message, error) {
	msg := &Message{
		session:     s,
		folder:      s.activeFolder,
		UID:         uid,
		Bodies:      make(map[string]string),
		byContentID: make(map[string]int),
	}
	if err := msg.parseHeader(); err != nil {
		return nil, err
	}
	if err := msg.parseBody(); err != nil {
		return nil, err
	}
	return msg, nil
}

// parseHeader fetches the raw header block and extracts the message
// attributes. Absent optional fields keep their zero values; only an
// unparseable date escalates to an error.
func (m *Message) parseHeader() error {
	if err := m.session.OpenFolder(m.folder, DefaultAttempts); err != nil {
		return err
	}

	section := &imap.FetchItemBodySection{Specifier: imap.PartSpecifierHeader, Peek: true}
	buf, err := m.session.fetchOne(m.UID, &imap.FetchOptions{
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{section},
	})
	if err != nil {
		return fmt.Errorf("fetch header of %d: %w", m.UID, err)
	}
	if buf == nil {
		return fmt.Errorf("message %d not found in %q", m.UID, m.folder)
	}
	m.SeqNum = buf.SeqNum

	raw := buf.FindBodySection(section)
	entity, err := gomessage.Read(bytes.NewReader(raw))
	if err != nil && !gomessage.IsUnknownCharset(err) || entity == nil {
		return fmt.Errorf("parse header of %d: %w", m.UID, err)
	}
	header := gomail.Header{Header: entity.Header}

	if subject, err := header.Subject(); err == nil {
		m.Subject = subject
	} else {
		m.Subject = header.Get("Subject")
	}

	addressFields := []struct {
		key  string
		dest *[]Address
	}{
		{"From", &m.From},
		{"To", &m.To},
		{"Cc", &m.Cc},
		{"Bcc", &m.Bcc},
		{"Reply-To", &m.ReplyTo},
		{"Sender", &m.Sender},
	}
	for _, field := range addressFields {
		if list, err := header.AddressList(field.key); err == nil && len(list) > 0 {
			*field.dest = parseAddressList(list)
		}
	}

	m.References = header.Get("References")
	m.InReplyTo = angleBrackets.Replace(strings.TrimSpace(header.Get("In-Reply-To")))
	m.MessageID = angleBrackets.Replace(strings.TrimSpace(header.Get("Message-Id")))

	if rawDate := header.Get("Date"); rawDate != "" {
		date, err := parseMessageDate(rawDate, m.MessageID)
		if err != nil {
			return err
		}
		m.Date = date
	}
	return nil
}

// parseBody fetches the body structure, normalizes charset parameter
// quirks, walks the MIME tree and folds the leaf results into bodies
// and attachments.
func (m *Message) parseBody() error {
	if err := m.session.OpenFolder(m.folder, DefaultAttempts); err != nil {
		return err
	}

	buf, err := m.session.fetchOne(m.UID, &imap.FetchOptions{
		UID:           true,
		BodyStructure: &imap.FetchItemBodyStructure{Extended: true},
	})
	if err != nil {
		return fmt.Errorf("fetch structure of %d: %w", m.UID, err)
	}
	if buf == nil || buf.BodyStructure == nil {
		return fmt.Errorf("message %d has no body structure", m.UID)
	}

	structure := buf.BodyStructure
	normalizeCharsetParams(structure)

	results, err := m.walk(structure, nil)
	if err != nil {
		return err
	}
	for _, r := range results {
		switch r.kind {
		case BodyText, BodyHTML:
			m.Bodies[r.kind] = r.content
		default:
			m.addAttachment(r.attachment)
		}
	}
	return nil
}

// normalizeCharsetParams rewrites known charset aliasing quirks on
// every part before the walk descends (e.g. iso-8859-8-i, or charset
// values polluted with a Content-Transfer-Encoding token).
func normalizeCharsetParams(structure imap.BodyStructure) {
	switch part := structure.(type) {
	case *imap.BodyStructureSinglePart:
		if cs, ok := part.Params["charset"]; ok {
			cs = strings.ReplaceAll(cs, "Content-Transfer-Encoding", "")
			part.Params["charset"] = canonicalCharset(cs)
		}
	case *imap.BodyStructureMultiPart:
		for _, child := range part.Children {
			normalizeCharsetParams(child)
		}
	}
}

// partResult is one decoded leaf from the structure walk: either a
// body (kind BodyText/BodyHTML with content) or an attachment.
type partResult struct {
	kind       string
	content    string
	attachment *Attachment
}

// walk recursively descends the MIME tree. Part numbers are assigned
// along the way: dot-separated, 1-based. The recursion is pure in the
// sense that it only returns results; folding into the message happens
// at the top level.
func (m *Message) walk(structure imap.BodyStructure, path []int) ([]partResult, error) {
	switch part := structure.(type) {
	case *imap.BodyStructureMultiPart:
		var results []partResult
		for i, child := range part.Children {
			childPath := append(append([]int{}, path...), i+1)
			sub, err := m.walk(child, childPath)
			if err != nil {
				return nil, err
			}
			results = append(results, sub...)
		}
		return results, nil

	case *imap.BodyStructureSinglePart:
		return m.walkSinglePart(part, path)
	}
	return nil, nil
}

func (m *Message) walkSinglePart(part *imap.BodyStructureSinglePart, path []int) ([]partResult, error) {
	root := len(path) == 0
	if root {
		// A non-multipart message body is always part 1.
		path = []int{1}
	}
	disposition := partDisposition(part)

	if strings.EqualFold(part.Type, "text") {
		switch {
		case strings.EqualFold(part.Subtype, "plain") && disposition == "":
			content, err := m.fetchPartText(part, path)
			if err != nil {
				return nil, err
			}
			results := []partResult{{kind: BodyText, content: content}}
			// A text part exposing name parameters doubles as an
			// attachment; nameless ones are dropped by the extractor.
			if att, err := m.extractAttachment(part, path); err != nil {
				return nil, err
			} else if att != nil {
				results = append(results, partResult{kind: "attachment", attachment: att})
			}
			return results, nil

		case strings.EqualFold(part.Subtype, "html") && disposition == "":
			content, err := m.fetchPartText(part, path)
			if err != nil {
				return nil, err
			}
			return []partResult{{kind: BodyHTML, content: content}}, nil

		case strings.EqualFold(disposition, "attachment"):
			return m.attachmentResult(part, path)
		}
		if root && disposition != "" {
			// A single-part message whose text body declares some other
			// disposition (inline with a filename, typically) is really
			// a bare attachment.
			return m.attachmentResult(part, path)
		}
		// Other text subtypes without an attachment disposition carry
		// nothing the message model records.
		return nil, nil
	}

	if strings.EqualFold(disposition, "attachment") {
		return m.attachmentResult(part, path)
	}
	// Catch-all: embedded messages, images, audio and anything else
	// not already claimed as a body is attachment material.
	return m.attachmentResult(part, path)
}

func (m *Message) attachmentResult(part *imap.BodyStructureSinglePart, path []int) ([]partResult, error) {
	att, err := m.extractAttachment(part, path)
	if err != nil {
		return nil, err
	}
	if att == nil {
		return nil, nil
	}
	return []partResult{{kind: "attachment", attachment: att}}, nil
}

// fetchPartText fetches one part's bytes, reverses its transfer
// encoding and converts the declared charset to UTF-8. Charset
// conversion is skipped entirely for us-ascii content.
func (m *Message) fetchPartText(part *imap.BodyStructureSinglePart, path []int) (string, error) {
	raw, err := m.fetchPart(path)
	if err != nil {
		return "", err
	}
	decoded := decodeTransfer(raw, part.Encoding)
	cs := partCharset(part)
	if cs != "us-ascii" {
		decoded = convertCharset(decoded, cs)
	}
	return string(decoded), nil
}

// fetchPart fetches the raw bytes of the part at the given part
// number path.
func (m *Message) fetchPart(path []int) ([]byte, error) {
	if err := m.session.OpenFolder(m.folder, DefaultAttempts); err != nil {
		return nil, err
	}
	section := &imap.FetchItemBodySection{Part: path, Peek: true}
	buf, err := m.session.fetchOne(m.UID, &imap.FetchOptions{
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{section},
	})
	if err != nil {
		return nil, fmt.Errorf("fetch part %s of %d: %w", partNumber(path), m.UID, err)
	}
	if buf == nil {
		return nil, fmt.Errorf("message %d not found in %q", m.UID, m.folder)
	}
	return buf.FindBodySection(section), nil
}

// extractAttachment fetches and classifies one part as an attachment.
// Returns nil when no name can be resolved for the part; such parts
// are not independently addressable and are dropped.
func (m *Message) extractAttachment(part *imap.BodyStructureSinglePart, path []int) (*Attachment, error) {
	raw, err := m.fetchPart(path)
	if err != nil {
		return nil, err
	}
	att := newAttachment(part, path, raw, m.session.opts.NameDecoder)
	if att == nil {
		return nil, nil
	}
	att.message = m
	return att, nil
}

// addAttachment records an extractor result: keyed by content-id when
// one is present (later parts with the same id replace earlier ones),
// appended positionally otherwise.
func (m *Message) addAttachment(att *Attachment) {
	if att == nil {
		return
	}
	if att.ContentID != "" {
		if idx, ok := m.byContentID[att.ContentID]; ok {
			m.Attachments[idx] = att
			return
		}
		m.byContentID[att.ContentID] = len(m.Attachments)
	}
	m.Attachments = append(m.Attachments, att)
}

func partDisposition(part *imap.BodyStructureSinglePart) string {
	if disp := part.Disposition(); disp != nil {
		return disp.Value
	}
	return ""
}

func partCharset(part *imap.BodyStructureSinglePart) string {
	if cs, ok := part.Params["charset"]; ok && cs != "" {
		return canonicalCharset(cs)
	}
	return "utf-8"
}

func partNumber(path []int) string {
	segments := make([]string, len(path))
	for i, n := range path {
		segments[i] = fmt.Sprint(n)
	}
	return strings.Join(segments, ".")
}
