package mail

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"

	"github.com/emersion/go-imap/v2"
	"github.com/gabriel-vasile/mimetype"
)

// Coarse attachment kinds derived from the structure type.
var attachmentKinds = map[string]string{
	"message":     "message",
	"application": "application",
	"audio":       "audio",
	"image":       "image",
	"video":       "video",
	"model":       "model",
	"text":        "text",
	"multipart":   "multipart",
}

// Attachment is one extracted MIME part: decoded content plus the
// classification and naming metadata resolved from the structure.
// Immutable once fetched; nothing is persisted until Save is called.
type Attachment struct {
	message *Message

	// PartNumber is the dot-separated part path within the message.
	PartNumber string
	// Kind is the coarse type classification ("image", "application", ...).
	Kind string
	// ContentType is "{kind}/{subtype}", subtype lowercased.
	ContentType string
	// ContentID is the part's content-id with angle brackets stripped.
	ContentID string
	// Name is the resolved filename (see newAttachment for the
	// resolution order).
	Name string
	// Disposition is the part disposition recorded alongside the
	// matched name source, "" when none.
	Disposition string
	// Content holds the decoded bytes.
	Content []byte

	sniffed *mimetype.MIME
	imgSrc  string
}

// newAttachment decodes and classifies one part. The name resolves
// from, in priority order: a filename parameter on the disposition, an
// embedded message's description (else its subtype), and a name
// parameter on the content type. Parts with no resolvable name return
// nil; they exist on the server but are not independently useful.
func newAttachment(part *imap.BodyStructureSinglePart, path []int, raw []byte, namePref string) *Attachment {
	kind, ok := attachmentKinds[strings.ToLower(part.Type)]
	if !ok {
		kind = "other"
	}
	att := &Attachment{
		PartNumber:  partNumber(path),
		Kind:        kind,
		ContentType: kind + "/" + strings.ToLower(part.Subtype),
		ContentID:   angleBrackets.Replace(part.ID),
		Content:     decodeTransfer(raw, part.Encoding),
	}

	disposition := part.Disposition()
	if disposition != nil {
		if filename, ok := disposition.Params["filename"]; ok && filename != "" {
			att.Name = decodeHeaderValue(filename, namePref)
			att.Disposition = disposition.Value
		}
	}
	if att.Name == "" && strings.EqualFold(part.Type, "message") {
		if part.Description != "" {
			att.Name = decodeHeaderValue(part.Description, namePref)
		} else {
			att.Name = strings.ToLower(part.Subtype)
		}
	}
	if att.Name == "" {
		if name, ok := part.Params["name"]; ok && name != "" {
			att.Name = decodeHeaderValue(name, namePref)
			if disposition != nil {
				att.Disposition = disposition.Value
			}
		}
	}

	if att.Name == "" {
		return nil
	}
	return att
}

// Message returns the owning message. The reference exists to reach
// the shared session; the attachment does not own the message.
func (a *Attachment) Message() *Message { return a.message }

// MimeType reports the MIME type sniffed from the decoded bytes. The
// declared content type can be wrong or absent, so the actual content
// decides.
func (a *Attachment) MimeType() string {
	return a.sniff().String()
}

// Extension guesses a file extension (without dot) from the sniffed
// MIME type, "" when unknown.
func (a *Attachment) Extension() string {
	return strings.TrimPrefix(a.sniff().Extension(), ".")
}

func (a *Attachment) sniff() *mimetype.MIME {
	if a.sniffed == nil {
		a.sniffed = mimetype.Detect(a.Content)
	}
	return a.sniffed
}

// ImgSrc returns an inline data URI for image attachments, computed
// once and cached. Non-image attachments return "".
func (a *Attachment) ImgSrc() string {
	if a.Kind == "image" && a.imgSrc == "" {
		a.imgSrc = "data:" + a.ContentType + ";base64," + base64.StdEncoding.EncodeToString(a.Content)
	}
	return a.imgSrc
}

// Save writes the decoded content to dir under filename. Empty
// arguments fall back to the session's attachment directory and the
// resolved name. The written path is returned; failures surface as a
// *IOError carrying the attempted path.
func (a *Attachment) Save(dir, filename string) (string, error) {
	if dir == "" && a.message != nil {
		dir = a.message.session.opts.AttachmentDir
	}
	if dir == "" {
		dir = defaultAttachmentDir()
	}
	if filename == "" {
		filename = a.Name
	}
	// Strip directory components to keep the file under dir.
	filename = filepath.Base(filename)
	path := filepath.Join(dir, filename)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &IOError{Path: path, Err: err}
	}
	if err := os.WriteFile(path, a.Content, 0o644); err != nil {
		return "", &IOError{Path: path, Err: err}
	}
	return path, nil
}

func defaultAttachmentDir() string {
	if cache, err := os.UserCacheDir(); err == nil {
		return filepath.Join(cache, "mailreader", "attachments")
	}
	return filepath.Join(os.TempDir(), "mailreader", "attachments")
}
