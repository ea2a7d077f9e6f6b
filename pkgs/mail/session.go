package mail

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"strings"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-sasl"
)

// DefaultAttempts is the connection retry count used when an operation
// needs an implicit reconnect.
const DefaultAttempts = 3

// Options configures a Session.
type Options struct {
	Host string
	Port int

	// Protocol is the mailbox access protocol. Only "imap" (the
	// default) is supported; anything else fails the dial.
	Protocol string

	// Encryption is one of "tls", "ssl", "starttls", "notls", "none".
	// "ssl" and "tls" dial an implicit TLS connection; "starttls"
	// upgrades a plaintext connection.
	Encryption   string
	ValidateCert bool

	Username string
	Password string

	// SASL authenticates with SASL PLAIN instead of LOGIN.
	SASL bool

	// NameDecoder selects the attachment name decoding strategy:
	// "utf-8" (charset-aware, the default) or "mime" (generic decode).
	NameDecoder string

	// AttachmentDir is the default directory for Attachment.Save.
	AttachmentDir string

	Logger *slog.Logger
}

// Session owns one connection to a mail server together with the
// folder-selection state. A Session is not safe for concurrent use:
// the selected folder and the transport handle are mutated in place
// and every fetch depends on the current selection. Use one Session
// per goroutine.
type Session struct {
	opts Options
	log  *slog.Logger

	client       *imapclient.Client
	connected    bool
	activeFolder string
	serverErrors []string
}

// NewSession prepares a session for the given server. No connection is
// made until Connect or the first operation.
func NewSession(opts Options) *Session {
	if opts.Protocol == "" {
		opts.Protocol = "imap"
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Session{opts: opts, log: log}
}

// Addr returns the dial address.
func (s *Session) Addr() string {
	return fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
}

// IsConnected reports whether the session holds a live handle.
func (s *Session) IsConnected() bool { return s.connected }

// FolderPath returns the currently selected folder, or "" when none
// has been selected on this connection.
func (s *Session) FolderPath() string { return s.activeFolder }

// Errors returns server error lines accumulated over the session's
// lifetime (failed dial attempts, logout complaints).
func (s *Session) Errors() []string { return s.serverErrors }

// Connect tears down any existing connection and opens a fresh one,
// retrying the dial and login sequence up to maxAttempts times. On
// failure the returned error is a *ConnectionError carrying the last
// transport error and accumulated server error lines.
func (s *Session) Connect(maxAttempts int) error {
	s.Disconnect()
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		client, err := s.dial()
		if err == nil {
			err = s.login(client)
			if err == nil {
				s.client = client
				s.connected = true
				s.activeFolder = ""
				s.log.Debug("imap connected", "addr", s.Addr(), "attempt", attempt)
				return nil
			}
			client.Close()
		}
		lastErr = err
		s.serverErrors = append(s.serverErrors, err.Error())
		s.log.Warn("imap connect failed", "addr", s.Addr(), "attempt", attempt, "error", err)
	}
	return &ConnectionError{Addr: s.Addr(), ServerErrors: s.serverErrors, Err: lastErr}
}

func (s *Session) dial() (*imapclient.Client, error) {
	if p := strings.ToLower(s.opts.Protocol); p != "" && p != "imap" {
		return nil, fmt.Errorf("unsupported protocol %q", s.opts.Protocol)
	}

	opts := &imapclient.Options{}
	if !s.opts.ValidateCert {
		opts.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}

	switch strings.ToLower(s.opts.Encryption) {
	case "tls", "ssl":
		return imapclient.DialTLS(s.Addr(), opts)
	case "starttls":
		return imapclient.DialStartTLS(s.Addr(), opts)
	default: // "notls", "none", ""
		return imapclient.DialInsecure(s.Addr(), opts)
	}
}

func (s *Session) login(client *imapclient.Client) error {
	if s.opts.SASL {
		auth := sasl.NewPlainClient("", s.opts.Username, s.opts.Password)
		if err := client.Authenticate(auth); err != nil {
			return fmt.Errorf("sasl authentication failed: %w", err)
		}
		return nil
	}
	if err := client.Login(s.opts.Username, s.opts.Password).Wait(); err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}
	return nil
}

// conn returns the live handle, connecting first when needed. Every
// higher-level operation goes through this accessor, which is what
// makes reconnection lazy and universal.
func (s *Session) conn() (*imapclient.Client, error) {
	if !s.connected || s.client == nil {
		if err := s.Connect(DefaultAttempts); err != nil {
			return nil, err
		}
	}
	return s.client, nil
}

// Disconnect closes the handle if one is open and records any late
// server error lines. Calling it on a disconnected session is a no-op.
func (s *Session) Disconnect() {
	if !s.connected || s.client == nil {
		return
	}
	if err := s.client.Logout().Wait(); err != nil {
		s.serverErrors = append(s.serverErrors, err.Error())
	}
	s.client.Close()
	s.client = nil
	s.connected = false
	s.activeFolder = ""
	s.log.Debug("imap disconnected", "addr", s.Addr())
}

// OpenFolder selects the folder on the live connection unless it is
// already the active one, so repeated operations against the same
// folder cost no extra round trips.
func (s *Session) OpenFolder(path string, maxAttempts int) error {
	client, err := s.conn()
	if err != nil {
		return err
	}
	if s.activeFolder == path {
		return nil
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if _, err := client.Select(path, nil).Wait(); err != nil {
			lastErr = err
			continue
		}
		s.activeFolder = path
		s.log.Debug("imap folder selected", "folder", path)
		return nil
	}
	return fmt.Errorf("select folder %q: %w", path, lastErr)
}

// ListFolders lists mailboxes under parentPrefix and wraps them as
// Folders. With hierarchical set, one hierarchy level is listed per
// call ("%" wildcard) and folders advertising children are expanded
// recursively into their Children slice; otherwise a single flat "*"
// listing is returned with empty Children.
func (s *Session) ListFolders(hierarchical bool, parentPrefix string) ([]*Folder, error) {
	client, err := s.conn()
	if err != nil {
		return nil, err
	}
	list := func(pattern string) ([]*imap.ListData, error) {
		return client.List("", pattern, &imap.ListOptions{ReturnChildren: true}).Collect()
	}
	return s.listFolders(hierarchical, parentPrefix, list)
}

func (s *Session) listFolders(hierarchical bool, parentPrefix string, list func(pattern string) ([]*imap.ListData, error)) ([]*Folder, error) {
	wildcard := "*"
	if hierarchical {
		wildcard = "%"
	}
	pattern := parentPrefix + wildcard

	records, err := list(pattern)
	if err != nil {
		return nil, &ListError{Pattern: pattern, Err: err}
	}

	folders := make([]*Folder, 0, len(records))
	for _, record := range records {
		folder := s.folderFromRecord(record)
		if hierarchical && folder.HasChildren {
			children, err := s.listFolders(true, folder.Path+folder.Delimiter, list)
			if err != nil {
				return nil, err
			}
			folder.Children = children
		}
		folders = append(folders, folder)
	}
	return folders, nil
}

// fetchOne runs a single-message UID FETCH and returns the collected
// buffer, or nil when the server knows no such message.
func (s *Session) fetchOne(uid imap.UID, options *imap.FetchOptions) (*imapclient.FetchMessageBuffer, error) {
	client, err := s.conn()
	if err != nil {
		return nil, err
	}
	msgs, err := client.Fetch(imap.UIDSetNum(uid), options).Collect()
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, nil
	}
	return msgs[0], nil
}

// RawMessage fetches the complete unparsed message (headers and body)
// for uid in the currently selected folder.
func (s *Session) RawMessage(uid imap.UID) ([]byte, error) {
	section := &imap.FetchItemBodySection{Peek: true}
	buf, err := s.fetchOne(uid, &imap.FetchOptions{
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{section},
	})
	if err != nil {
		return nil, fmt.Errorf("fetch message %d: %w", uid, err)
	}
	if buf == nil {
		return nil, fmt.Errorf("message %d not found in %q", uid, s.activeFolder)
	}
	return buf.FindBodySection(section), nil
}
