package mail

import (
	"fmt"
	"strings"
)

// ConnectionError is returned when the transport connection cannot be
// opened or reopened. ServerErrors carries any error lines reported by
// the server before the connection went away.
type ConnectionError struct {
	Addr         string
	ServerErrors []string
	Err          error
}

func (e *ConnectionError) Error() string {
	msg := fmt.Sprintf("imap: connect %s: %v", e.Addr, e.Err)
	if len(e.ServerErrors) > 0 {
		msg += ". " + strings.Join(e.ServerErrors, "; ")
	}
	return msg
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ListError is returned when the server fails to produce a mailbox
// listing at all. An empty listing is not an error.
type ListError struct {
	Pattern string
	Err     error
}

func (e *ListError) Error() string {
	return fmt.Sprintf("imap: list %q: %v", e.Pattern, e.Err)
}

func (e *ListError) Unwrap() error { return e.Err }

// InvalidCriteriaError is returned by SearchQuery.Where for a keyword
// outside the supported criteria set.
type InvalidCriteriaError struct {
	Keyword string
}

func (e *InvalidCriteriaError) Error() string {
	return fmt.Sprintf("imap: unsupported search criteria %q", e.Keyword)
}

// SearchError is returned when search execution fails at the transport
// level. Query holds the rendered criteria string.
type SearchError struct {
	Query string
	Err   error
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("imap: search %q: %v", e.Query, e.Err)
}

func (e *SearchError) Unwrap() error { return e.Err }

// DateParseError is returned when a message date remains unparseable
// after all fallback normalizations. It always names the message so
// the failure is attributable.
type DateParseError struct {
	MessageID string
	Value     string
}

func (e *DateParseError) Error() string {
	return fmt.Sprintf("imap: invalid message date %q (message-id %q)", e.Value, e.MessageID)
}

// IOError is returned when saving an attachment to disk fails.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("imap: save %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
