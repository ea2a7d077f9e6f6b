package mail

import (
	"net"
	"strconv"
	"testing"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-imap/v2/imapserver"
	"github.com/emersion/go-imap/v2/imapserver/imapmemserver"
)

// ---------------------------------------------------------------------------
// IMAP mock server helpers
// ---------------------------------------------------------------------------

const (
	imapTestUser = "testuser"
	imapTestPass = "testpass"
)

// newTestIMAPServer starts an in-memory IMAP server and returns the listen
// address.  Caller must eventually call srv.Close() (done via t.Cleanup).
func newTestIMAPServer(t *testing.T) (addr string, memSrv *imapmemserver.Server) {
	t.Helper()

	memSrv = imapmemserver.New()
	user := imapmemserver.NewUser(imapTestUser, imapTestPass)
	user.Create("INBOX", nil)
	memSrv.AddUser(user)

	srv := imapserver.New(&imapserver.Options{
		NewSession: func(_ *imapserver.Conn) (imapserver.Session, *imapserver.GreetingData, error) {
			return memSrv.NewSession(), nil, nil
		},
		InsecureAuth: true,
		Caps: imap.CapSet{
			imap.CapIMAP4rev1: {},
		},
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	go srv.Serve(ln)
	t.Cleanup(func() { srv.Close() })

	return ln.Addr().String(), memSrv
}

// createTestMailbox creates an extra mailbox via a direct IMAP client.
func createTestMailbox(t *testing.T, addr, mailbox string) {
	t.Helper()

	c := newRawClient(t, addr)
	defer c.Close()
	if err := c.Create(mailbox, nil).Wait(); err != nil {
		t.Fatal(err)
	}
}

// appendTestMail appends a raw RFC 5322 message to the given mailbox via
// a direct IMAP client (not through our wrapper).
func appendTestMail(t *testing.T, addr, mailbox, rawMsg string) {
	t.Helper()

	c := newRawClient(t, addr)
	defer c.Close()

	appendCmd := c.Append(mailbox, int64(len(rawMsg)), nil)
	if _, err := appendCmd.Write([]byte(rawMsg)); err != nil {
		t.Fatal(err)
	}
	if err := appendCmd.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := appendCmd.Wait(); err != nil {
		t.Fatal(err)
	}
}

func newRawClient(t *testing.T, addr string) *imapclient.Client {
	t.Helper()

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatal(err)
	}
	c := imapclient.New(conn, nil)
	if err := c.Login(imapTestUser, imapTestPass).Wait(); err != nil {
		t.Fatal(err)
	}
	return c
}

// newTestSession creates a connected Session pointed at the test server.
func newTestSession(t *testing.T, addr string) *Session {
	t.Helper()
	host, port := splitHostPort(t, addr)
	s := NewSession(Options{
		Host:     host,
		Port:     port,
		Username: imapTestUser,
		Password: imapTestPass,
	})
	if err := s.Connect(DefaultAttempts); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(s.Disconnect)
	return s
}

// splitHostPort splits "host:port" into (host, int port).
func splitHostPort(t *testing.T, addr string) (string, int) {
	t.Helper()
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatal(err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatal(err)
	}
	return host, port
}

// ---------------------------------------------------------------------------
// Test fixtures
// ---------------------------------------------------------------------------

// testMailBasic is a minimal RFC 5322 message.
const testMailBasic = "MIME-Version: 1.0\r\n" +
	"From: Alice Sender <alice@example.com>\r\n" +
	"To: bob@example.com\r\n" +
	"Subject: Test Subject\r\n" +
	"Date: Mon, 10 Feb 2026 08:00:00 +0000\r\n" +
	"Message-Id: <test-1@example.com>\r\n" +
	"In-Reply-To: <parent-1@example.com>\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Hello, World!"

// testMailMultipart is a multipart/mixed message: text + html alternative
// plus a base64 PNG attachment. The subject carries an encoded word.
const testMailMultipart = "MIME-Version: 1.0\r\n" +
	"From: sender@example.com\r\n" +
	"To: rcpt@example.com\r\n" +
	"Cc: carol@example.com\r\n" +
	"Subject: =?utf-8?Q?Gr=C3=BC=C3=9Fe?=\r\n" +
	"Date: Mon, 10 Feb 2026 08:00:00 +0000\r\n" +
	"Message-Id: <test-multi@example.com>\r\n" +
	"Content-Type: multipart/mixed; boundary=\"OUTER\"\r\n" +
	"\r\n" +
	"--OUTER\r\n" +
	"Content-Type: multipart/alternative; boundary=\"INNER\"\r\n" +
	"\r\n" +
	"--INNER\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Plain version\r\n" +
	"--INNER\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<p>HTML version</p>\r\n" +
	"--INNER--\r\n" +
	"--OUTER\r\n" +
	"Content-Type: image/png; name=\"pixel.png\"\r\n" +
	"Content-Transfer-Encoding: base64\r\n" +
	"Content-Id: <pixel@example.com>\r\n" +
	"Content-Disposition: attachment; filename=\"pixel.png\"\r\n" +
	"\r\n" +
	"iVBORw0KGgo=\r\n" +
	"--OUTER--\r\n"

// testMailNameless carries an attachment part with no resolvable name.
const testMailNameless = "MIME-Version: 1.0\r\n" +
	"From: sender@example.com\r\n" +
	"To: rcpt@example.com\r\n" +
	"Subject: Nameless Attachment\r\n" +
	"Date: Mon, 10 Feb 2026 08:00:00 +0000\r\n" +
	"Message-Id: <test-nameless@example.com>\r\n" +
	"Content-Type: multipart/mixed; boundary=\"MIXED\"\r\n" +
	"\r\n" +
	"--MIXED\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Body text\r\n" +
	"--MIXED\r\n" +
	"Content-Type: application/octet-stream\r\n" +
	"Content-Disposition: attachment\r\n" +
	"\r\n" +
	"RAWBYTES\r\n" +
	"--MIXED--\r\n"

// testMailInlineText is a single-part message whose text body declares
// an inline disposition with a filename.
const testMailInlineText = "MIME-Version: 1.0\r\n" +
	"From: sender@example.com\r\n" +
	"To: rcpt@example.com\r\n" +
	"Subject: Inline Notes\r\n" +
	"Date: Mon, 10 Feb 2026 08:00:00 +0000\r\n" +
	"Message-Id: <test-inline@example.com>\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"Content-Disposition: inline; filename=\"notes.txt\"\r\n" +
	"\r\n" +
	"Some notes"

// testMailQuirkDate uses the bogus +0580 zone some Windows Mail builds
// emit.
const testMailQuirkDate = "MIME-Version: 1.0\r\n" +
	"From: sender@example.com\r\n" +
	"To: rcpt@example.com\r\n" +
	"Subject: Quirk Date\r\n" +
	"Date: Mon, 10 Feb 2026 08:00:00 +0580\r\n" +
	"Message-Id: <test-quirk@example.com>\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Hi"
