package mail

import (
	"strings"

	gomail "github.com/emersion/go-message/mail"
)

// Address is one mailbox in an address header field. Mail and Full are
// derived at parse time: Mail is "local@host" (empty when either part
// is missing), Full is `"name <mail>"` or the bare mail.
type Address struct {
	Mailbox  string
	Host     string
	Personal string
	Mail     string
	Full     string
}

func newAddress(mailbox, host, personal string) Address {
	a := Address{Mailbox: mailbox, Host: host, Personal: personal}
	if a.Mailbox != "" && a.Host != "" {
		a.Mail = a.Mailbox + "@" + a.Host
	}
	if a.Personal != "" {
		a.Full = a.Personal + " <" + a.Mail + ">"
	} else {
		a.Full = a.Mail
	}
	return a
}

// parseAddressList converts a decoded go-message address list into the
// reader's address model.
func parseAddressList(list []*gomail.Address) []Address {
	addrs := make([]Address, 0, len(list))
	for _, item := range list {
		var mailbox, host string
		if at := strings.LastIndex(item.Address, "@"); at >= 0 {
			mailbox, host = item.Address[:at], item.Address[at+1:]
		} else {
			mailbox = item.Address
		}
		addrs = append(addrs, newAddress(mailbox, host, item.Name))
	}
	return addrs
}
