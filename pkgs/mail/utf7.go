package mail

import (
	"encoding/base64"
	"strings"
	"unicode/utf16"
)

// Modified UTF-7 as defined in RFC 3501 section 5.1.3. Servers encode
// non-ASCII mailbox names with "&...-" shifted sequences using a base64
// variant where "," replaces "/". "&-" escapes a literal "&".
var utf7Encoding = base64.NewEncoding("ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+,").WithPadding(base64.NoPadding)

// decodeUTF7 decodes a modified UTF-7 mailbox name to plain text. The
// input is returned unchanged when it contains no shifted sequence or
// when a sequence is malformed, matching the lenient behavior servers
// expect from clients.
func decodeUTF7(s string) string {
	if !strings.ContainsRune(s, '&') {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		c := s[i]
		if c != '&' {
			b.WriteByte(c)
			i++
			continue
		}

		end := strings.IndexByte(s[i+1:], '-')
		if end < 0 {
			// Unterminated shift, give up on decoding.
			return s
		}
		seq := s[i+1 : i+1+end]
		i += end + 2

		if seq == "" {
			b.WriteByte('&')
			continue
		}
		decoded, ok := decodeUTF7Sequence(seq)
		if !ok {
			return s
		}
		b.WriteString(decoded)
	}
	return b.String()
}

func decodeUTF7Sequence(seq string) (string, bool) {
	raw, err := utf7Encoding.DecodeString(seq)
	if err != nil || len(raw)%2 != 0 {
		return "", false
	}
	units := make([]uint16, 0, len(raw)/2)
	for i := 0; i < len(raw); i += 2 {
		units = append(units, uint16(raw[i])<<8|uint16(raw[i+1]))
	}
	return string(utf16.Decode(units)), true
}
