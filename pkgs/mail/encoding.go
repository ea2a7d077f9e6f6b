package mail

import (
	"bytes"
	"encoding/base64"
	"io"
	"mime"
	"mime/quotedprintable"
	"strings"

	"github.com/emersion/go-message/charset"
)

// Transfer encodings as reported in a BODYSTRUCTURE response.
const (
	Encoding7Bit            = "7BIT"
	Encoding8Bit            = "8BIT"
	EncodingBinary          = "BINARY"
	EncodingBase64          = "BASE64"
	EncodingQuotedPrintable = "QUOTED-PRINTABLE"
)

// encodingAliases maps loosely specified charset names seen in the wild
// to the canonical name the conversion layer understands. Lookups are
// lowercase.
var encodingAliases = map[string]string{
	"ascii":             "us-ascii",
	"us":                "us-ascii",
	"ansi_x3.4-1968":    "us-ascii",
	"646":               "us-ascii",
	"utf7":              "utf-7",
	"unicode-1-1-utf-7": "utf-7",
	"utf8":              "utf-8",
	"unicode-1-1-utf-8": "utf-8",
	"iso-8859-8-i":      "iso-8859-8",
	"iso8859-1":         "iso-8859-1",
	"iso8859-2":         "iso-8859-2",
	"iso8859-5":         "iso-8859-5",
	"iso8859-8":         "iso-8859-8",
	"iso8859-9":         "iso-8859-9",
	"iso8859-15":        "iso-8859-15",
	"latin1":            "iso-8859-1",
	"latin2":            "iso-8859-2",
	"latin5":            "iso-8859-9",
	"latin9":            "iso-8859-15",
	"cp1250":            "windows-1250",
	"cp1251":            "windows-1251",
	"cp1252":            "windows-1252",
	"cp1254":            "windows-1254",
	"cp1257":            "windows-1257",
	"win-1251":          "windows-1251",
	"win1251":           "windows-1251",
	"ms_kanji":          "shift_jis",
	"shift-jis":         "shift_jis",
	"sjis":              "shift_jis",
	"x-sjis":            "shift_jis",
	"ks_c_5601-1987":    "euc-kr",
	"ksc5601":           "euc-kr",
	"korean":            "euc-kr",
	"gb2312-80":         "gb2312",
	"chinese":           "gb2312",
	"cn-gb":             "gb2312",
	"x-gbk":             "gbk",
	"cyrillic":          "iso-8859-5",
	"koi8r":             "koi8-r",
	"koi8u":             "koi8-u",
	"tis620":            "windows-874",
	"tis-620":           "windows-874",
	"iso-8859-11":       "windows-874",
	"arabic":            "iso-8859-6",
	"greek":             "iso-8859-7",
	"hebrew":            "iso-8859-8",
	"macintosh":         "macintosh",
	"mac":               "macintosh",
}

// canonicalCharset resolves vendor charset names (quirky casing,
// aliases) to a canonical identifier. Unknown names pass through
// lowercased.
func canonicalCharset(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if alias, ok := encodingAliases[name]; ok {
		return alias
	}
	return name
}

// decodeTransfer reverses a part's content transfer encoding. Unknown
// encodings and malformed payloads pass through untouched; the raw
// bytes are more useful to the caller than an error here.
func decodeTransfer(data []byte, encoding string) []byte {
	switch strings.ToUpper(strings.TrimSpace(encoding)) {
	case Encoding7Bit, EncodingBinary, "":
		return data
	case EncodingBase64:
		return decodeBase64(data)
	case EncodingQuotedPrintable:
		return decodeQuotedPrintable(data)
	case Encoding8Bit:
		// 8-bit text is normalized through a quoted-printable round
		// trip; true 8-bit payloads come back unchanged.
		return decodeQuotedPrintable(data)
	default:
		return data
	}
}

func decodeBase64(data []byte) []byte {
	clean := make([]byte, 0, len(data))
	for _, c := range data {
		if c == '\r' || c == '\n' || c == ' ' || c == '\t' {
			continue
		}
		clean = append(clean, c)
	}
	out := make([]byte, base64.StdEncoding.DecodedLen(len(clean)))
	n, err := base64.StdEncoding.Decode(out, clean)
	if err != nil {
		// Retry without padding before giving up on the payload.
		if raw, rawErr := base64.RawStdEncoding.DecodeString(string(clean)); rawErr == nil {
			return raw
		}
		return data
	}
	return out[:n]
}

func decodeQuotedPrintable(data []byte) []byte {
	out, err := io.ReadAll(quotedprintable.NewReader(bytes.NewReader(data)))
	if err != nil {
		return data
	}
	return out
}

// convertCharset converts content from the declared charset to UTF-8.
// The conversion is skipped when the source is already us-ascii or
// UTF-8. When the source charset is unknown to the charset registry
// the undecoded bytes are kept.
func convertCharset(data []byte, from string) []byte {
	from = canonicalCharset(from)
	if from == "" || from == "us-ascii" || from == "utf-8" {
		return data
	}
	r, err := charset.Reader(from, bytes.NewReader(data))
	if err != nil {
		return data
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return data
	}
	return out
}

// decodeHeaderValue decodes RFC 2047 encoded words in a header value.
// pref selects between the charset-aware decode ("utf-8", the IMAP
// native behavior) and the generic MIME word decoder.
func decodeHeaderValue(value, pref string) string {
	var dec mime.WordDecoder
	if pref != "mime" {
		dec.CharsetReader = charset.Reader
	}
	decoded, err := dec.DecodeHeader(value)
	if err != nil {
		return value
	}
	return decoded
}
