// Package utf7 decodes the modified UTF-7 encoding of RFC 3501 section
// 5.1.3, as it appears in inbound mailbox names and ID field values.
//
// Modified UTF-7 shifts with '&' instead of '+' and substitutes ',' for '/'
// in the base64 alphabet; a literal '&' is written "&-".
package utf7

import (
	"encoding/base64"
	"strings"
	"unicode/utf16"
)

var modifiedBase64 = base64.NewEncoding("ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+,").WithPadding(base64.NoPadding)

// Decode decodes a modified UTF-7 string to UTF-8. Malformed shift
// sequences pass through verbatim instead of failing, which is what ID
// field values seen in the wild require.
func Decode(s string) string {
	var buf strings.Builder
	buf.Grow(len(s))

	i := 0
	for i < len(s) {
		if s[i] != '&' {
			buf.WriteByte(s[i])
			i++
			continue
		}

		end := strings.IndexByte(s[i+1:], '-')
		if end < 0 {
			// Unterminated shift sequence, keep the rest as is.
			buf.WriteString(s[i:])
			break
		}
		if end == 0 {
			// "&-" is a literal ampersand.
			buf.WriteByte('&')
			i += 2
			continue
		}

		encoded := s[i+1 : i+1+end]
		decoded, ok := decodeSegment(encoded)
		if !ok {
			buf.WriteString(s[i : i+end+2])
		} else {
			buf.WriteString(decoded)
		}
		i += end + 2
	}

	return buf.String()
}

func decodeSegment(encoded string) (string, bool) {
	raw, err := modifiedBase64.DecodeString(encoded)
	if err != nil || len(raw)%2 != 0 {
		return "", false
	}

	units := make([]uint16, 0, len(raw)/2)
	for j := 0; j < len(raw); j += 2 {
		units = append(units, uint16(raw[j])<<8|uint16(raw[j+1]))
	}

	runes := utf16.Decode(units)
	for _, r := range runes {
		if r == 0xFFFD {
			return "", false
		}
	}
	return string(runes), true
}
