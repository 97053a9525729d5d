package parser

import (
	"encoding/base64"
	"errors"
	"math"

	"github.com/emiago/imapgo/imap"
)

func base64Decode(raw []byte) ([]byte, error) {
	out := make([]byte, base64.StdEncoding.DecodedLen(len(raw)))
	n, err := base64.StdEncoding.Decode(out, raw)
	if err != nil {
		return nil, err
	}
	return out[:n], nil
}

// rule is a reversible parse function: it either advances the cursor or
// restores it and reports why it could not.
type rule func(r *reader) error

// expectByte matches exactly one byte.
func expectByte(r *reader, want byte) error {
	b, err := r.peekByte()
	if err != nil {
		return err
	}
	if b != want {
		return r.errParse("expected " + string(want))
	}
	r.consume(1)
	return nil
}

// lowerASCII folds A-Z; IMAP keywords compare case insensitively.
func lowerASCII(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}

// expectString matches the bytes of s ASCII case insensitively. When the
// buffer runs out while the available prefix still matches, the result is
// ErrIncomplete: more bytes could turn the prefix into a match, and
// reporting a parse error here would drop valid lines.
func expectString(r *reader, s string) error {
	m := r.mark()
	for i := 0; i < len(s); i++ {
		b, err := r.peekByte()
		if err != nil {
			r.restore(m)
			return imap.ErrIncomplete
		}
		if lowerASCII(b) != lowerASCII(s[i]) {
			r.restore(m)
			return r.errParse("expected " + s)
		}
		r.consume(1)
	}
	return nil
}

// optional runs fn and swallows only its ParseError, restoring the cursor.
// Incomplete propagates: an alternative that has started consuming must not
// hide that a retry with more bytes might succeed. Limit errors propagate
// too.
func optional(r *reader, fn rule) (bool, error) {
	m := r.mark()
	err := fn(r)
	if err == nil {
		return true, nil
	}
	var pe *imap.ParseError
	if errors.As(err, &pe) {
		r.restore(m)
		return false, nil
	}
	r.restore(m)
	return false, err
}

// alternative tries each rule in order. The first success wins; a
// ParseError falls through to the next arm; Incomplete short-circuits,
// because with more bytes the current arm might succeed.
func alternative(r *reader, fns ...rule) error {
	if err := r.enter(); err != nil {
		return err
	}
	defer r.exit()

	m := r.mark()
	var last error
	for _, fn := range fns {
		err := fn(r)
		if err == nil {
			return nil
		}
		r.restore(m)
		var pe *imap.ParseError
		if !errors.As(err, &pe) {
			return err
		}
		last = err
	}
	if last == nil {
		last = r.errParse("no alternative matched")
	}
	return last
}

// repeated runs fn until its first ParseError, which ends the loop.
// Incomplete propagates.
func repeated(r *reader, fn rule) (int, error) {
	if err := r.enter(); err != nil {
		return 0, err
	}
	defer r.exit()

	n := 0
	for {
		m := r.mark()
		err := fn(r)
		if err == nil {
			n++
			continue
		}
		r.restore(m)
		var pe *imap.ParseError
		if errors.As(err, &pe) {
			return n, nil
		}
		return n, err
	}
}

// repeated1 is repeated requiring at least one match.
func repeated1(r *reader, fn rule) (int, error) {
	n, err := repeated(r, fn)
	if err != nil {
		return n, err
	}
	if n == 0 {
		return 0, r.errParse("expected at least one element")
	}
	return n, nil
}

// space consumes one or more ASCII spaces.
func space(r *reader) error {
	b, err := r.peekByte()
	if err != nil {
		return err
	}
	if b != ' ' {
		return r.errParse("expected SP")
	}
	for {
		r.consume(1)
		b, err := r.peekByte()
		if err != nil || b != ' ' {
			return nil
		}
	}
}

// newline consumes CRLF, or a bare LF as seen from servers in the wild.
func newline(r *reader) error {
	b, err := r.peekByte()
	if err != nil {
		return err
	}
	switch b {
	case '\n':
		r.consume(1)
		return nil
	case '\r':
		m := r.mark()
		r.consume(1)
		b, err := r.peekByte()
		if err != nil {
			r.restore(m)
			return err
		}
		if b != '\n' {
			r.restore(m)
			return r.errParse("expected LF after CR")
		}
		r.consume(1)
		return nil
	default:
		return r.errParse("expected CRLF")
	}
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// readDigits consumes a maximal run of ASCII digits. Exhausting the buffer
// mid-run is Incomplete: the next byte decides whether the run continues.
func readDigits(r *reader) ([]byte, error) {
	m := r.mark()
	for {
		b, err := r.peekByte()
		if err != nil {
			r.restore(m)
			return nil, imap.ErrIncomplete
		}
		if !isDigit(b) {
			break
		}
		r.consume(1)
	}
	if r.off == m {
		return nil, r.errParse("expected digit")
	}
	return r.buf[m:r.off], nil
}

// readNumber parses a 32-bit unsigned number. Overflow is a parse error,
// not a wrapped value.
func readNumber(r *reader) (uint32, error) {
	m := r.mark()
	n, err := readNumber64(r)
	if err != nil {
		return 0, err
	}
	if n > math.MaxUint32 {
		r.restore(m)
		return 0, r.errParse("number exceeds 32 bits")
	}
	return uint32(n), nil
}

// readNumber64 parses a 64-bit unsigned number.
func readNumber64(r *reader) (uint64, error) {
	m := r.mark()
	digits, err := readDigits(r)
	if err != nil {
		return 0, err
	}
	var n uint64
	for _, d := range digits {
		v := uint64(d - '0')
		if n > (math.MaxUint64-v)/10 {
			r.restore(m)
			return 0, r.errParse("number exceeds 64 bits")
		}
		n = n*10 + v
	}
	return n, nil
}

// readNzNumber parses a non-zero 32-bit number; a leading zero is rejected.
func readNzNumber(r *reader) (uint32, error) {
	m := r.mark()
	b, err := r.peekByte()
	if err != nil {
		return 0, err
	}
	if b == '0' {
		return 0, r.errParse("expected nonzero number")
	}
	n, err := readNumber(r)
	if err != nil {
		r.restore(m)
		return 0, err
	}
	return n, nil
}

// readQuoted parses a quoted string: 7-bit text between double quotes with
// backslash escapes for '\' and '"'.
func readQuoted(r *reader) (string, error) {
	m := r.mark()
	if err := expectByte(r, '"'); err != nil {
		return "", err
	}
	var out []byte
	for {
		b, err := r.peekByte()
		if err != nil {
			r.restore(m)
			return "", imap.ErrIncomplete
		}
		switch b {
		case '"':
			r.consume(1)
			return r.str(out), nil
		case '\\':
			r.consume(1)
			esc, err := r.peekByte()
			if err != nil {
				r.restore(m)
				return "", imap.ErrIncomplete
			}
			if esc != '\\' && esc != '"' {
				r.restore(m)
				return "", r.errParse("bad quoted escape")
			}
			r.consume(1)
			out = append(out, esc)
		case '\r', '\n':
			r.restore(m)
			return "", r.errParse("newline in quoted string")
		default:
			if b > 0x7e {
				r.restore(m)
				return "", r.errParse("8-bit byte in quoted string")
			}
			r.consume(1)
			out = append(out, b)
		}
	}
}

// readLiteralInfo parses a literal marker {N}, {N+} or ~{N} together with
// its terminating CRLF. The size guards fire on the marker, before any
// payload byte is consumed.
func readLiteralInfo(r *reader) (imap.LiteralInfo, error) {
	m := r.mark()
	var info imap.LiteralInfo

	b, err := r.peekByte()
	if err != nil {
		return info, err
	}
	if b == '~' {
		info.Binary = true
		r.consume(1)
	}
	if err := expectByte(r, '{'); err != nil {
		r.restore(m)
		return info, err
	}
	size, err := readNumber64(r)
	if err != nil {
		r.restore(m)
		return info, err
	}
	if size > maxLiteralSize {
		r.restore(m)
		return info, r.errParse("literal size exceeds maximum")
	}
	info.Size = int64(size)

	b, err = r.peekByte()
	if err != nil {
		r.restore(m)
		return info, imap.ErrIncomplete
	}
	if b == '+' {
		info.NonSync = true
		r.consume(1)
	}
	if err := expectByte(r, '}'); err != nil {
		r.restore(m)
		if errors.Is(err, imap.ErrIncomplete) {
			return info, err
		}
		return info, r.errParse("malformed literal marker")
	}
	if err := newline(r); err != nil {
		r.restore(m)
		return info, err
	}
	if info.Sync() {
		r.syncLiterals++
	}
	return info, nil
}

// readLiteralBytes parses a literal marker and materialises its payload,
// refusing sizes beyond the buffered-literal limit.
func readLiteralBytes(r *reader) ([]byte, error) {
	m := r.mark()
	info, err := readLiteralInfo(r)
	if err != nil {
		return nil, err
	}
	if r.lim.LiteralSize > 0 && info.Size > r.lim.LiteralSize {
		r.restore(m)
		return nil, &imap.LimitError{Kind: imap.LimitLiteralSize, Limit: r.lim.LiteralSize}
	}
	if int64(r.remaining()) < info.Size {
		r.litPending = true
		r.restore(m)
		return nil, imap.ErrIncomplete
	}
	r.litConsumed += info.Size
	return r.consume(int(info.Size)), nil
}

func isBase64Char(b byte) bool {
	return b >= 'A' && b <= 'Z' || b >= 'a' && b <= 'z' || isDigit(b) || b == '+' || b == '/'
}

// readBase64 parses base64 text in four-byte groups with terminal '='
// padding and decodes it.
func readBase64(r *reader) ([]byte, error) {
	m := r.mark()
	var raw []byte
	for {
		b, err := r.peekByte()
		if err != nil {
			r.restore(m)
			return nil, imap.ErrIncomplete
		}
		if isBase64Char(b) || b == '=' {
			raw = append(raw, b)
			r.consume(1)
			continue
		}
		break
	}
	if len(raw) == 0 || len(raw)%4 != 0 {
		r.restore(m)
		return nil, r.errParse("malformed base64")
	}
	out, err := base64Decode(raw)
	if err != nil {
		r.restore(m)
		return nil, r.errParse("malformed base64")
	}
	return out, nil
}
