package parser

import (
	"errors"
	"strings"
	"time"

	"github.com/emiago/imapgo/imap"
)

// isAtomChar reports whether b may appear in an atom. Atom characters are
// printable ASCII minus the atom-specials of RFC 3501 section 9.
func isAtomChar(b byte) bool {
	if b <= 0x20 || b >= 0x7f {
		return false
	}
	switch b {
	case '(', ')', '{', '%', '*', '"', '\\', ']':
		return false
	}
	return true
}

// isAStringChar additionally admits ']' (resp-specials).
func isAStringChar(b byte) bool {
	return isAtomChar(b) || b == ']'
}

// isListChar additionally admits the LIST wildcards.
func isListChar(b byte) bool {
	return isAtomChar(b) || b == '%' || b == '*' || b == ']'
}

// readAtomFunc consumes a maximal run of bytes allowed by ok. Exhausting
// the buffer mid-run is Incomplete: only the next byte can end the atom.
func readAtomFunc(r *reader, ok func(byte) bool) (string, error) {
	m := r.mark()
	for {
		b, err := r.peekByte()
		if err != nil {
			r.restore(m)
			return "", imap.ErrIncomplete
		}
		if !ok(b) {
			break
		}
		r.consume(1)
	}
	if r.off == m {
		return "", r.errParse("expected atom")
	}
	return r.str(r.buf[m:r.off]), nil
}

func readAtom(r *reader) (string, error) {
	return readAtomFunc(r, isAtomChar)
}

// readString parses a quoted string or a buffered literal.
func readString(r *reader) (string, error) {
	b, err := r.peekByte()
	if err != nil {
		return "", err
	}
	switch b {
	case '"':
		return readQuoted(r)
	case '{', '~':
		data, err := readLiteralBytes(r)
		if err != nil {
			return "", err
		}
		return r.str(data), nil
	default:
		return "", r.errParse("expected string")
	}
}

// readAString parses an astring: an atom (with resp-specials) or a string.
func readAString(r *reader) (string, error) {
	b, err := r.peekByte()
	if err != nil {
		return "", err
	}
	if b == '"' || b == '{' || b == '~' {
		return readString(r)
	}
	return readAtomFunc(r, isAStringChar)
}

// matchKeyword matches word case insensitively at a keyword boundary: the
// byte after the word must not extend an atom. Buffer exhaustion right
// after the word is Incomplete, since the next byte decides.
func matchKeyword(r *reader, word string) error {
	m := r.mark()
	if err := expectString(r, word); err != nil {
		return err
	}
	b, err := r.peekByte()
	if err != nil {
		r.restore(m)
		return imap.ErrIncomplete
	}
	if isAtomChar(b) {
		r.restore(m)
		return r.errParse("expected " + word)
	}
	return nil
}

// readNString parses an nstring: NIL or a string. present is false for NIL.
func readNString(r *reader) (s string, present bool, err error) {
	if err := matchKeyword(r, "NIL"); err == nil {
		return "", false, nil
	} else if errors.Is(err, imap.ErrIncomplete) {
		return "", false, err
	}
	s, err = readString(r)
	if err != nil {
		return "", false, err
	}
	return s, true, nil
}

// readMailbox parses a mailbox name, folding INBOX case insensitively.
// Wildcard characters are admitted so LIST patterns parse with the same
// rule.
func readMailbox(r *reader) (string, error) {
	b, err := r.peekByte()
	if err != nil {
		return "", err
	}
	var name string
	if b == '"' || b == '{' || b == '~' {
		name, err = readString(r)
	} else {
		name, err = readAtomFunc(r, isListChar)
	}
	if err != nil {
		return "", err
	}
	return imap.CanonicalMailbox(name), nil
}

// readFlag parses a single flag: \Name, \* or a keyword atom.
func readFlag(r *reader) (imap.Flag, error) {
	b, err := r.peekByte()
	if err != nil {
		return "", err
	}
	if b != '\\' {
		atom, err := readAtom(r)
		if err != nil {
			return "", err
		}
		return imap.Flag(atom), nil
	}
	m := r.mark()
	r.consume(1)
	b, err = r.peekByte()
	if err != nil {
		r.restore(m)
		return "", imap.ErrIncomplete
	}
	if b == '*' {
		r.consume(1)
		return imap.FlagWildcard, nil
	}
	atom, err := readAtom(r)
	if err != nil {
		r.restore(m)
		return "", err
	}
	return imap.CanonicalFlag(imap.Flag("\\" + atom)), nil
}

// readFlagList parses "(" [flag *(SP flag)] ")". A trailing space before
// the closing parenthesis is tolerated; some servers send it.
func readFlagList(r *reader) ([]imap.Flag, error) {
	m := r.mark()
	if err := expectByte(r, '('); err != nil {
		return nil, err
	}
	var flags []imap.Flag
	for {
		b, err := r.peekByte()
		if err != nil {
			r.restore(m)
			return nil, imap.ErrIncomplete
		}
		if b == ')' {
			r.consume(1)
			return flags, nil
		}
		if b == ' ' {
			r.consume(1)
			continue
		}
		f, err := readFlag(r)
		if err != nil {
			r.restore(m)
			return nil, err
		}
		flags = append(flags, f)
	}
}

// isTagChar: astring chars minus '+', which marks a continuation request.
func isTagChar(b byte) bool {
	return isAStringChar(b) && b != '+'
}

func readTag(r *reader) (string, error) {
	return readAtomFunc(r, isTagChar)
}

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

func readMonth(r *reader) (time.Month, error) {
	b, err := r.peek(3)
	if err != nil {
		return 0, err
	}
	mon, ok := months[strings.ToLower(string(b))]
	if !ok {
		return 0, r.errParse("bad month")
	}
	r.consume(3)
	return mon, nil
}

func readFixedDigits(r *reader, n int) (int, error) {
	b, err := r.peek(n)
	if err != nil {
		return 0, err
	}
	v := 0
	for i := 0; i < n; i++ {
		if !isDigit(b[i]) {
			return 0, r.errParse("expected digit")
		}
		v = v*10 + int(b[i]-'0')
	}
	r.consume(n)
	return v, nil
}

// readDateDay parses the 1-2 digit day; the quoted date-time form pads a
// one digit day with a leading space.
func readDateDay(r *reader) (int, error) {
	b, err := r.peekByte()
	if err != nil {
		return 0, err
	}
	if b == ' ' {
		r.consume(1)
		return readFixedDigits(r, 1)
	}
	if !isDigit(b) {
		return 0, r.errParse("expected day")
	}
	m := r.mark()
	r.consume(1)
	b2, err := r.peekByte()
	if err != nil {
		r.restore(m)
		return 0, imap.ErrIncomplete
	}
	day := int(r.buf[m] - '0')
	if isDigit(b2) {
		r.consume(1)
		day = day*10 + int(b2-'0')
	}
	return day, nil
}

// readZone parses the +-HHMM time zone, bounded to +-1559.
func readZone(r *reader) (*time.Location, error) {
	b, err := r.peekByte()
	if err != nil {
		return nil, err
	}
	sign := 1
	switch b {
	case '+':
	case '-':
		sign = -1
	default:
		return nil, r.errParse("expected zone sign")
	}
	m := r.mark()
	r.consume(1)
	hh, err := readFixedDigits(r, 2)
	if err != nil {
		r.restore(m)
		return nil, err
	}
	mm, err := readFixedDigits(r, 2)
	if err != nil {
		r.restore(m)
		return nil, err
	}
	if hh > 15 || mm > 59 {
		r.restore(m)
		return nil, r.errParse("zone out of range")
	}
	return time.FixedZone("", sign*(hh*3600+mm*60)), nil
}

// readDateTime parses the quoted date-time of INTERNALDATE and APPEND:
// "dd-Mon-yyyy hh:mm:ss +zzzz", with 0-6 fractional second digits
// tolerated after the seconds.
func readDateTime(r *reader) (time.Time, error) {
	m := r.mark()
	fail := func(err error) (time.Time, error) {
		r.restore(m)
		return time.Time{}, err
	}

	if err := expectByte(r, '"'); err != nil {
		return time.Time{}, err
	}
	day, err := readDateDay(r)
	if err != nil {
		return fail(err)
	}
	if err := expectByte(r, '-'); err != nil {
		return fail(err)
	}
	mon, err := readMonth(r)
	if err != nil {
		return fail(err)
	}
	if err := expectByte(r, '-'); err != nil {
		return fail(err)
	}
	year, err := readFixedDigits(r, 4)
	if err != nil {
		return fail(err)
	}
	if err := expectByte(r, ' '); err != nil {
		return fail(err)
	}
	hh, err := readFixedDigits(r, 2)
	if err != nil {
		return fail(err)
	}
	if err := expectByte(r, ':'); err != nil {
		return fail(err)
	}
	mi, err := readFixedDigits(r, 2)
	if err != nil {
		return fail(err)
	}
	if err := expectByte(r, ':'); err != nil {
		return fail(err)
	}
	ss, err := readFixedDigits(r, 2)
	if err != nil {
		return fail(err)
	}

	nsec := 0
	b, err := r.peekByte()
	if err != nil {
		return fail(imap.ErrIncomplete)
	}
	if b == '.' {
		r.consume(1)
		digits := 0
		for digits < 6 {
			b, err := r.peekByte()
			if err != nil {
				return fail(imap.ErrIncomplete)
			}
			if !isDigit(b) {
				break
			}
			r.consume(1)
			nsec = nsec*10 + int(b-'0')
			digits++
		}
		if digits == 0 {
			return fail(r.errParse("expected fractional seconds"))
		}
		for ; digits < 9; digits++ {
			nsec *= 10
		}
	}

	if err := expectByte(r, ' '); err != nil {
		return fail(err)
	}
	zone, err := readZone(r)
	if err != nil {
		return fail(err)
	}
	if err := expectByte(r, '"'); err != nil {
		return fail(err)
	}
	return time.Date(year, mon, day, hh, mi, ss, nsec, zone), nil
}

// readDate parses a search date: d-Mon-yyyy, optionally quoted.
func readDate(r *reader) (time.Time, error) {
	m := r.mark()
	fail := func(err error) (time.Time, error) {
		r.restore(m)
		return time.Time{}, err
	}

	quoted := false
	if b, err := r.peekByte(); err != nil {
		return time.Time{}, err
	} else if b == '"' {
		quoted = true
		r.consume(1)
	}
	day, err := readDateDay(r)
	if err != nil {
		return fail(err)
	}
	if err := expectByte(r, '-'); err != nil {
		return fail(err)
	}
	mon, err := readMonth(r)
	if err != nil {
		return fail(err)
	}
	if err := expectByte(r, '-'); err != nil {
		return fail(err)
	}
	year, err := readFixedDigits(r, 4)
	if err != nil {
		return fail(err)
	}
	if quoted {
		if err := expectByte(r, '"'); err != nil {
			return fail(err)
		}
	}
	return time.Date(year, mon, day, 0, 0, 0, 0, time.UTC), nil
}

// isTextChar: resp-text bytes, anything but CR and LF.
func isTextChar(b byte) bool {
	return b != '\r' && b != '\n'
}

// readTextLine reads resp-text up to but not including the line break. The
// line break must already be buffered, otherwise the text might continue.
func readTextLine(r *reader) (string, error) {
	m := r.mark()
	for {
		b, err := r.peekByte()
		if err != nil {
			r.restore(m)
			return "", imap.ErrIncomplete
		}
		if !isTextChar(b) {
			break
		}
		r.consume(1)
	}
	return r.str(r.buf[m:r.off]), nil
}

// readRespText parses resp-text: an optional [CODE args] prefix followed by
// free text running to the line break.
func readRespText(r *reader) (imap.RespText, error) {
	var rt imap.RespText
	m := r.mark()

	b, err := r.peekByte()
	if err != nil {
		return rt, err
	}
	if b == '[' {
		r.consume(1)
		code, err := readAtom(r)
		if err != nil {
			r.restore(m)
			return rt, err
		}
		rt.Code = strings.ToUpper(code)
		for {
			b, err := r.peekByte()
			if err != nil {
				r.restore(m)
				return rt, imap.ErrIncomplete
			}
			if b == ']' {
				r.consume(1)
				break
			}
			if b == ' ' {
				r.consume(1)
				continue
			}
			arg, err := readCodeArg(r)
			if err != nil {
				r.restore(m)
				return rt, err
			}
			rt.Args = append(rt.Args, arg)
		}
		// A space separates the code from the text; servers omit it when
		// the text is empty.
		if b, err := r.peekByte(); err != nil {
			r.restore(m)
			return rt, imap.ErrIncomplete
		} else if b == ' ' {
			r.consume(1)
		}
	}

	text, err := readTextLine(r)
	if err != nil {
		r.restore(m)
		return rt, err
	}
	rt.Text = text
	return rt, nil
}

// readCodeArg reads one response code argument. Code arguments are atoms,
// numbers, sequence sets or quoted strings; parenthesised groups (as in
// PERMANENTFLAGS) are captured with their raw text.
func readCodeArg(r *reader) (string, error) {
	b, err := r.peekByte()
	if err != nil {
		return "", err
	}
	switch {
	case b == '"':
		return readQuoted(r)
	case b == '(':
		m := r.mark()
		depth := 0
		for {
			b, err := r.peekByte()
			if err != nil {
				r.restore(m)
				return "", imap.ErrIncomplete
			}
			if b == '\r' || b == '\n' {
				r.restore(m)
				return "", r.errParse("unterminated group in response code")
			}
			r.consume(1)
			if b == '(' {
				depth++
			}
			if b == ')' {
				depth--
				if depth == 0 {
					return r.str(r.buf[m:r.off]), nil
				}
			}
		}
	default:
		return readAtomFunc(r, func(b byte) bool {
			return isAtomChar(b) || b == '*' || b == '%' || b == ':' || b == ','
		})
	}
}

// readCapability parses one capability name.
func readCapability(r *reader) (string, error) {
	return readAtom(r)
}
