// Package parser implements the incremental IMAP wire parsers: a command
// parser for client input and a response parser for server input.
//
// Both parsers share one recursive descent grammar library built on a
// checkpointed cursor. Every rule either succeeds and advances the cursor,
// fails with imap.ErrIncomplete (not enough bytes buffered to decide, cursor
// restored), or fails with an *imap.ParseError (bytes cannot match, cursor
// restored). Policy violations surface as *imap.LimitError and poison the
// parser permanently.
package parser

import (
	"math"

	"github.com/emiago/imapgo/imap"
)

// Limits bounds the resources a parser may spend on a single connection.
// The zero value of a field means unbounded, except Line and MaxDepth which
// fall back to their defaults.
type Limits struct {
	// Line is the maximum length of a structured line awaiting its CRLF.
	// Literal payloads are not counted. Default 8192.
	Line int
	// MessageAttributes caps FETCH attributes per message. 0 is unbounded.
	MessageAttributes int
	// BodySize caps the octet count of any single streamed FETCH value in
	// the response parser. 0 is unbounded.
	BodySize int64
	// LiteralSize caps literals that must be materialised in memory
	// (structured string arguments, header blobs). Streamed FETCH values
	// are bounded by BodySize instead; the command parser's streamed
	// APPEND and CATENATE data is bounded by neither. 0 is unbounded.
	LiteralSize int64
	// MaxDepth bounds combinator recursion. Default 30.
	MaxDepth int
}

// DefaultLimits are the limits applied when an option does not override
// them.
func DefaultLimits() Limits {
	return Limits{
		Line:     8192,
		MaxDepth: 30,
	}
}

func (l *Limits) fillDefaults() {
	if l.Line == 0 {
		l.Line = 8192
	}
	if l.MaxDepth == 0 {
		l.MaxDepth = 30
	}
}

// reader is the parse cursor. It never owns the bytes; the stream parser
// hands it a window over its internal buffer for the duration of one parse
// attempt.
type reader struct {
	buf []byte
	off int

	depth int
	lim   Limits

	intern func([]byte) string

	// syncLiterals counts synchronising literal markers consumed during the
	// current parse attempt.
	syncLiterals int

	// litConsumed accumulates literal payload bytes materialised during the
	// attempt; the line budget excludes them.
	litConsumed int64
	// litPending is set when a literal marker parsed but its payload is not
	// fully buffered yet, which suspends the line budget.
	litPending bool
}

func (r *reader) remaining() int { return len(r.buf) - r.off }

func (r *reader) mark() int { return r.off }

func (r *reader) restore(m int) { r.off = m }

// peek returns the next n bytes without advancing, or ErrIncomplete when
// fewer are buffered.
func (r *reader) peek(n int) ([]byte, error) {
	if r.remaining() < n {
		return nil, imap.ErrIncomplete
	}
	return r.buf[r.off : r.off+n], nil
}

// peekByte returns the next byte without advancing.
func (r *reader) peekByte() (byte, error) {
	if r.off >= len(r.buf) {
		return 0, imap.ErrIncomplete
	}
	return r.buf[r.off], nil
}

// consume advances by n bytes, which must be available.
func (r *reader) consume(n int) []byte {
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

// enter charges one level of rule recursion against the depth budget.
// Exceeding the budget is a policy violation, not a grammar mismatch: deeply
// nested parentheses are how a hostile peer blows a recursive parser's
// stack.
func (r *reader) enter() error {
	r.depth++
	if r.depth > r.lim.MaxDepth {
		return &imap.LimitError{Kind: imap.LimitDepth, Limit: int64(r.lim.MaxDepth)}
	}
	return nil
}

func (r *reader) exit() { r.depth-- }

// str materialises bytes as a string, through the interning hook when one
// is configured.
func (r *reader) str(b []byte) string {
	if r.intern != nil {
		return r.intern(b)
	}
	return string(b)
}

// errParse builds a ParseError anchored at the current cursor position.
func (r *reader) errParse(msg string) *imap.ParseError {
	return &imap.ParseError{Offset: r.off, Msg: msg}
}

const maxLiteralSize = math.MaxInt32
