package parser

import (
	"errors"
	"testing"

	"github.com/emiago/imapgo/imap"
)

// Liveness property: for any input the parsers either emit events, ask for
// more bytes, or fail with a typed error. They never loop forever, read
// past the buffer or panic.

func FuzzCommandParser(f *testing.F) {
	f.Add([]byte("1 NOOP\r\n"))
	f.Add([]byte("2 LOGIN {0}\r\n {0}\r\n\r\n"))
	f.Add([]byte("3 APPEND INBOX {3+}\r\n123 {3+}\r\n456\r\n"))
	f.Add([]byte("2 IDLE\r\nDONE\r\n"))
	f.Add([]byte("a APPEND Drafts CATENATE (URL u TEXT {2+}\r\nhi)\r\n"))
	f.Add([]byte("s SEARCH OR SEEN (FROM x SMALLER 100)\r\n"))
	f.Add([]byte("d STORE 1:* +FLAGS.SILENT (\\Deleted)\r\n"))
	f.Add([]byte("x {"))

	f.Fuzz(func(t *testing.T, data []byte) {
		p := NewCommandParser()
		if _, err := p.Write(data); err != nil {
			return
		}
		// Each turn either yields an event or stops; events are bounded by
		// the input size, so cap the turns and fail loudly instead of
		// hanging the fuzzer on a liveness bug.
		for i := 0; i < len(data)+16; i++ {
			_, err := p.Next()
			if err == nil {
				continue
			}
			if errors.Is(err, imap.ErrIncomplete) {
				return
			}
			var pe *imap.ParseError
			var le *imap.LimitError
			if !errors.As(err, &pe) && !errors.As(err, &le) {
				t.Fatalf("untyped error: %v", err)
			}
			return
		}
		t.Fatalf("parser made no progress on %d bytes", len(data))
	})
}

func FuzzResponseParser(f *testing.F) {
	f.Add([]byte("* OK ready\r\na1 OK done\r\n"))
	f.Add([]byte("* OK x\r\n* 999 FETCH (BODY[TEXT]<4> {3}\r\nabc FLAGS (\\Seen))\r\n"))
	f.Add([]byte("* OK x\r\n* LIST (\\Marked) \"/\" INBOX\r\n"))
	f.Add([]byte("* OK x\r\n* ESEARCH (TAG \"a\") UID ALL 1:5\r\n"))
	f.Add([]byte("* PREAUTH hi\r\n+ go\r\n"))
	f.Add([]byte("* OK x\r\n* 1 FETCH (ENVELOPE (NIL NIL NIL NIL NIL NIL NIL NIL NIL NIL))\r\n"))

	f.Fuzz(func(t *testing.T, data []byte) {
		p := NewResponseParser()
		if _, err := p.Write(data); err != nil {
			return
		}
		for i := 0; i < len(data)+16; i++ {
			_, err := p.Next()
			if err == nil {
				continue
			}
			if errors.Is(err, imap.ErrIncomplete) {
				return
			}
			var pe *imap.ParseError
			var le *imap.LimitError
			if !errors.As(err, &pe) && !errors.As(err, &le) {
				t.Fatalf("untyped error: %v", err)
			}
			return
		}
		t.Fatalf("parser made no progress on %d bytes", len(data))
	})
}
