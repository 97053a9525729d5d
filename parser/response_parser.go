package parser

import (
	"bytes"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/emiago/imapgo/imap"
)

type respMode int

const (
	respModeGreeting respMode = iota
	respModeLines
	respModeInFetch
	respModeStreaming
)

// ResponseParser is the incremental parser for the server side of a
// connection. It enforces the attribute and body size caps that keep a
// client safe against a hostile server.
type ResponseParser struct {
	log    zerolog.Logger
	lim    Limits
	intern func([]byte) string

	buf     []byte
	mode    respMode
	pending []imap.ServerEvent

	fatal    error
	poisoned error

	// attrCount counts attributes of the open FETCH message.
	attrCount int
	// remaining counts streamed octets still owed by the open literal.
	remaining int64

	// r is the reader of the current parse attempt; the line budget reads
	// its literal accounting.
	r *reader
}

// NewResponseParser creates a response parser with the given options.
func NewResponseParser(options ...Option) *ResponseParser {
	cfg := newConfig(options)
	return &ResponseParser{
		log:    cfg.log,
		lim:    cfg.lim,
		intern: cfg.intern,
		mode:   respModeGreeting,
	}
}

// Write appends bytes to the parse buffer.
func (p *ResponseParser) Write(data []byte) (int, error) {
	if p.fatal != nil {
		return 0, p.fatal
	}
	p.buf = append(p.buf, data...)
	return len(data), nil
}

// Buffered returns the number of unconsumed bytes.
func (p *ResponseParser) Buffered() int { return len(p.buf) }

// Resync discards input through the next line break and clears a pending
// parse error. It does nothing after a limit error or inside streaming.
func (p *ResponseParser) Resync() {
	if p.fatal != nil || p.mode == respModeStreaming {
		return
	}
	p.poisoned = nil
	if i := bytes.IndexByte(p.buf, '\n'); i >= 0 {
		p.buf = p.buf[i+1:]
	} else {
		p.buf = p.buf[len(p.buf):]
	}
	if p.mode == respModeInFetch {
		p.mode = respModeLines
	}
}

func (p *ResponseParser) newReader() *reader {
	p.r = &reader{buf: p.buf, lim: p.lim, intern: p.intern}
	return p.r
}

func (p *ResponseParser) commit(r *reader) {
	p.buf = p.buf[r.off:]
}

// checkLineBudget bounds the pending structured bytes of one response
// line. Materialised literal payloads are excluded; a literal waiting for
// its payload suspends the check.
func (p *ResponseParser) checkLineBudget() error {
	structured := len(p.buf)
	if r := p.r; r != nil {
		if r.litPending {
			return imap.ErrIncomplete
		}
		structured -= int(r.litConsumed)
	}
	if structured > p.lim.Line {
		return p.fail(&imap.LimitError{Kind: imap.LimitLine, Limit: int64(p.lim.Line)})
	}
	return imap.ErrIncomplete
}

func (p *ResponseParser) fail(err error) error {
	var le *imap.LimitError
	if errors.As(err, &le) {
		p.fatal = err
		p.log.Debug().Err(err).Msg("response parser disabled by limit")
		return err
	}
	var pe *imap.ParseError
	if errors.As(err, &pe) {
		p.poisoned = err
	}
	return err
}

func (p *ResponseParser) outcome(err error) error {
	if errors.Is(err, imap.ErrIncomplete) {
		return p.checkLineBudget()
	}
	return p.fail(err)
}

// Next returns the next event, or imap.ErrIncomplete when more bytes are
// needed. Chunk slices inside events are only valid until the next Write.
func (p *ResponseParser) Next() (imap.ServerEvent, error) {
	if p.fatal != nil {
		return nil, p.fatal
	}
	if p.poisoned != nil {
		return nil, p.poisoned
	}
	if len(p.pending) > 0 {
		ev := p.pending[0]
		p.pending = p.pending[1:]
		return ev, nil
	}

	switch p.mode {
	case respModeGreeting:
		return p.nextGreeting()
	case respModeLines:
		return p.nextResponseLine()
	case respModeInFetch:
		return p.nextFetchAttr()
	case respModeStreaming:
		return p.nextStreamChunk()
	default:
		return nil, p.fail(&imap.ParseError{Msg: "parser in unknown state"})
	}
}

func (p *ResponseParser) nextGreeting() (imap.ServerEvent, error) {
	if len(p.buf) == 0 {
		return nil, imap.ErrIncomplete
	}
	r := p.newReader()

	if err := expectByte(r, '*'); err != nil {
		return nil, p.outcome(err)
	}
	if err := space(r); err != nil {
		return nil, p.outcome(err)
	}
	name, err := readAtom(r)
	if err != nil {
		return nil, p.outcome(err)
	}
	st, ok := statusTypeFromAtom(name)
	if !ok || st == imap.StatusNo || st == imap.StatusBad {
		return nil, p.outcome(r.errParse("greeting must be OK, BYE or PREAUTH"))
	}
	rt, err := readStatusResponseTail(r)
	if err != nil {
		return nil, p.outcome(err)
	}
	p.commit(r)
	p.mode = respModeLines
	p.log.Debug().Str("status", string(st)).Msg("greeting received")
	return imap.Greeting{Status: st, Text: rt}, nil
}

func (p *ResponseParser) nextResponseLine() (imap.ServerEvent, error) {
	if len(p.buf) == 0 {
		return nil, imap.ErrIncomplete
	}
	r := p.newReader()

	b, err := r.peekByte()
	if err != nil {
		return nil, imap.ErrIncomplete
	}

	if b == '+' {
		r.consume(1)
		// RFC 3501 wants "+ SP"; a bare "+" CRLF is accepted leniently.
		if b, err := r.peekByte(); err != nil {
			return nil, p.outcome(imap.ErrIncomplete)
		} else if b == ' ' {
			r.consume(1)
		}
		text, err := readTextLine(r)
		if err != nil {
			return nil, p.outcome(err)
		}
		if err := newline(r); err != nil {
			return nil, p.outcome(err)
		}
		p.commit(r)
		return imap.ContinuationRequest{Text: text}, nil
	}

	if b == '*' {
		r.consume(1)
		if err := space(r); err != nil {
			return nil, p.outcome(err)
		}
		return p.nextUntagged(r)
	}

	tag, err := readTag(r)
	if err != nil {
		return nil, p.outcome(err)
	}
	if err := space(r); err != nil {
		return nil, p.outcome(err)
	}
	name, err := readAtom(r)
	if err != nil {
		return nil, p.outcome(err)
	}
	st, ok := statusTypeFromAtom(name)
	if !ok {
		return nil, p.outcome(r.errParse("expected tagged status"))
	}
	rt, err := readStatusResponseTail(r)
	if err != nil {
		return nil, p.outcome(err)
	}
	p.commit(r)
	return imap.Tagged{Tag: tag, Status: st, Text: rt}, nil
}

func (p *ResponseParser) nextUntagged(r *reader) (imap.ServerEvent, error) {
	b, err := r.peekByte()
	if err != nil {
		return nil, p.outcome(imap.ErrIncomplete)
	}

	if isDigit(b) {
		num, err := readNumber(r)
		if err != nil {
			return nil, p.outcome(err)
		}
		if err := space(r); err != nil {
			return nil, p.outcome(err)
		}
		kw, err := readAtom(r)
		if err != nil {
			return nil, p.outcome(err)
		}
		switch strings.ToUpper(kw) {
		case "EXISTS":
			if err := newline(r); err != nil {
				return nil, p.outcome(err)
			}
			p.commit(r)
			return imap.Untagged{Data: imap.ExistsData{Count: num}}, nil
		case "RECENT":
			if err := newline(r); err != nil {
				return nil, p.outcome(err)
			}
			p.commit(r)
			return imap.Untagged{Data: imap.RecentData{Count: num}}, nil
		case "EXPUNGE":
			if err := newline(r); err != nil {
				return nil, p.outcome(err)
			}
			p.commit(r)
			return imap.Untagged{Data: imap.ExpungeData{SeqNum: num}}, nil
		case "FETCH":
			if err := space(r); err != nil {
				return nil, p.outcome(err)
			}
			if err := expectByte(r, '('); err != nil {
				return nil, p.outcome(err)
			}
			p.commit(r)
			p.mode = respModeInFetch
			p.attrCount = 0
			return imap.FetchStart{SeqNum: num}, nil
		default:
			return nil, p.outcome(r.errParse("unknown numeric response " + kw))
		}
	}

	name, err := readAtom(r)
	if err != nil {
		return nil, p.outcome(err)
	}
	data, err := readUntaggedKeyword(r, name)
	if err != nil {
		return nil, p.outcome(err)
	}
	p.commit(r)
	return imap.Untagged{Data: data}, nil
}

// nextFetchAttr parses one attribute of the open FETCH message or its
// closing parenthesis.
func (p *ResponseParser) nextFetchAttr() (imap.ServerEvent, error) {
	if len(p.buf) == 0 {
		return nil, imap.ErrIncomplete
	}
	r := p.newReader()

	b, err := r.peekByte()
	if err != nil {
		return nil, imap.ErrIncomplete
	}
	if b == ' ' {
		if err := space(r); err != nil {
			return nil, p.outcome(err)
		}
		b, err = r.peekByte()
		if err != nil {
			return nil, p.outcome(imap.ErrIncomplete)
		}
	}

	if b == ')' {
		r.consume(1)
		if err := newline(r); err != nil {
			return nil, p.outcome(err)
		}
		p.commit(r)
		p.mode = respModeLines
		return imap.FetchFinish{}, nil
	}

	if p.lim.MessageAttributes > 0 && p.attrCount >= p.lim.MessageAttributes {
		return nil, p.fail(&imap.LimitError{
			Kind:  imap.LimitAttributes,
			Limit: int64(p.lim.MessageAttributes),
		})
	}

	ev, err := p.readFetchAttr(r)
	if err != nil {
		return nil, p.outcome(err)
	}
	p.attrCount++
	p.commit(r)
	return ev, nil
}

// readFetchAttr parses one message attribute. Attributes whose value is a
// literal switch the parser into streaming; everything else returns a
// simple attribute event.
func (p *ResponseParser) readFetchAttr(r *reader) (imap.ServerEvent, error) {
	name, err := fetchItemName(r)
	if err != nil {
		return nil, err
	}

	simple := func(attr imap.FetchAttribute) (imap.ServerEvent, error) {
		return imap.FetchSimpleAttribute{Attr: attr}, nil
	}

	switch name {
	case "FLAGS":
		if err := space(r); err != nil {
			return nil, err
		}
		flags, err := readFlagList(r)
		if err != nil {
			return nil, err
		}
		return simple(imap.FetchFlags{Flags: flags})

	case "UID":
		if err := space(r); err != nil {
			return nil, err
		}
		n, err := readNzNumber(r)
		if err != nil {
			return nil, err
		}
		return simple(imap.FetchUID{UID: imap.UID(n)})

	case "RFC822.SIZE":
		if err := space(r); err != nil {
			return nil, err
		}
		n, err := readNumber64(r)
		if err != nil {
			return nil, err
		}
		return simple(imap.FetchRFC822Size{Size: int64(n)})

	case "INTERNALDATE":
		if err := space(r); err != nil {
			return nil, err
		}
		t, err := readDateTime(r)
		if err != nil {
			return nil, err
		}
		return simple(imap.FetchInternalDate{Date: t})

	case "ENVELOPE":
		if err := space(r); err != nil {
			return nil, err
		}
		env, err := readEnvelope(r)
		if err != nil {
			return nil, err
		}
		return simple(imap.FetchEnvelope{Envelope: env})

	case "BODYSTRUCTURE":
		if err := space(r); err != nil {
			return nil, err
		}
		bs, err := readBodyStructure(r, true)
		if err != nil {
			return nil, err
		}
		return simple(imap.FetchBodyStructure{Structure: bs, Extended: true})

	case "MODSEQ":
		if err := space(r); err != nil {
			return nil, err
		}
		m := r.mark()
		if err := expectByte(r, '('); err != nil {
			return nil, err
		}
		n, err := readNumber64(r)
		if err != nil {
			r.restore(m)
			return nil, err
		}
		if err := expectByte(r, ')'); err != nil {
			r.restore(m)
			return nil, err
		}
		return simple(imap.FetchModSeq{ModSeq: n})

	case "X-GM-MSGID":
		if err := space(r); err != nil {
			return nil, err
		}
		n, err := readNumber64(r)
		if err != nil {
			return nil, err
		}
		return simple(imap.FetchGmailMsgID{ID: n})

	case "X-GM-THRID":
		if err := space(r); err != nil {
			return nil, err
		}
		n, err := readNumber64(r)
		if err != nil {
			return nil, err
		}
		return simple(imap.FetchGmailThreadID{ID: n})

	case "X-GM-LABELS":
		if err := space(r); err != nil {
			return nil, err
		}
		labels, err := readGmailLabels(r)
		if err != nil {
			return nil, err
		}
		return simple(imap.FetchGmailLabels{Labels: labels})

	case "BODY":
		b, err := r.peekByte()
		if err != nil {
			return nil, imap.ErrIncomplete
		}
		if b != '[' {
			if err := space(r); err != nil {
				return nil, err
			}
			bs, err := readBodyStructure(r, false)
			if err != nil {
				return nil, err
			}
			return simple(imap.FetchBodyStructure{Structure: bs})
		}
		return p.readSectionValue(r, "BODY", false)

	case "BINARY":
		return p.readSectionValue(r, "BINARY", true)

	case "BINARY.SIZE":
		section, err := readSection(r)
		if err != nil {
			return nil, err
		}
		if err := space(r); err != nil {
			return nil, err
		}
		n, err := readNumber(r)
		if err != nil {
			return nil, err
		}
		return simple(imap.FetchBinarySize{Part: section.Part, Size: n})

	case "RFC822", "RFC822.HEADER", "RFC822.TEXT":
		section := &imap.SectionSpec{}
		switch name {
		case "RFC822.HEADER":
			section.Specifier = "HEADER"
		case "RFC822.TEXT":
			section.Specifier = "TEXT"
		}
		if err := space(r); err != nil {
			return nil, err
		}
		return p.readBodyValue(r, name, section, false, -1)

	default:
		return nil, r.errParse("unknown fetch attribute " + name)
	}
}

// readSectionValue parses "[section] [<origin>] SP value" for BODY and
// BINARY attributes.
func (p *ResponseParser) readSectionValue(r *reader, label string, binary bool) (imap.ServerEvent, error) {
	section, err := readSection(r)
	if err != nil {
		return nil, err
	}

	origin := int64(-1)
	b, err := r.peekByte()
	if err != nil {
		return nil, imap.ErrIncomplete
	}
	if b == '<' {
		origin, err = readResponseOrigin(r)
		if err != nil {
			return nil, err
		}
	}
	if err := space(r); err != nil {
		return nil, err
	}
	return p.readBodyValue(r, label, section, binary, origin)
}

// readBodyValue parses an attribute value that may be NIL, a quoted string
// or a literal. Literals switch to streaming after the body size check.
func (p *ResponseParser) readBodyValue(r *reader, label string, section *imap.SectionSpec, binary bool, origin int64) (imap.ServerEvent, error) {
	b, err := r.peekByte()
	if err != nil {
		return nil, imap.ErrIncomplete
	}

	if b == '{' || b == '~' {
		info, err := readLiteralInfo(r)
		if err != nil {
			return nil, err
		}
		if p.lim.BodySize > 0 && info.Size > p.lim.BodySize {
			return nil, &imap.LimitError{Kind: imap.LimitBodySize, Limit: p.lim.BodySize}
		}
		p.mode = respModeStreaming
		p.remaining = info.Size
		return imap.FetchStreamingBegin{
			Section: section,
			Label:   label,
			Binary:  binary || info.Binary,
			Offset:  origin,
			Size:    info.Size,
		}, nil
	}

	val, present, err := readNString(r)
	if err != nil {
		return nil, err
	}
	attr := imap.FetchBodySection{
		Section: section,
		Binary:  binary,
		Offset:  origin,
	}
	if present {
		attr.Data = []byte(val)
	}
	return imap.FetchSimpleAttribute{Attr: attr}, nil
}

// nextStreamChunk surfaces streamed literal bytes.
func (p *ResponseParser) nextStreamChunk() (imap.ServerEvent, error) {
	if p.remaining > 0 {
		if len(p.buf) == 0 {
			return nil, imap.ErrIncomplete
		}
		n := int64(len(p.buf))
		if n > p.remaining {
			n = p.remaining
		}
		chunk := p.buf[:n]
		p.buf = p.buf[n:]
		p.remaining -= n
		if p.remaining == 0 {
			p.pending = append(p.pending, imap.FetchStreamingEnd{})
			p.mode = respModeInFetch
		}
		return imap.FetchStreamingBytes{Chunk: chunk}, nil
	}

	p.mode = respModeInFetch
	return imap.FetchStreamingEnd{}, nil
}

// readGmailLabels parses the X-GM-LABELS parenthesised astring list.
func readGmailLabels(r *reader) ([]string, error) {
	m := r.mark()
	if err := expectByte(r, '('); err != nil {
		return nil, err
	}
	var labels []string
	for {
		b, err := r.peekByte()
		if err != nil {
			r.restore(m)
			return nil, imap.ErrIncomplete
		}
		if b == ')' {
			r.consume(1)
			return labels, nil
		}
		if b == ' ' {
			r.consume(1)
			continue
		}
		var label string
		if b == '\\' {
			f, err := readFlag(r)
			if err != nil {
				r.restore(m)
				return nil, err
			}
			label = string(f)
		} else {
			label, err = readAString(r)
			if err != nil {
				r.restore(m)
				return nil, err
			}
		}
		labels = append(labels, label)
	}
}
