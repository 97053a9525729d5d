package parser

import (
	"bytes"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/emiago/imapgo/imap"
)

type cmdMode int

const (
	cmdModeLines cmdMode = iota
	cmdModeIdle
	cmdModeAppendMessage
	cmdModeAppendBetweenParts
	cmdModeAppendCatenateList
	cmdModeAppendCatenateData
)

// CommandParser is the incremental parser for the client side of a
// connection. Bytes go in through Write; events come out of Next, which
// returns imap.ErrIncomplete whenever the buffered bytes do not complete
// the next event.
//
// One parser serves one connection and is not safe for concurrent use.
type CommandParser struct {
	log    zerolog.Logger
	lim    Limits
	intern func([]byte) string

	buf     []byte
	mode    cmdMode
	pending []imap.ClientEvent

	// fatal is set after a limit violation; the parser refuses all further
	// work.
	fatal error
	// poisoned is set after a parse error until Resync discards the line.
	poisoned error

	appendTag string
	remaining int64

	// r is the reader of the current parse attempt; the line budget reads
	// its literal accounting.
	r *reader
}

// NewCommandParser creates a command parser with the given options.
func NewCommandParser(options ...Option) *CommandParser {
	cfg := newConfig(options)
	return &CommandParser{
		log:    cfg.log,
		lim:    cfg.lim,
		intern: cfg.intern,
	}
}

// Write appends bytes to the parse buffer. Already parsed bytes are never
// mutated.
func (p *CommandParser) Write(data []byte) (int, error) {
	if p.fatal != nil {
		return 0, p.fatal
	}
	p.buf = append(p.buf, data...)
	return len(data), nil
}

// Buffered returns the number of unconsumed bytes.
func (p *CommandParser) Buffered() int { return len(p.buf) }

// Resync discards input through the next line break and clears a pending
// parse error, letting the caller skip a malformed line. It does nothing
// after a limit error.
func (p *CommandParser) Resync() {
	if p.fatal != nil {
		return
	}
	p.poisoned = nil
	if i := bytes.IndexByte(p.buf, '\n'); i >= 0 {
		p.buf = p.buf[i+1:]
	} else {
		p.buf = p.buf[len(p.buf):]
	}
}

// Next returns the next event, or imap.ErrIncomplete when more bytes are
// needed. Chunk slices inside events are only valid until the next Write.
func (p *CommandParser) Next() (imap.ClientEvent, error) {
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
	case cmdModeLines:
		return p.nextLine()
	case cmdModeIdle:
		return p.nextIdleDone()
	case cmdModeAppendMessage, cmdModeAppendCatenateData:
		return p.nextStreamChunk()
	case cmdModeAppendBetweenParts:
		return p.nextBetweenParts()
	case cmdModeAppendCatenateList:
		return p.nextCatenatePart()
	default:
		return nil, p.fail(&imap.ParseError{Msg: "parser in unknown state"})
	}
}

func (p *CommandParser) newReader() *reader {
	p.r = &reader{buf: p.buf, lim: p.lim, intern: p.intern}
	return p.r
}

// commit consumes the bytes the reader advanced over.
func (p *CommandParser) commit(r *reader) {
	p.buf = p.buf[r.off:]
}

// checkLineBudget converts an incomplete structured line into a limit
// error once the pending structured bytes outgrow the line budget.
// Materialised literal payloads do not count, and a literal still waiting
// for its payload suspends the check; the literal guards bound those.
func (p *CommandParser) checkLineBudget() error {
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

// fail records the error. Limit errors are sticky; parse errors poison the
// current line until Resync.
func (p *CommandParser) fail(err error) error {
	var le *imap.LimitError
	if errors.As(err, &le) {
		p.fatal = err
		p.log.Debug().Err(err).Msg("command parser disabled by limit")
		return err
	}
	var pe *imap.ParseError
	if errors.As(err, &pe) {
		p.poisoned = err
	}
	return err
}

// outcome routes a rule result: incomplete checks the line budget, parse
// and limit errors are recorded.
func (p *CommandParser) outcome(err error) error {
	if errors.Is(err, imap.ErrIncomplete) {
		return p.checkLineBudget()
	}
	return p.fail(err)
}

func (p *CommandParser) nextLine() (imap.ClientEvent, error) {
	// Stray line breaks between commands are skipped, as clients that
	// miscount literal octets produce them.
	for len(p.buf) > 0 && (p.buf[0] == '\r' || p.buf[0] == '\n') {
		p.buf = p.buf[1:]
	}
	if len(p.buf) == 0 {
		return nil, imap.ErrIncomplete
	}
	r := p.newReader()

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
	name = strings.ToUpper(name)

	uid := false
	if name == "UID" {
		if err := space(r); err != nil {
			return nil, p.outcome(err)
		}
		name, err = readAtom(r)
		if err != nil {
			return nil, p.outcome(err)
		}
		name = strings.ToUpper(name)
		uid = true
	}

	switch name {
	case "APPEND":
		return p.openAppend(r, tag)
	case "IDLE":
		if err := newline(r); err != nil {
			return nil, p.outcome(err)
		}
		p.commit(r)
		p.mode = cmdModeIdle
		p.log.Debug().Str("tag", tag).Msg("entering idle")
		return imap.IdleStart{Tag: tag}, nil
	}

	cmd := &imap.Command{Tag: tag, Name: name, UID: uid}
	if err := readCommandBody(r, cmd); err != nil {
		return nil, p.outcome(err)
	}
	if err := newline(r); err != nil {
		return nil, p.outcome(err)
	}
	cmd.SyncLiterals = r.syncLiterals
	p.commit(r)
	return cmd, nil
}

func (p *CommandParser) nextIdleDone() (imap.ClientEvent, error) {
	if len(p.buf) == 0 {
		return nil, imap.ErrIncomplete
	}
	r := p.newReader()
	if err := expectString(r, "DONE"); err != nil {
		return nil, p.outcome(err)
	}
	if err := newline(r); err != nil {
		return nil, p.outcome(err)
	}
	p.commit(r)
	p.mode = cmdModeLines
	return imap.IdleDone{}, nil
}

// openAppend parses "APPEND mailbox append-opts append-data" through the
// first data marker and switches into streaming.
func (p *CommandParser) openAppend(r *reader, tag string) (imap.ClientEvent, error) {
	if err := space(r); err != nil {
		return nil, p.outcome(err)
	}
	mbox, err := readMailbox(r)
	if err != nil {
		return nil, p.outcome(err)
	}
	if err := space(r); err != nil {
		return nil, p.outcome(err)
	}

	events, err := p.readAppendPart(r)
	if err != nil {
		return nil, p.outcome(err)
	}

	p.appendTag = tag
	p.commit(r)
	start := imap.AppendStart{Tag: tag, Mailbox: mbox, SyncLiterals: r.syncLiterals}
	p.pending = append(p.pending, events...)
	return start, nil
}

// readAppendPart parses one append-message: options then a literal or a
// CATENATE open. Options are consumed greedily before the data decision,
// matching the documented APPEND grammar tie-break. On success the parser
// mode and remaining count are set; the returned events announce the part.
func (p *CommandParser) readAppendPart(r *reader) ([]imap.ClientEvent, error) {
	var opts imap.AppendOptions

	// Flag list first, date-time second; each at most once.
	b, err := r.peekByte()
	if err != nil {
		return nil, imap.ErrIncomplete
	}
	if b == '(' {
		flags, err := readFlagList(r)
		if err != nil {
			return nil, err
		}
		opts.Flags = flags
		if err := space(r); err != nil {
			return nil, err
		}
		b, err = r.peekByte()
		if err != nil {
			return nil, imap.ErrIncomplete
		}
	}
	if b == '"' {
		date, err := readDateTime(r)
		if err != nil {
			return nil, err
		}
		opts.Date = &date
		if err := space(r); err != nil {
			return nil, err
		}
		b, err = r.peekByte()
		if err != nil {
			return nil, imap.ErrIncomplete
		}
	}

	switch {
	case b == '{' || b == '~':
		info, err := readLiteralInfo(r)
		if err != nil {
			return nil, err
		}
		p.mode = cmdModeAppendMessage
		p.remaining = info.Size
		return []imap.ClientEvent{imap.AppendBeginMessage{
			Options: opts,
			Size:    info.Size,
			Binary:  info.Binary,
		}}, nil
	case b == 'C' || b == 'c':
		if err := expectString(r, "CATENATE"); err != nil {
			return nil, err
		}
		if err := space(r); err != nil {
			return nil, err
		}
		if err := expectByte(r, '('); err != nil {
			return nil, err
		}
		p.mode = cmdModeAppendCatenateList
		return []imap.ClientEvent{imap.AppendBeginCatenate{Options: opts}}, nil
	default:
		return nil, r.errParse("expected append data")
	}
}

// nextStreamChunk surfaces literal bytes in append-message and catenate
// TEXT streaming modes.
func (p *CommandParser) nextStreamChunk() (imap.ClientEvent, error) {
	catenate := p.mode == cmdModeAppendCatenateData

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
		last := p.remaining == 0
		if last {
			p.queueStreamEnd(catenate)
		}
		if catenate {
			return imap.AppendCatenateDataBytes{Chunk: chunk, Last: last}, nil
		}
		return imap.AppendMessageBytes{Chunk: chunk, Last: last}, nil
	}

	// Zero length literal: no byte events, straight to the end marker.
	p.queueStreamEnd(catenate)
	ev := p.pending[0]
	p.pending = p.pending[1:]
	return ev, nil
}

func (p *CommandParser) queueStreamEnd(catenate bool) {
	if catenate {
		p.pending = append(p.pending, imap.AppendCatenateDataEnd{})
		p.mode = cmdModeAppendCatenateList
	} else {
		p.pending = append(p.pending, imap.AppendEndMessage{})
		p.mode = cmdModeAppendBetweenParts
	}
}

// nextBetweenParts decides between the next MULTIAPPEND message and the
// end of the command.
func (p *CommandParser) nextBetweenParts() (imap.ClientEvent, error) {
	if len(p.buf) == 0 {
		return nil, imap.ErrIncomplete
	}
	r := p.newReader()

	b, err := r.peekByte()
	if err != nil {
		return nil, imap.ErrIncomplete
	}
	if b == '\r' || b == '\n' {
		if err := newline(r); err != nil {
			return nil, p.outcome(err)
		}
		p.commit(r)
		p.mode = cmdModeLines
		tag := p.appendTag
		p.appendTag = ""
		return imap.AppendFinish{Tag: tag}, nil
	}

	if err := space(r); err != nil {
		return nil, p.outcome(err)
	}
	events, err := p.readAppendPart(r)
	if err != nil {
		p.mode = cmdModeAppendBetweenParts
		return nil, p.outcome(err)
	}
	p.commit(r)
	ev := events[0]
	p.pending = append(p.pending, events[1:]...)
	return ev, nil
}

// nextCatenatePart parses one CATENATE part or the closing parenthesis.
func (p *CommandParser) nextCatenatePart() (imap.ClientEvent, error) {
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
		p.commit(r)
		p.mode = cmdModeAppendBetweenParts
		return imap.AppendEndCatenate{}, nil
	}

	name, err := readAtom(r)
	if err != nil {
		return nil, p.outcome(err)
	}
	switch strings.ToUpper(name) {
	case "URL":
		if err := space(r); err != nil {
			return nil, p.outcome(err)
		}
		url, err := readAString(r)
		if err != nil {
			return nil, p.outcome(err)
		}
		p.commit(r)
		return imap.AppendCatenateURL{URL: url}, nil
	case "TEXT":
		if err := space(r); err != nil {
			return nil, p.outcome(err)
		}
		info, err := readLiteralInfo(r)
		if err != nil {
			return nil, p.outcome(err)
		}
		p.commit(r)
		p.mode = cmdModeAppendCatenateData
		p.remaining = info.Size
		return imap.AppendCatenateDataBegin{Size: info.Size}, nil
	default:
		return nil, p.outcome(r.errParse("expected URL or TEXT"))
	}
}
