// Package imaptest provides test infrastructure for the stream parsers:
// event recorders, byte-boundary replay helpers and unique identifier
// generation.
package imaptest

import (
	"strings"

	"github.com/google/uuid"

	"github.com/emiago/imapgo/imap"
	"github.com/emiago/imapgo/parser"
)

// CommandRecorder collects command events.
type CommandRecorder struct {
	Events []imap.ClientEvent
}

func (r *CommandRecorder) HandleCommand(ev imap.ClientEvent) error {
	r.Events = append(r.Events, ev)
	return nil
}

// ResponseRecorder collects response events.
type ResponseRecorder struct {
	Events []imap.ServerEvent
}

func (r *ResponseRecorder) HandleResponse(ev imap.ServerEvent) error {
	r.Events = append(r.Events, ev)
	return nil
}

// NextTag returns a unique command tag. Tags only need to be unique per
// connection; a trimmed UUID keeps them unique across harness runs too.
func NextTag() string {
	return "T" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// UniqueMailbox returns a mailbox name that will not collide between test
// runs.
func UniqueMailbox(prefix string) string {
	return prefix + "-" + uuid.NewString()[:8]
}

// cloneClientEvent deep-copies chunk data, which is only valid until the
// next Write on the parser.
func cloneClientEvent(ev imap.ClientEvent) imap.ClientEvent {
	switch e := ev.(type) {
	case imap.AppendMessageBytes:
		e.Chunk = append([]byte(nil), e.Chunk...)
		return e
	case imap.AppendCatenateDataBytes:
		e.Chunk = append([]byte(nil), e.Chunk...)
		return e
	}
	return ev
}

func cloneServerEvent(ev imap.ServerEvent) imap.ServerEvent {
	if e, ok := ev.(imap.FetchStreamingBytes); ok {
		e.Chunk = append([]byte(nil), e.Chunk...)
		return e
	}
	return ev
}

// CollectCommands feeds the whole input at once and drains every event.
func CollectCommands(p *parser.CommandParser, input []byte) ([]imap.ClientEvent, error) {
	if _, err := p.Write(input); err != nil {
		return nil, err
	}
	var events []imap.ClientEvent
	for {
		ev, err := p.Next()
		if err == imap.ErrIncomplete {
			return events, nil
		}
		if err != nil {
			return events, err
		}
		events = append(events, cloneClientEvent(ev))
	}
}

// CollectResponses feeds the whole input at once and drains every event.
func CollectResponses(p *parser.ResponseParser, input []byte) ([]imap.ServerEvent, error) {
	if _, err := p.Write(input); err != nil {
		return nil, err
	}
	var events []imap.ServerEvent
	for {
		ev, err := p.Next()
		if err == imap.ErrIncomplete {
			return events, nil
		}
		if err != nil {
			return events, err
		}
		events = append(events, cloneServerEvent(ev))
	}
}

// FeedCommandsBytewise replays input one byte per Write, draining events
// after every byte. Splitting at every boundary must produce the same
// event sequence as a single Write.
func FeedCommandsBytewise(p *parser.CommandParser, input []byte) ([]imap.ClientEvent, error) {
	var events []imap.ClientEvent
	for i := 0; i < len(input); i++ {
		if _, err := p.Write(input[i : i+1]); err != nil {
			return events, err
		}
		for {
			ev, err := p.Next()
			if err == imap.ErrIncomplete {
				break
			}
			if err != nil {
				return events, err
			}
			events = append(events, cloneClientEvent(ev))
		}
	}
	return events, nil
}

// FeedResponsesBytewise replays input one byte per Write.
func FeedResponsesBytewise(p *parser.ResponseParser, input []byte) ([]imap.ServerEvent, error) {
	var events []imap.ServerEvent
	for i := 0; i < len(input); i++ {
		if _, err := p.Write(input[i : i+1]); err != nil {
			return events, err
		}
		for {
			ev, err := p.Next()
			if err == imap.ErrIncomplete {
				break
			}
			if err != nil {
				return events, err
			}
			events = append(events, cloneServerEvent(ev))
		}
	}
	return events, nil
}
