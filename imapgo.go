// Package imapgo provides incremental, streaming parsers for the IMAP4rev1
// wire protocol.
//
// The parser package holds the core machinery; this package glues a parser
// to an io.Reader and a handler so callers that own a byte stream do not
// have to run the feed loop themselves. There is no transport here: the
// reader is whatever the caller has, the handler is whatever the caller
// wants.
package imapgo

import (
	"errors"
	"io"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/emiago/imapgo/imap"
	"github.com/emiago/imapgo/parser"
)

// readChunkSize is the slab size used when pulling bytes from the reader.
const readChunkSize = 4096

// CommandHandler consumes command stream events in emission order.
type CommandHandler interface {
	HandleCommand(ev imap.ClientEvent) error
}

// CommandHandlerFunc adapts a function to CommandHandler.
type CommandHandlerFunc func(ev imap.ClientEvent) error

func (f CommandHandlerFunc) HandleCommand(ev imap.ClientEvent) error { return f(ev) }

// ResponseHandler consumes response stream events in emission order.
type ResponseHandler interface {
	HandleResponse(ev imap.ServerEvent) error
}

// ResponseHandlerFunc adapts a function to ResponseHandler.
type ResponseHandlerFunc func(ev imap.ServerEvent) error

func (f ResponseHandlerFunc) HandleResponse(ev imap.ServerEvent) error { return f(ev) }

// CommandStream feeds bytes from an io.Reader into a command parser.
type CommandStream struct {
	log zerolog.Logger
	src io.Reader
	p   *parser.CommandParser

	chunk []byte
}

// NewCommandStream creates a command stream over src. Options are passed
// through to the parser.
func NewCommandStream(src io.Reader, options ...parser.Option) *CommandStream {
	return &CommandStream{
		log:   log.Logger,
		src:   src,
		p:     parser.NewCommandParser(options...),
		chunk: make([]byte, readChunkSize),
	}
}

// Next returns the next event, reading from the source as needed. It
// returns io.ErrUnexpectedEOF when the source ends mid event.
func (s *CommandStream) Next() (imap.ClientEvent, error) {
	for {
		ev, err := s.p.Next()
		if err == nil {
			return ev, nil
		}
		if !errors.Is(err, imap.ErrIncomplete) {
			return nil, err
		}
		if err := s.fill(); err != nil {
			return nil, err
		}
	}
}

func (s *CommandStream) fill() error {
	n, err := s.src.Read(s.chunk)
	if n > 0 {
		if _, werr := s.p.Write(s.chunk[:n]); werr != nil {
			return werr
		}
		return nil
	}
	if err == io.EOF {
		if s.p.Buffered() > 0 {
			return io.ErrUnexpectedEOF
		}
		return io.EOF
	}
	return err
}

// Run dispatches events to h until the source is drained or an error
// stops the stream. A clean end of input returns nil.
func (s *CommandStream) Run(h CommandHandler) error {
	for {
		ev, err := s.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			s.log.Debug().Err(err).Msg("command stream stopped")
			return err
		}
		if err := h.HandleCommand(ev); err != nil {
			return err
		}
	}
}

// ResponseStream feeds bytes from an io.Reader into a response parser.
type ResponseStream struct {
	log zerolog.Logger
	src io.Reader
	p   *parser.ResponseParser

	chunk []byte
}

// NewResponseStream creates a response stream over src.
func NewResponseStream(src io.Reader, options ...parser.Option) *ResponseStream {
	return &ResponseStream{
		log:   log.Logger,
		src:   src,
		p:     parser.NewResponseParser(options...),
		chunk: make([]byte, readChunkSize),
	}
}

// Next returns the next event, reading from the source as needed.
func (s *ResponseStream) Next() (imap.ServerEvent, error) {
	for {
		ev, err := s.p.Next()
		if err == nil {
			return ev, nil
		}
		if !errors.Is(err, imap.ErrIncomplete) {
			return nil, err
		}
		if err := s.fill(); err != nil {
			return nil, err
		}
	}
}

func (s *ResponseStream) fill() error {
	n, err := s.src.Read(s.chunk)
	if n > 0 {
		if _, werr := s.p.Write(s.chunk[:n]); werr != nil {
			return werr
		}
		return nil
	}
	if err == io.EOF {
		if s.p.Buffered() > 0 {
			return io.ErrUnexpectedEOF
		}
		return io.EOF
	}
	return err
}

// Run dispatches events to h until the source is drained.
func (s *ResponseStream) Run(h ResponseHandler) error {
	for {
		ev, err := s.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			s.log.Debug().Err(err).Msg("response stream stopped")
			return err
		}
		if err := h.HandleResponse(ev); err != nil {
			return err
		}
	}
}
