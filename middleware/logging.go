package middleware

import (
	"fmt"

	"github.com/rs/zerolog"

	imapgo "github.com/emiago/imapgo"
	"github.com/emiago/imapgo/imap"
)

// CommandLogging logs every command event at debug level.
func CommandLogging(logger zerolog.Logger) CommandMiddleware {
	return func(next imapgo.CommandHandler) imapgo.CommandHandler {
		return imapgo.CommandHandlerFunc(func(ev imap.ClientEvent) error {
			logEvent(logger, eventName(ev), commandTag(ev))
			return next.HandleCommand(ev)
		})
	}
}

// ResponseLogging logs every response event at debug level.
func ResponseLogging(logger zerolog.Logger) ResponseMiddleware {
	return func(next imapgo.ResponseHandler) imapgo.ResponseHandler {
		return imapgo.ResponseHandlerFunc(func(ev imap.ServerEvent) error {
			logEvent(logger, eventName(ev), responseTag(ev))
			return next.HandleResponse(ev)
		})
	}
}

func logEvent(logger zerolog.Logger, name, tag string) {
	e := logger.Debug().Str("event", name)
	if tag != "" {
		e = e.Str("tag", tag)
	}
	e.Msg("stream event")
}

// eventName renders the concrete event type, e.g. "imap.FetchStart".
func eventName(ev any) string {
	return fmt.Sprintf("%T", ev)
}

func commandTag(ev imap.ClientEvent) string {
	switch e := ev.(type) {
	case *imap.Command:
		return e.Tag
	case imap.AppendStart:
		return e.Tag
	case imap.AppendFinish:
		return e.Tag
	case imap.IdleStart:
		return e.Tag
	}
	return ""
}

func responseTag(ev imap.ServerEvent) string {
	if t, ok := ev.(imap.Tagged); ok {
		return t.Tag
	}
	return ""
}
