package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/rs/zerolog"

	imapgo "github.com/emiago/imapgo"
	"github.com/emiago/imapgo/imap"
)

// CommandRecovery converts a panic in the wrapped handler into an error,
// logging the stack.
func CommandRecovery(logger zerolog.Logger) CommandMiddleware {
	return func(next imapgo.CommandHandler) imapgo.CommandHandler {
		return imapgo.CommandHandlerFunc(func(ev imap.ClientEvent) (err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error().
						Str("panic", fmt.Sprintf("%v", r)).
						Str("stack", string(debug.Stack())).
						Msg("panic in command handler")
					err = fmt.Errorf("command handler panic: %v", r)
				}
			}()
			return next.HandleCommand(ev)
		})
	}
}

// ResponseRecovery converts a panic in the wrapped handler into an error.
func ResponseRecovery(logger zerolog.Logger) ResponseMiddleware {
	return func(next imapgo.ResponseHandler) imapgo.ResponseHandler {
		return imapgo.ResponseHandlerFunc(func(ev imap.ServerEvent) (err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error().
						Str("panic", fmt.Sprintf("%v", r)).
						Str("stack", string(debug.Stack())).
						Msg("panic in response handler")
					err = fmt.Errorf("response handler panic: %v", r)
				}
			}()
			return next.HandleResponse(ev)
		})
	}
}
