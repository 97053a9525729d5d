// Package middleware provides event handler wrappers for cross-cutting
// concerns: structured logging, Prometheus metrics and panic recovery.
//
// Middleware composes around the handler interfaces of the imapgo package,
// so a caller can observe a parsed stream without touching the parsers.
package middleware

import (
	imapgo "github.com/emiago/imapgo"
)

// CommandMiddleware wraps a CommandHandler.
type CommandMiddleware func(next imapgo.CommandHandler) imapgo.CommandHandler

// ResponseMiddleware wraps a ResponseHandler.
type ResponseMiddleware func(next imapgo.ResponseHandler) imapgo.ResponseHandler

// ChainCommand composes middlewares; the first is outermost.
func ChainCommand(mws ...CommandMiddleware) CommandMiddleware {
	return func(next imapgo.CommandHandler) imapgo.CommandHandler {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}

// ChainResponse composes middlewares; the first is outermost.
func ChainResponse(mws ...ResponseMiddleware) ResponseMiddleware {
	return func(next imapgo.ResponseHandler) imapgo.ResponseHandler {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}
