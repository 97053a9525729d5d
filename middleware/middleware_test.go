package middleware

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	imapgo "github.com/emiago/imapgo"
	"github.com/emiago/imapgo/imap"
)

type countingHandler struct {
	events int
	err    error
}

func (h *countingHandler) HandleCommand(ev imap.ClientEvent) error {
	h.events++
	return h.err
}

func (h *countingHandler) HandleResponse(ev imap.ServerEvent) error {
	h.events++
	return h.err
}

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) CommandMiddleware {
		return func(next imapgo.CommandHandler) imapgo.CommandHandler {
			return imapgo.CommandHandlerFunc(func(ev imap.ClientEvent) error {
				order = append(order, name)
				return next.HandleCommand(ev)
			})
		}
	}

	h := &countingHandler{}
	wrapped := ChainCommand(mw("outer"), mw("inner"))(h)
	require.NoError(t, wrapped.HandleCommand(&imap.Command{Tag: "a", Name: "NOOP"}))
	require.Equal(t, []string{"outer", "inner"}, order)
	require.Equal(t, 1, h.events)
}

func TestCommandMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	h := &countingHandler{}
	wrapped := CommandMetrics(m)(h)

	require.NoError(t, wrapped.HandleCommand(&imap.Command{Tag: "a", Name: "NOOP"}))
	require.NoError(t, wrapped.HandleCommand(imap.AppendStart{Tag: "b", Mailbox: "INBOX"}))
	require.NoError(t, wrapped.HandleCommand(imap.AppendMessageBytes{Chunk: []byte("hello")}))

	require.Equal(t, float64(1), testutil.ToFloat64(m.Commands.WithLabelValues("NOOP")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.Commands.WithLabelValues("APPEND")))
	require.Equal(t, float64(5), testutil.ToFloat64(m.StreamedBytes))
	require.Equal(t, float64(0), testutil.ToFloat64(m.HandlerErrors))
}

func TestResponseMetricsCountsErrors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	h := &countingHandler{err: errors.New("boom")}
	wrapped := ResponseMetrics(m)(h)

	err := wrapped.HandleResponse(imap.FetchStreamingBytes{Chunk: []byte("abcd")})
	require.Error(t, err)
	require.Equal(t, float64(4), testutil.ToFloat64(m.StreamedBytes))
	require.Equal(t, float64(1), testutil.ToFloat64(m.HandlerErrors))
}

func TestRecoveryConvertsPanic(t *testing.T) {
	logger := zerolog.Nop()

	panicky := imapgo.CommandHandlerFunc(func(ev imap.ClientEvent) error {
		panic("handler exploded")
	})
	wrapped := CommandRecovery(logger)(panicky)
	err := wrapped.HandleCommand(&imap.Command{Tag: "a", Name: "NOOP"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "handler exploded")

	panickyResp := imapgo.ResponseHandlerFunc(func(ev imap.ServerEvent) error {
		panic("resp exploded")
	})
	wrappedResp := ResponseRecovery(logger)(panickyResp)
	err = wrappedResp.HandleResponse(imap.FetchFinish{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "resp exploded")
}
