package middleware

import (
	"github.com/prometheus/client_golang/prometheus"

	imapgo "github.com/emiago/imapgo"
	"github.com/emiago/imapgo/imap"
)

// Metrics holds the Prometheus collectors populated by the metrics
// middleware.
type Metrics struct {
	Events        *prometheus.CounterVec
	Commands      *prometheus.CounterVec
	StreamedBytes prometheus.Counter
	HandlerErrors prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "imapgo_events_total",
			Help: "Stream events by event type.",
		}, []string{"event"}),
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "imapgo_commands_total",
			Help: "Parsed commands by command name.",
		}, []string{"command"}),
		StreamedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "imapgo_streamed_bytes_total",
			Help: "Octets delivered through streaming events.",
		}),
		HandlerErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "imapgo_handler_errors_total",
			Help: "Errors returned by the wrapped handler.",
		}),
	}
	reg.MustRegister(m.Events, m.Commands, m.StreamedBytes, m.HandlerErrors)
	return m
}

// CommandMetrics counts command events, command names and streamed bytes.
func CommandMetrics(m *Metrics) CommandMiddleware {
	return func(next imapgo.CommandHandler) imapgo.CommandHandler {
		return imapgo.CommandHandlerFunc(func(ev imap.ClientEvent) error {
			m.Events.WithLabelValues(eventName(ev)).Inc()
			switch e := ev.(type) {
			case *imap.Command:
				m.Commands.WithLabelValues(e.Name).Inc()
			case imap.AppendStart:
				m.Commands.WithLabelValues("APPEND").Inc()
			case imap.AppendMessageBytes:
				m.StreamedBytes.Add(float64(len(e.Chunk)))
			case imap.AppendCatenateDataBytes:
				m.StreamedBytes.Add(float64(len(e.Chunk)))
			}
			err := next.HandleCommand(ev)
			if err != nil {
				m.HandlerErrors.Inc()
			}
			return err
		})
	}
}

// ResponseMetrics counts response events and streamed bytes.
func ResponseMetrics(m *Metrics) ResponseMiddleware {
	return func(next imapgo.ResponseHandler) imapgo.ResponseHandler {
		return imapgo.ResponseHandlerFunc(func(ev imap.ServerEvent) error {
			m.Events.WithLabelValues(eventName(ev)).Inc()
			if b, ok := ev.(imap.FetchStreamingBytes); ok {
				m.StreamedBytes.Add(float64(len(b.Chunk)))
			}
			err := next.HandleResponse(ev)
			if err != nil {
				m.HandlerErrors.Inc()
			}
			return err
		})
	}
}
