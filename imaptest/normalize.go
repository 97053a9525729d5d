package imaptest

import (
	"github.com/emiago/imapgo/imap"
)

// NormalizeCommandEvents coalesces consecutive chunk events into one, so
// event sequences compare equal regardless of how the input was split.
// The streaming contract only fixes the concatenation, not the chunking.
func NormalizeCommandEvents(events []imap.ClientEvent) []imap.ClientEvent {
	var out []imap.ClientEvent
	for _, ev := range events {
		switch e := ev.(type) {
		case imap.AppendMessageBytes:
			if len(out) > 0 {
				if prev, ok := out[len(out)-1].(imap.AppendMessageBytes); ok {
					prev.Chunk = append(prev.Chunk, e.Chunk...)
					prev.Last = e.Last
					out[len(out)-1] = prev
					continue
				}
			}
			e.Chunk = append([]byte(nil), e.Chunk...)
			out = append(out, e)
		case imap.AppendCatenateDataBytes:
			if len(out) > 0 {
				if prev, ok := out[len(out)-1].(imap.AppendCatenateDataBytes); ok {
					prev.Chunk = append(prev.Chunk, e.Chunk...)
					prev.Last = e.Last
					out[len(out)-1] = prev
					continue
				}
			}
			e.Chunk = append([]byte(nil), e.Chunk...)
			out = append(out, e)
		default:
			out = append(out, ev)
		}
	}
	return out
}

// NormalizeResponseEvents coalesces consecutive FetchStreamingBytes.
func NormalizeResponseEvents(events []imap.ServerEvent) []imap.ServerEvent {
	var out []imap.ServerEvent
	for _, ev := range events {
		if e, ok := ev.(imap.FetchStreamingBytes); ok {
			if len(out) > 0 {
				if prev, pok := out[len(out)-1].(imap.FetchStreamingBytes); pok {
					prev.Chunk = append(prev.Chunk, e.Chunk...)
					out[len(out)-1] = prev
					continue
				}
			}
			e.Chunk = append([]byte(nil), e.Chunk...)
			out = append(out, e)
			continue
		}
		out = append(out, ev)
	}
	return out
}
