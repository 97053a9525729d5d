package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/emiago/imapgo/imap"
)

const greeting = "* OK [CAPABILITY IMAP4rev1 LITERAL+ IDLE] Server ready\r\n"

func drainResponses(t *testing.T, p *ResponseParser) []imap.ServerEvent {
	t.Helper()
	var events []imap.ServerEvent
	for {
		ev, err := p.Next()
		if err == imap.ErrIncomplete {
			return events
		}
		require.NoError(t, err)
		events = append(events, ev)
	}
}

// feedResponses prepends the greeting and returns the events after it.
func feedResponses(t *testing.T, input string) []imap.ServerEvent {
	t.Helper()
	p := NewResponseParser()
	_, err := p.Write([]byte(greeting + input))
	require.NoError(t, err)
	events := drainResponses(t, p)
	require.NotEmpty(t, events)
	require.IsType(t, imap.Greeting{}, events[0])
	return events[1:]
}

func TestGreeting(t *testing.T) {
	p := NewResponseParser()
	_, err := p.Write([]byte(greeting))
	require.NoError(t, err)

	ev, err := p.Next()
	require.NoError(t, err)
	g := ev.(imap.Greeting)
	require.Equal(t, imap.StatusOK, g.Status)
	require.Equal(t, "CAPABILITY", g.Text.Code)
	require.Equal(t, []string{"IMAP4rev1", "LITERAL+", "IDLE"}, g.Text.Args)
	require.Equal(t, "Server ready", g.Text.Text)
}

func TestGreetingPreauth(t *testing.T) {
	p := NewResponseParser()
	_, err := p.Write([]byte("* PREAUTH ready\r\n"))
	require.NoError(t, err)
	ev, err := p.Next()
	require.NoError(t, err)
	require.Equal(t, imap.StatusPreauth, ev.(imap.Greeting).Status)
}

func TestTaggedResponse(t *testing.T) {
	events := feedResponses(t, "a1 OK [READ-WRITE] SELECT completed\r\n")
	tg := events[0].(imap.Tagged)
	require.Equal(t, "a1", tg.Tag)
	require.Equal(t, imap.StatusOK, tg.Status)
	require.Equal(t, "READ-WRITE", tg.Text.Code)
	require.Equal(t, "SELECT completed", tg.Text.Text)
}

func TestContinuationRequest(t *testing.T) {
	t.Run("with text", func(t *testing.T) {
		events := feedResponses(t, "+ Ready for literal data\r\n")
		cr := events[0].(imap.ContinuationRequest)
		require.Equal(t, "Ready for literal data", cr.Text)
	})
	t.Run("bare plus accepted", func(t *testing.T) {
		events := feedResponses(t, "+\r\n")
		cr := events[0].(imap.ContinuationRequest)
		require.Equal(t, "", cr.Text)
	})
}

func TestUntaggedNumeric(t *testing.T) {
	events := feedResponses(t, "* 23 EXISTS\r\n* 5 RECENT\r\n* 44 EXPUNGE\r\n")
	require.Len(t, events, 3)
	require.Equal(t, uint32(23), events[0].(imap.Untagged).Data.(imap.ExistsData).Count)
	require.Equal(t, uint32(5), events[1].(imap.Untagged).Data.(imap.RecentData).Count)
	require.Equal(t, uint32(44), events[2].(imap.Untagged).Data.(imap.ExpungeData).SeqNum)
}

func TestUntaggedListAndStatus(t *testing.T) {
	events := feedResponses(t,
		"* LIST (\\HasNoChildren \\Sent) \"/\" \"Sent Items\"\r\n"+
			"* LIST (\\Noselect) NIL foo\r\n"+
			"* STATUS blurdybloop (MESSAGES 231 UIDNEXT 44292)\r\n")

	list := events[0].(imap.Untagged).Data.(imap.ListData)
	require.Equal(t, []imap.MailboxAttr{imap.AttrHasNoChildren, imap.AttrSent}, list.Attrs)
	require.Equal(t, byte('/'), list.Delim)
	require.Equal(t, "Sent Items", list.Mailbox)

	flat := events[1].(imap.Untagged).Data.(imap.ListData)
	require.Equal(t, byte(0), flat.Delim)

	status := events[2].(imap.Untagged).Data.(imap.StatusData)
	require.Equal(t, "blurdybloop", status.Mailbox)
	require.Equal(t, []imap.StatusItem{
		{Name: "MESSAGES", Value: 231},
		{Name: "UIDNEXT", Value: 44292},
	}, status.Items)
}

func TestUntaggedSearchAndESearch(t *testing.T) {
	events := feedResponses(t,
		"* SEARCH 2 84 882 (MODSEQ 917162500)\r\n"+
			"* SEARCH\r\n"+
			"* ESEARCH (TAG \"A282\") UID MIN 2 MAX 47 COUNT 25 ALL 1:17,21\r\n")

	s := events[0].(imap.Untagged).Data.(imap.SearchData)
	require.Equal(t, []uint32{2, 84, 882}, s.Nums)
	require.Equal(t, uint64(917162500), s.ModSeq)

	empty := events[1].(imap.Untagged).Data.(imap.SearchData)
	require.Empty(t, empty.Nums)

	es := events[2].(imap.Untagged).Data.(imap.ESearchData)
	require.Equal(t, "A282", es.Correlator)
	require.True(t, es.UID)
	require.Equal(t, uint32(2), es.Min)
	require.Equal(t, uint32(47), es.Max)
	require.Equal(t, uint32(25), es.Count)
	require.Equal(t, []imap.NumRange{{Start: 1, Stop: 17}, {Start: 21, Stop: 21}}, es.All.Set)
}

func TestUntaggedQuotaNamespaceIDEnabled(t *testing.T) {
	events := feedResponses(t,
		"* QUOTA \"\" (STORAGE 10 512)\r\n"+
			"* QUOTAROOT INBOX \"\"\r\n"+
			"* NAMESPACE ((\"\" \"/\")) NIL ((\"#shared/\" \"/\"))\r\n"+
			"* ID (\"name\" \"Dovecot\")\r\n"+
			"* ENABLED QRESYNC\r\n")

	quota := events[0].(imap.Untagged).Data.(imap.QuotaData)
	require.Equal(t, []imap.QuotaResourceData{{Name: "STORAGE", Usage: 10, Limit: 512}}, quota.Resources)

	root := events[1].(imap.Untagged).Data.(imap.QuotaRootData)
	require.Equal(t, "INBOX", root.Mailbox)
	require.Equal(t, []string{""}, root.Roots)

	ns := events[2].(imap.Untagged).Data.(imap.NamespaceData)
	require.Len(t, ns.Personal, 1)
	require.Equal(t, byte('/'), ns.Personal[0].Delim)
	require.Nil(t, ns.Other)
	require.Equal(t, "#shared/", ns.Shared[0].Prefix)

	id := events[3].(imap.Untagged).Data.(imap.IDData)
	require.Equal(t, "name", id.Fields[0].Key)
	require.Equal(t, "Dovecot", *id.Fields[0].Value)

	enabled := events[4].(imap.Untagged).Data.(imap.EnabledData)
	require.Equal(t, []string{"QRESYNC"}, enabled.Caps)
}

func TestUntaggedVanished(t *testing.T) {
	events := feedResponses(t, "* VANISHED (EARLIER) 41,43:116\r\n* VANISHED 300:310\r\n")
	v1 := events[0].(imap.Untagged).Data.(imap.VanishedData)
	require.True(t, v1.Earlier)
	require.Equal(t, []imap.NumRange{{Start: 41, Stop: 41}, {Start: 43, Stop: 116}}, v1.UIDs.Set)
	v2 := events[1].(imap.Untagged).Data.(imap.VanishedData)
	require.False(t, v2.Earlier)
}

func TestFetchStreamingScenario(t *testing.T) {
	input := "* 999 FETCH (BODY[TEXT]<4> {3}\r\nabc FLAGS (\\seen \\answered))\r\n"
	events := feedResponses(t, input)

	require.Len(t, events, 6)
	require.Equal(t, uint32(999), events[0].(imap.FetchStart).SeqNum)

	begin := events[1].(imap.FetchStreamingBegin)
	require.Equal(t, "BODY", begin.Label)
	require.Equal(t, "TEXT", begin.Section.Specifier)
	require.Equal(t, int64(4), begin.Offset)
	require.Equal(t, int64(3), begin.Size)

	require.Equal(t, "abc", string(events[2].(imap.FetchStreamingBytes).Chunk))
	require.IsType(t, imap.FetchStreamingEnd{}, events[3])

	flags := events[4].(imap.FetchSimpleAttribute).Attr.(imap.FetchFlags)
	require.Equal(t, []imap.Flag{imap.FlagSeen, imap.FlagAnswered}, flags.Flags)

	require.IsType(t, imap.FetchFinish{}, events[5])
}

func TestFetchSimpleAttributes(t *testing.T) {
	input := "* 12 FETCH (UID 4827 RFC822.SIZE 4286 MODSEQ (65402) " +
		"INTERNALDATE \"17-Jul-1996 02:44:25 -0700\" X-GM-MSGID 1278455344230334865 " +
		"X-GM-LABELS (\\Inbox \"custom label\") BINARY.SIZE[1] 100)\r\n"
	events := feedResponses(t, input)

	require.IsType(t, imap.FetchStart{}, events[0])
	attrs := events[1 : len(events)-1]
	require.IsType(t, imap.FetchFinish{}, events[len(events)-1])

	require.Equal(t, imap.UID(4827), attrs[0].(imap.FetchSimpleAttribute).Attr.(imap.FetchUID).UID)
	require.Equal(t, int64(4286), attrs[1].(imap.FetchSimpleAttribute).Attr.(imap.FetchRFC822Size).Size)
	require.Equal(t, uint64(65402), attrs[2].(imap.FetchSimpleAttribute).Attr.(imap.FetchModSeq).ModSeq)
	require.Equal(t, 17, attrs[3].(imap.FetchSimpleAttribute).Attr.(imap.FetchInternalDate).Date.Day())
	require.Equal(t, uint64(1278455344230334865), attrs[4].(imap.FetchSimpleAttribute).Attr.(imap.FetchGmailMsgID).ID)
	require.Equal(t, []string{"\\Inbox", "custom label"}, attrs[5].(imap.FetchSimpleAttribute).Attr.(imap.FetchGmailLabels).Labels)
	bsz := attrs[6].(imap.FetchSimpleAttribute).Attr.(imap.FetchBinarySize)
	require.Equal(t, []int{1}, bsz.Part)
	require.Equal(t, uint32(100), bsz.Size)
}

func TestFetchEnvelopeAndBodyStructure(t *testing.T) {
	input := `* 2 FETCH (ENVELOPE ("date" "subj" NIL NIL NIL NIL NIL NIL NIL NIL) ` +
		`BODYSTRUCTURE ("TEXT" "PLAIN" NIL NIL NIL "7BIT" 10 1 NIL NIL NIL))` + "\r\n"
	events := feedResponses(t, input)

	env := events[1].(imap.FetchSimpleAttribute).Attr.(imap.FetchEnvelope).Envelope
	require.Equal(t, "subj", env.Subject)

	bs := events[2].(imap.FetchSimpleAttribute).Attr.(imap.FetchBodyStructure)
	require.True(t, bs.Extended)
	require.Equal(t, "PLAIN", bs.Structure.Subtype)
}

func TestFetchBodySectionInline(t *testing.T) {
	input := "* 3 FETCH (BODY[HEADER.FIELDS (DATE)] \"Date: x\" RFC822.TEXT NIL)\r\n"
	events := feedResponses(t, input)

	sect := events[1].(imap.FetchSimpleAttribute).Attr.(imap.FetchBodySection)
	require.Equal(t, "HEADER.FIELDS", sect.Section.Specifier)
	require.Equal(t, []byte("Date: x"), sect.Data)
	require.Equal(t, int64(-1), sect.Offset)

	nilSect := events[2].(imap.FetchSimpleAttribute).Attr.(imap.FetchBodySection)
	require.Equal(t, "TEXT", nilSect.Section.Specifier)
	require.Nil(t, nilSect.Data)
}

func TestFetchRFC822Streaming(t *testing.T) {
	input := "* 7 FETCH (RFC822.HEADER {13}\r\nFrom: a@b\r\n\r\n)\r\n"
	events := feedResponses(t, input)

	begin := events[1].(imap.FetchStreamingBegin)
	require.Equal(t, "RFC822.HEADER", begin.Label)
	require.Equal(t, "HEADER", begin.Section.Specifier)
	require.Equal(t, int64(13), begin.Size)
	require.Equal(t, "From: a@b\r\n\r\n", string(events[2].(imap.FetchStreamingBytes).Chunk))
	require.IsType(t, imap.FetchStreamingEnd{}, events[3])
	require.IsType(t, imap.FetchFinish{}, events[4])
}

func TestFetchBinaryStreaming(t *testing.T) {
	input := "* 9 FETCH (BINARY[1.1] ~{4}\r\n\x01\x02\x03\x04)\r\n"
	events := feedResponses(t, input)

	begin := events[1].(imap.FetchStreamingBegin)
	require.Equal(t, "BINARY", begin.Label)
	require.True(t, begin.Binary)
	require.Equal(t, []int{1, 1}, begin.Section.Part)
	require.Equal(t, []byte{1, 2, 3, 4}, events[2].(imap.FetchStreamingBytes).Chunk)
}

func TestFetchAttributeLimit(t *testing.T) {
	lim := DefaultLimits()
	lim.MessageAttributes = 3
	p := NewResponseParser(WithLimits(lim))
	_, err := p.Write([]byte(greeting + "* 999 FETCH (FLAGS (\\Seen) UID 1 RFC822.SIZE 123 UID 2 UID 3)\r\n"))
	require.NoError(t, err)

	var kinds []string
	for i := 0; i < 5; i++ {
		ev, err := p.Next()
		require.NoError(t, err)
		switch ev.(type) {
		case imap.Greeting:
			kinds = append(kinds, "greeting")
		case imap.FetchStart:
			kinds = append(kinds, "start")
		case imap.FetchSimpleAttribute:
			kinds = append(kinds, "attr")
		}
	}
	require.Equal(t, []string{"greeting", "start", "attr", "attr", "attr"}, kinds)

	_, err = p.Next()
	var le *imap.LimitError
	require.ErrorAs(t, err, &le)
	require.Equal(t, imap.LimitAttributes, le.Kind)

	// Terminal state: no more events ever.
	_, err = p.Next()
	require.ErrorAs(t, err, &le)
}

func TestFetchBodySizeLimit(t *testing.T) {
	lim := DefaultLimits()
	lim.BodySize = 8
	p := NewResponseParser(WithLimits(lim))
	_, err := p.Write([]byte(greeting + "* 1 FETCH (BODY[] {100}\r\n"))
	require.NoError(t, err)

	_, err = p.Next() // greeting
	require.NoError(t, err)
	_, err = p.Next() // fetch start
	require.NoError(t, err)

	_, err = p.Next()
	var le *imap.LimitError
	require.ErrorAs(t, err, &le)
	require.Equal(t, imap.LimitBodySize, le.Kind)
}

func TestFetchDepthLimitNestedBodyStructure(t *testing.T) {
	depth := 50
	var sb strings.Builder
	sb.WriteString("* 1 FETCH (BODYSTRUCTURE ")
	for i := 0; i < depth; i++ {
		sb.WriteString("(")
	}
	sb.WriteString(`"TEXT" "PLAIN" NIL NIL NIL "7BIT" 1 1`)
	for i := 0; i < depth; i++ {
		sb.WriteString(` "MIXED")`)
	}
	sb.WriteString(")\r\n")

	p := NewResponseParser()
	_, err := p.Write([]byte(greeting + sb.String()))
	require.NoError(t, err)

	_, err = p.Next() // greeting
	require.NoError(t, err)
	_, err = p.Next() // fetch start
	require.NoError(t, err)

	_, err = p.Next()
	var le *imap.LimitError
	require.ErrorAs(t, err, &le)
	require.Equal(t, imap.LimitDepth, le.Kind)
}

func TestResponseStreamConcatenation(t *testing.T) {
	payload := strings.Repeat("x", 300)
	input := "* 1 FETCH (BODY[] {300}\r\n" + payload + ")\r\n"

	p := NewResponseParser()
	_, err := p.Write([]byte(greeting))
	require.NoError(t, err)
	_, err = p.Next()
	require.NoError(t, err)

	// Feed in small slabs; chunks must concatenate to exactly the payload.
	var got []byte
	var sawEnd bool
	rest := input
	for len(rest) > 0 || !sawEnd {
		if len(rest) > 0 {
			n := 7
			if n > len(rest) {
				n = len(rest)
			}
			_, err = p.Write([]byte(rest[:n]))
			require.NoError(t, err)
			rest = rest[n:]
		}
		for {
			ev, err := p.Next()
			if err == imap.ErrIncomplete {
				break
			}
			require.NoError(t, err)
			switch e := ev.(type) {
			case imap.FetchStreamingBytes:
				got = append(got, e.Chunk...)
			case imap.FetchStreamingEnd:
				sawEnd = true
			}
		}
	}
	require.Equal(t, payload, string(got))
}

func TestResponseIncrementalFeed(t *testing.T) {
	inputs := []string{
		"* 23 EXISTS\r\na1 OK done\r\n",
		"* 999 FETCH (BODY[TEXT]<4> {3}\r\nabc FLAGS (\\seen \\answered))\r\n",
		"* LIST (\\Marked) \"/\" INBOX\r\n+ idling\r\n",
	}
	for _, input := range inputs {
		t.Run(input[:8], func(t *testing.T) {
			whole := feedResponses(t, input)

			p := NewResponseParser()
			full := greeting + input
			var bytewise []imap.ServerEvent
			for i := 0; i < len(full); i++ {
				_, err := p.Write([]byte{full[i]})
				require.NoError(t, err)
				for {
					ev, err := p.Next()
					if err == imap.ErrIncomplete {
						break
					}
					require.NoError(t, err)
					if e, ok := ev.(imap.FetchStreamingBytes); ok {
						e.Chunk = append([]byte(nil), e.Chunk...)
						ev = e
					}
					bytewise = append(bytewise, ev)
				}
			}
			require.IsType(t, imap.Greeting{}, bytewise[0])
			bytewise = bytewise[1:]

			normalize := func(evs []imap.ServerEvent) []imap.ServerEvent {
				var out []imap.ServerEvent
				for _, ev := range evs {
					if e, ok := ev.(imap.FetchStreamingBytes); ok {
						if len(out) > 0 {
							if prev, pok := out[len(out)-1].(imap.FetchStreamingBytes); pok {
								prev.Chunk = append(append([]byte(nil), prev.Chunk...), e.Chunk...)
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
			require.Equal(t, normalize(whole), normalize(bytewise))
		})
	}
}

func TestResponseParseErrorAndResync(t *testing.T) {
	events := feedResponses(t, "")
	require.Empty(t, events)

	p := NewResponseParser()
	_, err := p.Write([]byte(greeting + "* WAT 1 2\r\n* 3 EXISTS\r\n"))
	require.NoError(t, err)
	_, err = p.Next()
	require.NoError(t, err)

	_, err = p.Next()
	var pe *imap.ParseError
	require.ErrorAs(t, err, &pe)

	p.Resync()
	ev, err := p.Next()
	require.NoError(t, err)
	require.Equal(t, uint32(3), ev.(imap.Untagged).Data.(imap.ExistsData).Count)
}

func TestGreetingRejectsNo(t *testing.T) {
	p := NewResponseParser()
	_, err := p.Write([]byte("* NO go away\r\n"))
	require.NoError(t, err)
	_, err = p.Next()
	var pe *imap.ParseError
	require.ErrorAs(t, err, &pe)
}
