package parser

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/emiago/imapgo/imap"
)

func drainCommands(t *testing.T, p *CommandParser) []imap.ClientEvent {
	t.Helper()
	var events []imap.ClientEvent
	for {
		ev, err := p.Next()
		if err == imap.ErrIncomplete {
			return events
		}
		require.NoError(t, err)
		events = append(events, ev)
	}
}

func feedCommands(t *testing.T, input string) []imap.ClientEvent {
	t.Helper()
	p := NewCommandParser()
	_, err := p.Write([]byte(input))
	require.NoError(t, err)
	return drainCommands(t, p)
}

func TestCommandNoop(t *testing.T) {
	p := NewCommandParser()
	_, err := p.Write([]byte("1 NOOP\r\n"))
	require.NoError(t, err)

	ev, err := p.Next()
	require.NoError(t, err)
	cmd, ok := ev.(*imap.Command)
	require.True(t, ok)
	require.Equal(t, "1", cmd.Tag)
	require.Equal(t, "NOOP", cmd.Name)

	_, err = p.Next()
	require.ErrorIs(t, err, imap.ErrIncomplete)
	require.Zero(t, p.Buffered())
}

func TestCommandLoginWithSyncLiterals(t *testing.T) {
	events := feedCommands(t, "2 LOGIN {0}\r\n {0}\r\n\r\n")
	require.Len(t, events, 1)
	cmd := events[0].(*imap.Command)
	require.Equal(t, "LOGIN", cmd.Name)
	require.Equal(t, "", cmd.Auth.Username)
	require.Equal(t, "", cmd.Auth.Password)
	require.Equal(t, 2, cmd.SyncLiterals)
}

func TestCommandLoginLiteralValues(t *testing.T) {
	events := feedCommands(t, "a1 LOGIN {5}\r\nalice {6+}\r\nsecret\r\n")
	require.Len(t, events, 1)
	cmd := events[0].(*imap.Command)
	require.Equal(t, "alice", cmd.Auth.Username)
	require.Equal(t, "secret", cmd.Auth.Password)
	require.Equal(t, 1, cmd.SyncLiterals)
}

func TestAppendMultipart(t *testing.T) {
	events := feedCommands(t, "3 APPEND INBOX {3+}\r\n123 {3+}\r\n456\r\n")

	require.Len(t, events, 8)
	start := events[0].(imap.AppendStart)
	require.Equal(t, "3", start.Tag)
	require.Equal(t, "INBOX", start.Mailbox)
	require.Equal(t, 0, start.SyncLiterals)

	begin1 := events[1].(imap.AppendBeginMessage)
	require.Equal(t, int64(3), begin1.Size)

	bytes1 := events[2].(imap.AppendMessageBytes)
	require.Equal(t, "123", string(bytes1.Chunk))
	require.True(t, bytes1.Last)
	require.IsType(t, imap.AppendEndMessage{}, events[3])

	begin2 := events[4].(imap.AppendBeginMessage)
	require.Equal(t, int64(3), begin2.Size)
	bytes2 := events[5].(imap.AppendMessageBytes)
	require.Equal(t, "456", string(bytes2.Chunk))
	require.IsType(t, imap.AppendEndMessage{}, events[6])

	finish := events[7].(imap.AppendFinish)
	require.Equal(t, "3", finish.Tag)
}

func TestAppendWithOptions(t *testing.T) {
	events := feedCommands(t, "a APPEND Sent (\\Seen) \"17-Jul-1996 02:44:25 -0700\" {2+}\r\nhi\r\n")
	require.GreaterOrEqual(t, len(events), 4)

	begin := events[1].(imap.AppendBeginMessage)
	require.Equal(t, []imap.Flag{imap.FlagSeen}, begin.Options.Flags)
	require.NotNil(t, begin.Options.Date)
	require.Equal(t, 17, begin.Options.Date.Day())
	require.Equal(t, int64(2), begin.Size)
}

func TestAppendSyncLiteralCountsOnStart(t *testing.T) {
	events := feedCommands(t, "a APPEND INBOX {2}\r\nhi\r\n")
	start := events[0].(imap.AppendStart)
	require.Equal(t, 1, start.SyncLiterals)
}

func TestAppendBinaryLiteral(t *testing.T) {
	events := feedCommands(t, "a APPEND INBOX ~{2+}\r\n\x00\x01\r\n")
	begin := events[1].(imap.AppendBeginMessage)
	require.True(t, begin.Binary)
	chunk := events[2].(imap.AppendMessageBytes)
	require.Equal(t, []byte{0x00, 0x01}, chunk.Chunk)
}

func TestAppendZeroLengthMessage(t *testing.T) {
	events := feedCommands(t, "a APPEND INBOX {0+}\r\n\r\n")
	require.Len(t, events, 4)
	require.IsType(t, imap.AppendStart{}, events[0])
	require.IsType(t, imap.AppendBeginMessage{}, events[1])
	require.IsType(t, imap.AppendEndMessage{}, events[2])
	require.IsType(t, imap.AppendFinish{}, events[3])
}

func TestAppendCatenate(t *testing.T) {
	input := "a APPEND Drafts CATENATE (URL \"/m/1\" TEXT {5+}\r\nhello URL \"/m/2\")\r\n"
	events := feedCommands(t, input)

	require.IsType(t, imap.AppendStart{}, events[0])
	require.IsType(t, imap.AppendBeginCatenate{}, events[1])
	require.Equal(t, "/m/1", events[2].(imap.AppendCatenateURL).URL)
	require.Equal(t, int64(5), events[3].(imap.AppendCatenateDataBegin).Size)
	require.Equal(t, "hello", string(events[4].(imap.AppendCatenateDataBytes).Chunk))
	require.IsType(t, imap.AppendCatenateDataEnd{}, events[5])
	require.Equal(t, "/m/2", events[6].(imap.AppendCatenateURL).URL)
	require.IsType(t, imap.AppendEndCatenate{}, events[7])
	require.IsType(t, imap.AppendFinish{}, events[8])
	require.Len(t, events, 9)
}

func TestIdleRoundTrip(t *testing.T) {
	events := feedCommands(t, "1 NOOP\r\n2 IDLE\r\nDONE\r\n3 NOOP\r\n")
	require.Len(t, events, 4)
	require.Equal(t, "1", events[0].(*imap.Command).Tag)
	require.Equal(t, "2", events[1].(imap.IdleStart).Tag)
	require.IsType(t, imap.IdleDone{}, events[2])
	require.Equal(t, "3", events[3].(*imap.Command).Tag)
}

func TestIdleDoneCaseInsensitive(t *testing.T) {
	events := feedCommands(t, "2 IDLE\r\ndone\r\n")
	require.Len(t, events, 2)
	require.IsType(t, imap.IdleDone{}, events[1])
}

func TestCommandIncrementalFeed(t *testing.T) {
	inputs := []string{
		"1 NOOP\r\n",
		"2 LOGIN {0}\r\n {0}\r\n\r\n",
		"3 APPEND INBOX {3+}\r\n123 {3+}\r\n456\r\n",
		"1 NOOP\r\n2 IDLE\r\nDONE\r\n3 NOOP\r\n",
		"a APPEND Drafts CATENATE (URL u1 TEXT {3+}\r\nabc)\r\n",
		"4 UID FETCH 1:* (FLAGS UID)\r\n",
	}
	for _, input := range inputs {
		t.Run(input[:6], func(t *testing.T) {
			whole := feedCommands(t, input)

			p := NewCommandParser()
			var bytewise []imap.ClientEvent
			for i := 0; i < len(input); i++ {
				_, err := p.Write([]byte{input[i]})
				require.NoError(t, err)
				bytewise = append(bytewise, drainCommands(t, p)...)
			}

			normalize := func(evs []imap.ClientEvent) []imap.ClientEvent {
				var out []imap.ClientEvent
				for _, ev := range evs {
					switch e := ev.(type) {
					case imap.AppendMessageBytes:
						if len(out) > 0 {
							if prev, ok := out[len(out)-1].(imap.AppendMessageBytes); ok {
								prev.Chunk = append(append([]byte(nil), prev.Chunk...), e.Chunk...)
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
								prev.Chunk = append(append([]byte(nil), prev.Chunk...), e.Chunk...)
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

			require.Equal(t, normalize(whole), normalize(bytewise))
		})
	}
}

func TestCommandSelectQresync(t *testing.T) {
	events := feedCommands(t, "s SELECT INBOX (QRESYNC (67890007 20050715194045000 41,43:211))\r\n")
	cmd := events[0].(*imap.Command)
	require.Equal(t, "SELECT", cmd.Name)
	require.NotNil(t, cmd.Select)
	q := cmd.Select.Qresync
	require.NotNil(t, q)
	require.Equal(t, uint32(67890007), q.UIDValidity)
	require.Equal(t, uint64(20050715194045000), q.ModSeq)
	require.Equal(t, []imap.NumRange{{Start: 41, Stop: 41}, {Start: 43, Stop: 211}}, q.UIDs.Set)
}

func TestCommandStoreUnchangedSince(t *testing.T) {
	events := feedCommands(t, "d STORE 50:60 (UNCHANGEDSINCE 320162338) +FLAGS.SILENT (\\Deleted)\r\n")
	cmd := events[0].(*imap.Command)
	require.Equal(t, imap.StoreAdd, cmd.Store.Mode)
	require.True(t, cmd.Store.Silent)
	require.Equal(t, uint64(320162338), cmd.Store.UnchangedSince)
	require.Equal(t, []imap.Flag{imap.FlagDeleted}, cmd.Store.Flags)
}

func TestCommandStoreBareFlags(t *testing.T) {
	events := feedCommands(t, "d STORE 2 -FLAGS \\Seen \\Answered\r\n")
	cmd := events[0].(*imap.Command)
	require.Equal(t, imap.StoreRemove, cmd.Store.Mode)
	require.Equal(t, []imap.Flag{imap.FlagSeen, imap.FlagAnswered}, cmd.Store.Flags)
}

func TestCommandUIDPrefix(t *testing.T) {
	events := feedCommands(t, "u UID COPY 2:4 Archive\r\nv UID EXPUNGE 5\r\n")
	require.Len(t, events, 2)
	cp := events[0].(*imap.Command)
	require.True(t, cp.UID)
	require.Equal(t, "COPY", cp.Name)
	require.Equal(t, "Archive", cp.Mailbox)
	ex := events[1].(*imap.Command)
	require.True(t, ex.UID)
	require.Equal(t, "EXPUNGE", ex.Name)
	require.Equal(t, []imap.NumRange{{Start: 5, Stop: 5}}, ex.Sequences.Set)
}

func TestCommandSearchProgram(t *testing.T) {
	events := feedCommands(t, "s SEARCH RETURN (MIN COUNT) CHARSET UTF-8 UNSEEN SINCE 1-Feb-1994\r\n")
	cmd := events[0].(*imap.Command)
	require.Equal(t, []string{"MIN", "COUNT"}, cmd.Search.Options.Return)
	require.Equal(t, "UTF-8", cmd.Search.Options.Charset)
	require.Equal(t, "AND", cmd.Search.Key.Op)
	require.Equal(t, "UNSEEN", cmd.Search.Key.Children[0].Op)
	require.Equal(t, "SINCE", cmd.Search.Key.Children[1].Op)
}

func TestCommandSearchRes(t *testing.T) {
	events := feedCommands(t, "f UID FETCH $ (UID)\r\n")
	cmd := events[0].(*imap.Command)
	require.True(t, cmd.Sequences.SearchRes)
}

func TestCommandListExtended(t *testing.T) {
	events := feedCommands(t, `l LIST (SUBSCRIBED REMOTE) "" ("INBOX" "Sent/%") RETURN (CHILDREN STATUS (MESSAGES UNSEEN))` + "\r\n")
	cmd := events[0].(*imap.Command)
	lp := cmd.List
	require.Equal(t, []string{"SUBSCRIBED", "REMOTE"}, lp.SelectOptions)
	require.Equal(t, []string{"INBOX", "Sent/%"}, lp.Patterns)
	require.Equal(t, []string{"CHILDREN", "STATUS"}, lp.ReturnOptions)
	require.Equal(t, []string{"MESSAGES", "UNSEEN"}, lp.ReturnStatus)
}

func TestCommandEnableAndID(t *testing.T) {
	events := feedCommands(t, "e ENABLE QRESYNC CONDSTORE\r\ni ID (\"name\" \"mutt\" \"version\" NIL)\r\n")
	require.Len(t, events, 2)
	require.Equal(t, []string{"QRESYNC", "CONDSTORE"}, events[0].(*imap.Command).Enable)
	id := events[1].(*imap.Command).ID
	require.Len(t, id.Fields, 2)
	require.Equal(t, "name", id.Fields[0].Key)
	require.Equal(t, "mutt", *id.Fields[0].Value)
	require.Nil(t, id.Fields[1].Value)
}

func TestCommandMetadata(t *testing.T) {
	events := feedCommands(t, "m GETMETADATA (MAXSIZE 1024) INBOX (/shared/comment /private/comment)\r\n"+
		"n SETMETADATA INBOX (/shared/comment \"my comment\")\r\n")
	require.Len(t, events, 2)
	get := events[0].(*imap.Command).Metadata
	require.Equal(t, []string{"MAXSIZE", "1024"}, get.Options)
	require.Equal(t, "INBOX", get.Mailbox)
	require.Len(t, get.Entries, 2)
	set := events[1].(*imap.Command).Metadata
	require.Equal(t, "/shared/comment", set.Entries[0].Name)
	require.Equal(t, []byte("my comment"), set.Entries[0].Value)
}

func TestCommandLineTooLong(t *testing.T) {
	lim := DefaultLimits()
	lim.Line = 64
	p := NewCommandParser(WithLimits(lim))

	junk := make([]byte, 200)
	for i := range junk {
		junk[i] = 'a'
	}
	_, err := p.Write(junk)
	require.NoError(t, err)

	_, err = p.Next()
	var le *imap.LimitError
	require.ErrorAs(t, err, &le)
	require.Equal(t, imap.LimitLine, le.Kind)

	// The parser stays dead.
	_, err = p.Next()
	require.ErrorAs(t, err, &le)
	_, err = p.Write([]byte("x"))
	require.Error(t, err)
}

func TestCommandBufferedLiteralBypassesLineLimit(t *testing.T) {
	lim := DefaultLimits()
	lim.Line = 64
	p := NewCommandParser(WithLimits(lim))

	payload := make([]byte, 200)
	for i := range payload {
		payload[i] = 'x'
	}

	_, err := p.Write([]byte("a LOGIN {200}\r\n"))
	require.NoError(t, err)
	_, err = p.Write(payload[:100])
	require.NoError(t, err)

	// Waiting on literal payload: not a line limit violation.
	_, err = p.Next()
	require.ErrorIs(t, err, imap.ErrIncomplete)

	_, err = p.Write(payload[100:])
	require.NoError(t, err)
	_, err = p.Write([]byte(" pass\r\n"))
	require.NoError(t, err)

	ev, err := p.Next()
	require.NoError(t, err)
	cmd := ev.(*imap.Command)
	require.Equal(t, string(payload), cmd.Auth.Username)
	require.Equal(t, "pass", cmd.Auth.Password)
}

func TestCommandLiteralSizeLimit(t *testing.T) {
	lim := DefaultLimits()
	lim.LiteralSize = 8
	p := NewCommandParser(WithLimits(lim))
	_, err := p.Write([]byte("a LOGIN {100+}\r\n"))
	require.NoError(t, err)

	_, err = p.Next()
	var le *imap.LimitError
	require.ErrorAs(t, err, &le)
	require.Equal(t, imap.LimitLiteralSize, le.Kind)
}

func TestCommandDepthLimit(t *testing.T) {
	input := "a SEARCH "
	for i := 0; i < 60; i++ {
		input += "NOT "
	}
	input += "SEEN\r\n"

	p := NewCommandParser()
	_, err := p.Write([]byte(input))
	require.NoError(t, err)

	_, err = p.Next()
	var le *imap.LimitError
	require.ErrorAs(t, err, &le)
	require.Equal(t, imap.LimitDepth, le.Kind)
}

func TestCommandParseErrorAndResync(t *testing.T) {
	p := NewCommandParser()
	_, err := p.Write([]byte("a1 BOGUS stuff\r\na2 NOOP\r\n"))
	require.NoError(t, err)

	_, err = p.Next()
	var pe *imap.ParseError
	require.ErrorAs(t, err, &pe)

	// Without resync the error repeats.
	_, err = p.Next()
	require.ErrorAs(t, err, &pe)

	p.Resync()
	ev, err := p.Next()
	require.NoError(t, err)
	require.Equal(t, "a2", ev.(*imap.Command).Tag)
}

func TestCommandReversibilityOnIncompleteLine(t *testing.T) {
	p := NewCommandParser()
	_, err := p.Write([]byte("a1 FETCH 1:5 (FLA"))
	require.NoError(t, err)

	_, err = p.Next()
	require.ErrorIs(t, err, imap.ErrIncomplete)
	require.Equal(t, len("a1 FETCH 1:5 (FLA"), p.Buffered())

	_, err = p.Write([]byte("GS)\r\n"))
	require.NoError(t, err)
	ev, err := p.Next()
	require.NoError(t, err)
	require.Equal(t, "FETCH", ev.(*imap.Command).Name)
	require.Zero(t, p.Buffered())
}
