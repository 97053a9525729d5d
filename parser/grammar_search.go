package parser

import (
	"strings"

	"github.com/emiago/imapgo/imap"
)

// readSearchProgram parses the SEARCH arguments: optional RETURN options,
// optional CHARSET, then one or more keys combined as an implicit AND.
func readSearchProgram(r *reader) (*imap.SearchParams, error) {
	m := r.mark()
	params := &imap.SearchParams{}

	if err := matchKeyword(r, "RETURN"); err == nil {
		if err := space(r); err != nil {
			r.restore(m)
			return nil, err
		}
		opts, err := readSearchReturnOpts(r)
		if err != nil {
			r.restore(m)
			return nil, err
		}
		params.Options.Return = opts
		if err := space(r); err != nil {
			r.restore(m)
			return nil, err
		}
	} else if err == imap.ErrIncomplete {
		return nil, err
	}

	if err := matchKeyword(r, "CHARSET"); err == nil {
		if err := space(r); err != nil {
			r.restore(m)
			return nil, err
		}
		cs, err := readAString(r)
		if err != nil {
			r.restore(m)
			return nil, err
		}
		params.Options.Charset = cs
		if err := space(r); err != nil {
			r.restore(m)
			return nil, err
		}
	} else if err == imap.ErrIncomplete {
		return nil, err
	}

	keys, err := readSearchKeyList(r)
	if err != nil {
		r.restore(m)
		return nil, err
	}
	if len(keys) == 1 {
		params.Key = keys[0]
	} else {
		params.Key = &imap.SearchKey{Op: "AND", Children: keys}
	}
	return params, nil
}

func readSearchReturnOpts(r *reader) ([]string, error) {
	m := r.mark()
	if err := expectByte(r, '('); err != nil {
		return nil, err
	}
	var opts []string
	for {
		b, err := r.peekByte()
		if err != nil {
			r.restore(m)
			return nil, imap.ErrIncomplete
		}
		if b == ')' {
			r.consume(1)
			return opts, nil
		}
		if b == ' ' {
			r.consume(1)
			continue
		}
		name, err := readAtom(r)
		if err != nil {
			r.restore(m)
			return nil, err
		}
		opts = append(opts, strings.ToUpper(name))
	}
}

// readSearchKeyList parses SP separated keys until the line break or a
// closing parenthesis.
func readSearchKeyList(r *reader) ([]*imap.SearchKey, error) {
	m := r.mark()
	var keys []*imap.SearchKey
	for {
		key, err := readSearchKey(r)
		if err != nil {
			r.restore(m)
			return nil, err
		}
		keys = append(keys, key)

		b, err := r.peekByte()
		if err != nil {
			r.restore(m)
			return nil, imap.ErrIncomplete
		}
		if b != ' ' {
			return keys, nil
		}
		// Peek past the space: a ')' or CRLF ends the list.
		if b2, err := r.peek(2); err != nil {
			r.restore(m)
			return nil, imap.ErrIncomplete
		} else if b2[1] == ')' || b2[1] == '\r' || b2[1] == '\n' {
			return keys, nil
		}
		r.consume(1)
	}
}

// readSearchKey parses one search key. Parenthesised groups recurse and
// count against the depth budget.
func readSearchKey(r *reader) (*imap.SearchKey, error) {
	if err := r.enter(); err != nil {
		return nil, err
	}
	defer r.exit()

	m := r.mark()
	b, err := r.peekByte()
	if err != nil {
		return nil, err
	}

	if b == '(' {
		r.consume(1)
		keys, err := readSearchKeyList(r)
		if err != nil {
			r.restore(m)
			return nil, err
		}
		if err := expectByte(r, ')'); err != nil {
			r.restore(m)
			return nil, err
		}
		if len(keys) == 1 {
			return keys[0], nil
		}
		return &imap.SearchKey{Op: "AND", Children: keys}, nil
	}

	if b == '*' || b == '$' || isDigit(b) {
		seq, err := readSeqSet(r)
		if err != nil {
			r.restore(m)
			return nil, err
		}
		return &imap.SearchKey{Op: "SEQSET", Seq: seq}, nil
	}

	name, err := readAtom(r)
	if err != nil {
		return nil, err
	}
	op := strings.ToUpper(name)
	key := &imap.SearchKey{Op: op}

	arg := func() error { return space(r) }

	fail := func(err error) (*imap.SearchKey, error) {
		r.restore(m)
		return nil, err
	}

	switch op {
	case "ALL", "ANSWERED", "DELETED", "DRAFT", "FLAGGED", "NEW", "OLD",
		"RECENT", "SEEN", "UNANSWERED", "UNDELETED", "UNDRAFT",
		"UNFLAGGED", "UNSEEN":
		return key, nil

	case "BCC", "BODY", "CC", "FROM", "SUBJECT", "TEXT", "TO":
		if err := arg(); err != nil {
			return fail(err)
		}
		v, err := readAString(r)
		if err != nil {
			return fail(err)
		}
		key.Value = v
		return key, nil

	case "BEFORE", "ON", "SINCE", "SENTBEFORE", "SENTON", "SENTSINCE":
		if err := arg(); err != nil {
			return fail(err)
		}
		d, err := readDate(r)
		if err != nil {
			return fail(err)
		}
		key.Date = d
		return key, nil

	case "KEYWORD", "UNKEYWORD":
		if err := arg(); err != nil {
			return fail(err)
		}
		f, err := readFlag(r)
		if err != nil {
			return fail(err)
		}
		key.Flag = f
		return key, nil

	case "LARGER", "SMALLER":
		if err := arg(); err != nil {
			return fail(err)
		}
		n, err := readNumber(r)
		if err != nil {
			return fail(err)
		}
		key.Num = int64(n)
		return key, nil

	case "HEADER":
		if err := arg(); err != nil {
			return fail(err)
		}
		field, err := readAString(r)
		if err != nil {
			return fail(err)
		}
		if err := arg(); err != nil {
			return fail(err)
		}
		v, err := readAString(r)
		if err != nil {
			return fail(err)
		}
		key.Field = field
		key.Value = v
		return key, nil

	case "UID":
		if err := arg(); err != nil {
			return fail(err)
		}
		seq, err := readSeqSet(r)
		if err != nil {
			return fail(err)
		}
		key.Seq = seq
		return key, nil

	case "NOT":
		if err := arg(); err != nil {
			return fail(err)
		}
		inner, err := readSearchKey(r)
		if err != nil {
			return fail(err)
		}
		key.Children = []*imap.SearchKey{inner}
		return key, nil

	case "OR":
		if err := arg(); err != nil {
			return fail(err)
		}
		left, err := readSearchKey(r)
		if err != nil {
			return fail(err)
		}
		if err := arg(); err != nil {
			return fail(err)
		}
		right, err := readSearchKey(r)
		if err != nil {
			return fail(err)
		}
		key.Children = []*imap.SearchKey{left, right}
		return key, nil

	case "MODSEQ":
		// MODSEQ [<entry-name> <entry-type>] <mod-sequence> (RFC 7162).
		if err := arg(); err != nil {
			return fail(err)
		}
		b, err := r.peekByte()
		if err != nil {
			return fail(imap.ErrIncomplete)
		}
		if b == '"' {
			entry, err := readQuoted(r)
			if err != nil {
				return fail(err)
			}
			if err := arg(); err != nil {
				return fail(err)
			}
			typ, err := readAtom(r)
			if err != nil {
				return fail(err)
			}
			if err := arg(); err != nil {
				return fail(err)
			}
			key.Entry = entry
			key.EntryType = strings.ToUpper(typ)
		}
		n, err := readNumber64(r)
		if err != nil {
			return fail(err)
		}
		key.ModSeq = n
		return key, nil

	default:
		return fail(r.errParse("unknown search key"))
	}
}
