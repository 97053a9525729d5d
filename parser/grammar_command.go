package parser

import (
	"strconv"
	"strings"

	"github.com/emiago/imapgo/imap"
	"github.com/emiago/imapgo/imap/utf7"
)

// readCommandBody fills cmd according to cmd.Name, leaving the cursor at
// the line break. APPEND and IDLE never reach this dispatch; the stream
// state machine owns them.
func readCommandBody(r *reader, cmd *imap.Command) error {
	switch cmd.Name {
	case "CAPABILITY", "NOOP", "LOGOUT", "STARTTLS", "CHECK", "CLOSE",
		"UNSELECT", "NAMESPACE":
		return nil

	case "EXPUNGE":
		if !cmd.UID {
			return nil
		}
		if err := space(r); err != nil {
			return err
		}
		seq, err := readSeqSet(r)
		if err != nil {
			return err
		}
		cmd.Sequences = seq
		return nil

	case "LOGIN":
		if err := space(r); err != nil {
			return err
		}
		user, err := readAString(r)
		if err != nil {
			return err
		}
		if err := space(r); err != nil {
			return err
		}
		pass, err := readAString(r)
		if err != nil {
			return err
		}
		cmd.Auth = &imap.AuthParams{Username: user, Password: pass}
		return nil

	case "AUTHENTICATE":
		if err := space(r); err != nil {
			return err
		}
		mech, err := readAtom(r)
		if err != nil {
			return err
		}
		auth := &imap.AuthParams{Mechanism: strings.ToUpper(mech)}
		cmd.Auth = auth
		_, err = optional(r, func(r *reader) error {
			if err := space(r); err != nil {
				return err
			}
			b, err := r.peekByte()
			if err != nil {
				return err
			}
			if b == '=' {
				r.consume(1)
				auth.InitialResponse = []byte{}
				return nil
			}
			data, err := readBase64(r)
			if err != nil {
				return err
			}
			auth.InitialResponse = data
			return nil
		})
		return err

	case "SELECT", "EXAMINE":
		if err := space(r); err != nil {
			return err
		}
		mbox, err := readMailbox(r)
		if err != nil {
			return err
		}
		cmd.Mailbox = mbox
		_, err = optional(r, func(r *reader) error {
			if err := space(r); err != nil {
				return err
			}
			sel, err := readSelectParams(r)
			if err != nil {
				return err
			}
			cmd.Select = sel
			return nil
		})
		return err

	case "CREATE":
		if err := space(r); err != nil {
			return err
		}
		mbox, err := readMailbox(r)
		if err != nil {
			return err
		}
		cmd.Mailbox = mbox
		_, err = optional(r, func(r *reader) error {
			if err := space(r); err != nil {
				return err
			}
			cp, err := readCreateParams(r)
			if err != nil {
				return err
			}
			cmd.Create = cp
			return nil
		})
		return err

	case "DELETE", "SUBSCRIBE", "UNSUBSCRIBE", "GETQUOTAROOT":
		if err := space(r); err != nil {
			return err
		}
		mbox, err := readMailbox(r)
		if err != nil {
			return err
		}
		cmd.Mailbox = mbox
		return nil

	case "RENAME":
		if err := space(r); err != nil {
			return err
		}
		from, err := readMailbox(r)
		if err != nil {
			return err
		}
		if err := space(r); err != nil {
			return err
		}
		to, err := readMailbox(r)
		if err != nil {
			return err
		}
		cmd.Rename = &imap.RenameParams{Existing: from, New: to}
		return nil

	case "LIST":
		return readListArgs(r, cmd, false)
	case "LSUB":
		return readListArgs(r, cmd, true)

	case "STATUS":
		if err := space(r); err != nil {
			return err
		}
		mbox, err := readMailbox(r)
		if err != nil {
			return err
		}
		cmd.Mailbox = mbox
		if err := space(r); err != nil {
			return err
		}
		items, err := readParenAtoms(r)
		if err != nil {
			return err
		}
		cmd.Status = &imap.StatusParams{Items: items}
		return nil

	case "FETCH":
		if err := space(r); err != nil {
			return err
		}
		seq, err := readSeqSet(r)
		if err != nil {
			return err
		}
		cmd.Sequences = seq
		if err := space(r); err != nil {
			return err
		}
		items, err := readFetchItems(r)
		if err != nil {
			return err
		}
		params := &imap.FetchParams{Items: items}
		cmd.Fetch = params
		_, err = optional(r, func(r *reader) error {
			if err := space(r); err != nil {
				return err
			}
			return readFetchModifiers(r, params)
		})
		return err

	case "STORE":
		return readStoreArgs(r, cmd)

	case "SEARCH":
		if err := space(r); err != nil {
			return err
		}
		params, err := readSearchProgram(r)
		if err != nil {
			return err
		}
		cmd.Search = params
		return nil

	case "COPY", "MOVE":
		if err := space(r); err != nil {
			return err
		}
		seq, err := readSeqSet(r)
		if err != nil {
			return err
		}
		if err := space(r); err != nil {
			return err
		}
		mbox, err := readMailbox(r)
		if err != nil {
			return err
		}
		cmd.Sequences = seq
		cmd.Mailbox = mbox
		return nil

	case "ENABLE":
		for {
			if err := space(r); err != nil {
				return err
			}
			cap, err := readCapability(r)
			if err != nil {
				return err
			}
			cmd.Enable = append(cmd.Enable, strings.ToUpper(cap))
			b, err := r.peekByte()
			if err != nil {
				return imap.ErrIncomplete
			}
			if b != ' ' {
				return nil
			}
		}

	case "ID":
		if err := space(r); err != nil {
			return err
		}
		fields, err := readIDParams(r)
		if err != nil {
			return err
		}
		cmd.ID = fields
		return nil

	case "GETQUOTA":
		if err := space(r); err != nil {
			return err
		}
		root, err := readAString(r)
		if err != nil {
			return err
		}
		cmd.Quota = &imap.QuotaParams{Root: root}
		return nil

	case "SETQUOTA":
		return readSetQuotaArgs(r, cmd)

	case "GETMETADATA":
		return readGetMetadataArgs(r, cmd)
	case "SETMETADATA":
		return readSetMetadataArgs(r, cmd)

	case "GENURLAUTH":
		ua := &imap.URLAuthParams{}
		cmd.URLAuth = ua
		for {
			if err := space(r); err != nil {
				return err
			}
			url, err := readAString(r)
			if err != nil {
				return err
			}
			if err := space(r); err != nil {
				return err
			}
			mech, err := readAtom(r)
			if err != nil {
				return err
			}
			ua.URLs = append(ua.URLs, imap.URLAuthItem{URL: url, Mechanism: strings.ToUpper(mech)})
			b, err := r.peekByte()
			if err != nil {
				return imap.ErrIncomplete
			}
			if b != ' ' {
				return nil
			}
		}

	case "URLFETCH":
		ua := &imap.URLAuthParams{}
		cmd.URLAuth = ua
		for {
			if err := space(r); err != nil {
				return err
			}
			url, err := readAString(r)
			if err != nil {
				return err
			}
			ua.URLs = append(ua.URLs, imap.URLAuthItem{URL: url})
			b, err := r.peekByte()
			if err != nil {
				return imap.ErrIncomplete
			}
			if b != ' ' {
				return nil
			}
		}

	case "RESETKEY":
		ua := &imap.URLAuthParams{}
		cmd.URLAuth = ua
		_, err := optional(r, func(r *reader) error {
			if err := space(r); err != nil {
				return err
			}
			mbox, err := readMailbox(r)
			if err != nil {
				return err
			}
			ua.Mailbox = mbox
			for {
				b, err := r.peekByte()
				if err != nil {
					return imap.ErrIncomplete
				}
				if b != ' ' {
					return nil
				}
				if err := space(r); err != nil {
					return err
				}
				mech, err := readAtom(r)
				if err != nil {
					return err
				}
				ua.Mechanisms = append(ua.Mechanisms, strings.ToUpper(mech))
			}
		})
		return err

	default:
		return r.errParse("unknown command " + cmd.Name)
	}
}

// readSelectParams parses the SELECT/EXAMINE parameter list:
// "(CONDSTORE)" or "(QRESYNC (uidvalidity modseq [known-uids
// [(seq-match uid-match)]]))", possibly combined.
func readSelectParams(r *reader) (*imap.SelectParams, error) {
	m := r.mark()
	if err := expectByte(r, '('); err != nil {
		return nil, err
	}
	sel := &imap.SelectParams{}
	for {
		b, err := r.peekByte()
		if err != nil {
			r.restore(m)
			return nil, imap.ErrIncomplete
		}
		if b == ')' {
			r.consume(1)
			return sel, nil
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
		switch strings.ToUpper(name) {
		case "CONDSTORE":
			sel.Condstore = true
		case "QRESYNC":
			if err := space(r); err != nil {
				r.restore(m)
				return nil, err
			}
			q, err := readQresyncParams(r)
			if err != nil {
				r.restore(m)
				return nil, err
			}
			sel.Qresync = q
		default:
			r.restore(m)
			return nil, r.errParse("unknown select parameter")
		}
	}
}

func readQresyncParams(r *reader) (*imap.QresyncParams, error) {
	m := r.mark()
	fail := func(err error) (*imap.QresyncParams, error) {
		r.restore(m)
		return nil, err
	}

	if err := expectByte(r, '('); err != nil {
		return nil, err
	}
	q := &imap.QresyncParams{}

	uv, err := readNzNumber(r)
	if err != nil {
		return fail(err)
	}
	q.UIDValidity = uv
	if err := space(r); err != nil {
		return fail(err)
	}
	ms, err := readNumber64(r)
	if err != nil {
		return fail(err)
	}
	q.ModSeq = ms

	b, err := r.peekByte()
	if err != nil {
		return fail(imap.ErrIncomplete)
	}
	if b == ' ' {
		r.consume(1)
		b, err = r.peekByte()
		if err != nil {
			return fail(imap.ErrIncomplete)
		}
		if b != '(' {
			uids, err := readSeqSet(r)
			if err != nil {
				return fail(err)
			}
			q.UIDs = uids
			b, err = r.peekByte()
			if err != nil {
				return fail(imap.ErrIncomplete)
			}
			if b == ' ' {
				r.consume(1)
				b, err = r.peekByte()
				if err != nil {
					return fail(imap.ErrIncomplete)
				}
			}
		}
		if b == '(' {
			r.consume(1)
			seqMatch, err := readSeqSet(r)
			if err != nil {
				return fail(err)
			}
			if err := space(r); err != nil {
				return fail(err)
			}
			uidMatch, err := readSeqSet(r)
			if err != nil {
				return fail(err)
			}
			if err := expectByte(r, ')'); err != nil {
				return fail(err)
			}
			q.KnownSeqMatch = seqMatch
			q.KnownUIDMatch = uidMatch
		}
	}

	if err := expectByte(r, ')'); err != nil {
		return fail(err)
	}
	return q, nil
}

// readCreateParams parses "(USE (attrs...))" (RFC 6154).
func readCreateParams(r *reader) (*imap.CreateParams, error) {
	m := r.mark()
	fail := func(err error) (*imap.CreateParams, error) {
		r.restore(m)
		return nil, err
	}

	if err := expectByte(r, '('); err != nil {
		return nil, err
	}
	if err := matchKeyword(r, "USE"); err != nil {
		return fail(err)
	}
	if err := space(r); err != nil {
		return fail(err)
	}
	flags, err := readFlagList(r)
	if err != nil {
		return fail(err)
	}
	if err := expectByte(r, ')'); err != nil {
		return fail(err)
	}
	cp := &imap.CreateParams{}
	for _, f := range flags {
		cp.SpecialUse = append(cp.SpecialUse, imap.MailboxAttr(f))
	}
	return cp, nil
}

// readParenAtoms parses "(" atom *(SP atom) ")", upper-casing each atom.
func readParenAtoms(r *reader) ([]string, error) {
	m := r.mark()
	if err := expectByte(r, '('); err != nil {
		return nil, err
	}
	var out []string
	for {
		b, err := r.peekByte()
		if err != nil {
			r.restore(m)
			return nil, imap.ErrIncomplete
		}
		if b == ')' {
			r.consume(1)
			return out, nil
		}
		if b == ' ' {
			r.consume(1)
			continue
		}
		a, err := readAtom(r)
		if err != nil {
			r.restore(m)
			return nil, err
		}
		out = append(out, strings.ToUpper(a))
	}
}

// readListArgs parses LIST and LSUB arguments, including LIST-EXTENDED
// select options, pattern lists and RETURN options.
func readListArgs(r *reader, cmd *imap.Command, lsub bool) error {
	if err := space(r); err != nil {
		return err
	}
	lp := &imap.ListParams{}
	cmd.List = lp

	if !lsub {
		b, err := r.peekByte()
		if err != nil {
			return err
		}
		if b == '(' {
			opts, err := readParenAtoms(r)
			if err != nil {
				return err
			}
			lp.SelectOptions = opts
			if err := space(r); err != nil {
				return err
			}
		}
	}

	ref, err := readMailbox(r)
	if err != nil {
		return err
	}
	lp.Reference = ref
	if err := space(r); err != nil {
		return err
	}

	b, err := r.peekByte()
	if err != nil {
		return err
	}
	if b == '(' && !lsub {
		m := r.mark()
		r.consume(1)
		for {
			b, err := r.peekByte()
			if err != nil {
				r.restore(m)
				return imap.ErrIncomplete
			}
			if b == ')' {
				r.consume(1)
				break
			}
			if b == ' ' {
				r.consume(1)
				continue
			}
			pat, err := readMailbox(r)
			if err != nil {
				r.restore(m)
				return err
			}
			lp.Patterns = append(lp.Patterns, pat)
		}
		if len(lp.Patterns) == 0 {
			return r.errParse("empty pattern list")
		}
	} else {
		pat, err := readMailbox(r)
		if err != nil {
			return err
		}
		lp.Patterns = []string{pat}
	}

	if lsub {
		return nil
	}
	_, err = optional(r, func(r *reader) error {
		if err := space(r); err != nil {
			return err
		}
		if err := matchKeyword(r, "RETURN"); err != nil {
			return err
		}
		if err := space(r); err != nil {
			return err
		}
		return readListReturnOpts(r, lp)
	})
	return err
}

func readListReturnOpts(r *reader, lp *imap.ListParams) error {
	m := r.mark()
	if err := expectByte(r, '('); err != nil {
		return err
	}
	for {
		b, err := r.peekByte()
		if err != nil {
			r.restore(m)
			return imap.ErrIncomplete
		}
		if b == ')' {
			r.consume(1)
			return nil
		}
		if b == ' ' {
			r.consume(1)
			continue
		}
		name, err := readAtom(r)
		if err != nil {
			r.restore(m)
			return err
		}
		opt := strings.ToUpper(name)
		lp.ReturnOptions = append(lp.ReturnOptions, opt)
		if opt == "STATUS" {
			if err := space(r); err != nil {
				r.restore(m)
				return err
			}
			items, err := readParenAtoms(r)
			if err != nil {
				r.restore(m)
				return err
			}
			lp.ReturnStatus = items
		}
	}
}

// readStoreArgs parses STORE arguments: sequence set, optional
// "(UNCHANGEDSINCE n)", the mode keyword and the flags.
func readStoreArgs(r *reader, cmd *imap.Command) error {
	if err := space(r); err != nil {
		return err
	}
	seq, err := readSeqSet(r)
	if err != nil {
		return err
	}
	cmd.Sequences = seq
	if err := space(r); err != nil {
		return err
	}

	sp := &imap.StoreParams{}
	cmd.Store = sp

	b, err := r.peekByte()
	if err != nil {
		return err
	}
	if b == '(' {
		m := r.mark()
		r.consume(1)
		if err := matchKeyword(r, "UNCHANGEDSINCE"); err != nil {
			r.restore(m)
			return err
		}
		if err := space(r); err != nil {
			r.restore(m)
			return err
		}
		n, err := readNumber64(r)
		if err != nil {
			r.restore(m)
			return err
		}
		sp.UnchangedSince = n
		if err := expectByte(r, ')'); err != nil {
			r.restore(m)
			return err
		}
		if err := space(r); err != nil {
			r.restore(m)
			return err
		}
		b, err = r.peekByte()
		if err != nil {
			return imap.ErrIncomplete
		}
	}

	switch b {
	case '+':
		sp.Mode = imap.StoreAdd
		r.consume(1)
	case '-':
		sp.Mode = imap.StoreRemove
		r.consume(1)
	default:
		sp.Mode = imap.StoreReplace
	}

	name, err := readAtomFunc(r, func(b byte) bool {
		return b >= 'A' && b <= 'Z' || b >= 'a' && b <= 'z' || b == '.'
	})
	if err != nil {
		return err
	}
	switch strings.ToUpper(name) {
	case "FLAGS":
	case "FLAGS.SILENT":
		sp.Silent = true
	default:
		return r.errParse("expected FLAGS")
	}
	if err := space(r); err != nil {
		return err
	}

	b, err = r.peekByte()
	if err != nil {
		return err
	}
	if b == '(' {
		flags, err := readFlagList(r)
		if err != nil {
			return err
		}
		sp.Flags = flags
		return nil
	}
	for {
		f, err := readFlag(r)
		if err != nil {
			return err
		}
		sp.Flags = append(sp.Flags, f)
		b, err := r.peekByte()
		if err != nil {
			return imap.ErrIncomplete
		}
		if b != ' ' {
			return nil
		}
		r.consume(1)
	}
}

// readIDParams parses the ID argument: NIL or "(" key value ... ")".
// Values carrying modified UTF-7 shift sequences are decoded; malformed
// sequences pass through verbatim.
func readIDParams(r *reader) (*imap.IDParams, error) {
	if err := matchKeyword(r, "NIL"); err == nil {
		return &imap.IDParams{}, nil
	} else if err == imap.ErrIncomplete {
		return nil, err
	}

	m := r.mark()
	if err := expectByte(r, '('); err != nil {
		return nil, err
	}
	params := &imap.IDParams{}
	for {
		b, err := r.peekByte()
		if err != nil {
			r.restore(m)
			return nil, imap.ErrIncomplete
		}
		if b == ')' {
			r.consume(1)
			return params, nil
		}
		if b == ' ' {
			r.consume(1)
			continue
		}
		key, err := readString(r)
		if err != nil {
			r.restore(m)
			return nil, err
		}
		if err := space(r); err != nil {
			r.restore(m)
			return nil, err
		}
		val, present, err := readNString(r)
		if err != nil {
			r.restore(m)
			return nil, err
		}
		field := imap.IDField{Key: key}
		if present {
			v := utf7.Decode(val)
			field.Value = &v
		}
		params.Fields = append(params.Fields, field)
	}
}

func readSetQuotaArgs(r *reader, cmd *imap.Command) error {
	if err := space(r); err != nil {
		return err
	}
	root, err := readAString(r)
	if err != nil {
		return err
	}
	qp := &imap.QuotaParams{Root: root}
	cmd.Quota = qp
	if err := space(r); err != nil {
		return err
	}
	m := r.mark()
	if err := expectByte(r, '('); err != nil {
		return err
	}
	for {
		b, err := r.peekByte()
		if err != nil {
			r.restore(m)
			return imap.ErrIncomplete
		}
		if b == ')' {
			r.consume(1)
			return nil
		}
		if b == ' ' {
			r.consume(1)
			continue
		}
		name, err := readAtom(r)
		if err != nil {
			r.restore(m)
			return err
		}
		if err := space(r); err != nil {
			r.restore(m)
			return err
		}
		limit, err := readNumber64(r)
		if err != nil {
			r.restore(m)
			return err
		}
		qp.Resources = append(qp.Resources, imap.QuotaResource{
			Name:  strings.ToUpper(name),
			Limit: int64(limit),
		})
	}
}

// readGetMetadataArgs parses GETMETADATA [options] mailbox entries
// (RFC 5464).
func readGetMetadataArgs(r *reader, cmd *imap.Command) error {
	if err := space(r); err != nil {
		return err
	}
	mp := &imap.MetadataParams{}
	cmd.Metadata = mp

	b, err := r.peekByte()
	if err != nil {
		return err
	}
	if b == '(' {
		opts, err := readMetadataOptions(r)
		if err != nil {
			return err
		}
		mp.Options = opts
		if err := space(r); err != nil {
			return err
		}
	}

	mbox, err := readMailbox(r)
	if err != nil {
		return err
	}
	mp.Mailbox = mbox
	if err := space(r); err != nil {
		return err
	}

	b, err = r.peekByte()
	if err != nil {
		return err
	}
	if b == '(' {
		m := r.mark()
		r.consume(1)
		for {
			b, err := r.peekByte()
			if err != nil {
				r.restore(m)
				return imap.ErrIncomplete
			}
			if b == ')' {
				r.consume(1)
				return nil
			}
			if b == ' ' {
				r.consume(1)
				continue
			}
			entry, err := readAString(r)
			if err != nil {
				r.restore(m)
				return err
			}
			mp.Entries = append(mp.Entries, imap.MetadataEntry{Name: entry})
		}
	}
	entry, err := readAString(r)
	if err != nil {
		return err
	}
	mp.Entries = append(mp.Entries, imap.MetadataEntry{Name: entry})
	return nil
}

func readMetadataOptions(r *reader) ([]string, error) {
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
		opt := strings.ToUpper(name)
		switch opt {
		case "MAXSIZE":
			if err := space(r); err != nil {
				r.restore(m)
				return nil, err
			}
			n, err := readNumber64(r)
			if err != nil {
				r.restore(m)
				return nil, err
			}
			opts = append(opts, opt, strconv.FormatUint(n, 10))
		case "DEPTH":
			if err := space(r); err != nil {
				r.restore(m)
				return nil, err
			}
			d, err := readAtom(r)
			if err != nil {
				r.restore(m)
				return nil, err
			}
			opts = append(opts, opt, strings.ToLower(d))
		default:
			r.restore(m)
			return nil, r.errParse("unknown metadata option")
		}
	}
}

// readSetMetadataArgs parses SETMETADATA mailbox "(" entry value ... ")".
func readSetMetadataArgs(r *reader, cmd *imap.Command) error {
	if err := space(r); err != nil {
		return err
	}
	mbox, err := readMailbox(r)
	if err != nil {
		return err
	}
	mp := &imap.MetadataParams{Mailbox: mbox}
	cmd.Metadata = mp
	if err := space(r); err != nil {
		return err
	}
	m := r.mark()
	if err := expectByte(r, '('); err != nil {
		return err
	}
	for {
		b, err := r.peekByte()
		if err != nil {
			r.restore(m)
			return imap.ErrIncomplete
		}
		if b == ')' {
			r.consume(1)
			return nil
		}
		if b == ' ' {
			r.consume(1)
			continue
		}
		name, err := readAString(r)
		if err != nil {
			r.restore(m)
			return err
		}
		if err := space(r); err != nil {
			r.restore(m)
			return err
		}
		val, present, err := readNString(r)
		if err != nil {
			r.restore(m)
			return err
		}
		entry := imap.MetadataEntry{Name: name}
		if present {
			entry.Value = []byte(val)
		}
		mp.Entries = append(mp.Entries, entry)
	}
}
