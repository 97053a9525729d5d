package parser

import (
	"strings"

	"github.com/emiago/imapgo/imap"
)

func statusTypeFromAtom(name string) (imap.StatusType, bool) {
	switch strings.ToUpper(name) {
	case "OK":
		return imap.StatusOK, true
	case "NO":
		return imap.StatusNo, true
	case "BAD":
		return imap.StatusBad, true
	case "BYE":
		return imap.StatusBye, true
	case "PREAUTH":
		return imap.StatusPreauth, true
	}
	return "", false
}

// readStatusResponseTail parses "SP resp-text CRLF" after a status atom.
func readStatusResponseTail(r *reader) (imap.RespText, error) {
	var rt imap.RespText
	b, err := r.peekByte()
	if err != nil {
		return rt, imap.ErrIncomplete
	}
	if b == ' ' {
		if err := space(r); err != nil {
			return rt, err
		}
		rt, err = readRespText(r)
		if err != nil {
			return rt, err
		}
	}
	if err := newline(r); err != nil {
		return rt, err
	}
	return rt, nil
}

// readUntaggedKeyword parses the payload of a keyword untagged response,
// consuming through the line break.
func readUntaggedKeyword(r *reader, name string) (imap.UntaggedData, error) {
	if st, ok := statusTypeFromAtom(name); ok {
		rt, err := readStatusResponseTail(r)
		if err != nil {
			return nil, err
		}
		return imap.UntaggedStatus{Status: st, Text: rt}, nil
	}

	switch strings.ToUpper(name) {
	case "CAPABILITY":
		caps, err := readCapabilityList(r)
		if err != nil {
			return nil, err
		}
		if err := newline(r); err != nil {
			return nil, err
		}
		return imap.CapabilityData{Caps: caps}, nil

	case "FLAGS":
		if err := space(r); err != nil {
			return nil, err
		}
		flags, err := readFlagList(r)
		if err != nil {
			return nil, err
		}
		if err := newline(r); err != nil {
			return nil, err
		}
		return imap.FlagsData{Flags: flags}, nil

	case "LIST":
		return readListResponse(r, false)
	case "LSUB":
		return readListResponse(r, true)

	case "STATUS":
		return readStatusResponse(r)

	case "SEARCH":
		return readSearchResponse(r)

	case "ESEARCH":
		return readESearchResponse(r)

	case "QUOTA":
		return readQuotaResponse(r)

	case "QUOTAROOT":
		return readQuotaRootResponse(r)

	case "NAMESPACE":
		return readNamespaceResponse(r)

	case "ID":
		return readIDResponse(r)

	case "ENABLED":
		caps, err := readCapabilityList(r)
		if err != nil {
			return nil, err
		}
		if err := newline(r); err != nil {
			return nil, err
		}
		return imap.EnabledData{Caps: caps}, nil

	case "METADATA":
		return readMetadataResponse(r)

	case "VANISHED":
		return readVanishedResponse(r)

	default:
		return nil, r.errParse("unknown untagged response " + name)
	}
}

// readCapabilityList reads *(SP capability) up to the line break.
func readCapabilityList(r *reader) ([]string, error) {
	var caps []string
	for {
		b, err := r.peekByte()
		if err != nil {
			return nil, imap.ErrIncomplete
		}
		if b != ' ' {
			return caps, nil
		}
		if err := space(r); err != nil {
			return nil, err
		}
		cap, err := readCapability(r)
		if err != nil {
			return nil, err
		}
		caps = append(caps, cap)
	}
}

// readListResponse parses "(attrs) SP delim SP mailbox [SP extensions]".
func readListResponse(r *reader, lsub bool) (imap.UntaggedData, error) {
	data := imap.ListData{Lsub: lsub}

	if err := space(r); err != nil {
		return nil, err
	}
	flags, err := readFlagList(r)
	if err != nil {
		return nil, err
	}
	for _, f := range flags {
		data.Attrs = append(data.Attrs, imap.MailboxAttr(f))
	}

	if err := space(r); err != nil {
		return nil, err
	}
	if err := matchKeyword(r, "NIL"); err == nil {
		// Flat namespace.
	} else if err == imap.ErrIncomplete {
		return nil, err
	} else {
		delim, err := readQuoted(r)
		if err != nil {
			return nil, err
		}
		if len(delim) != 1 {
			return nil, r.errParse("hierarchy delimiter must be one character")
		}
		data.Delim = delim[0]
	}

	if err := space(r); err != nil {
		return nil, err
	}
	mbox, err := readMailbox(r)
	if err != nil {
		return nil, err
	}
	data.Mailbox = mbox

	// LIST-EXTENDED extension data: ("CHILDINFO" ("SUBSCRIBED" ...)).
	b, err := r.peekByte()
	if err != nil {
		return nil, imap.ErrIncomplete
	}
	if b == ' ' {
		if err := space(r); err != nil {
			return nil, err
		}
		info, err := readChildInfo(r)
		if err != nil {
			return nil, err
		}
		data.ChildInfo = info
	}

	if err := newline(r); err != nil {
		return nil, err
	}
	return data, nil
}

func readChildInfo(r *reader) ([]string, error) {
	m := r.mark()
	if err := expectByte(r, '('); err != nil {
		return nil, err
	}
	if err := matchKeyword(r, "CHILDINFO"); err != nil {
		r.restore(m)
		return nil, err
	}
	if err := space(r); err != nil {
		r.restore(m)
		return nil, err
	}
	if err := expectByte(r, '('); err != nil {
		r.restore(m)
		return nil, err
	}
	var info []string
	for {
		b, err := r.peekByte()
		if err != nil {
			r.restore(m)
			return nil, imap.ErrIncomplete
		}
		if b == ')' {
			r.consume(1)
			break
		}
		if b == ' ' {
			r.consume(1)
			continue
		}
		s, err := readAString(r)
		if err != nil {
			r.restore(m)
			return nil, err
		}
		info = append(info, strings.ToUpper(s))
	}
	if err := expectByte(r, ')'); err != nil {
		r.restore(m)
		return nil, err
	}
	return info, nil
}

func readStatusResponse(r *reader) (imap.UntaggedData, error) {
	if err := space(r); err != nil {
		return nil, err
	}
	mbox, err := readMailbox(r)
	if err != nil {
		return nil, err
	}
	if err := space(r); err != nil {
		return nil, err
	}

	m := r.mark()
	if err := expectByte(r, '('); err != nil {
		return nil, err
	}
	data := imap.StatusData{Mailbox: mbox}
	for {
		b, err := r.peekByte()
		if err != nil {
			r.restore(m)
			return nil, imap.ErrIncomplete
		}
		if b == ')' {
			r.consume(1)
			break
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
		if err := space(r); err != nil {
			r.restore(m)
			return nil, err
		}
		n, err := readNumber64(r)
		if err != nil {
			r.restore(m)
			return nil, err
		}
		data.Items = append(data.Items, imap.StatusItem{
			Name:  strings.ToUpper(name),
			Value: n,
		})
	}
	if err := newline(r); err != nil {
		return nil, err
	}
	return data, nil
}

func readSearchResponse(r *reader) (imap.UntaggedData, error) {
	data := imap.SearchData{}
	for {
		b, err := r.peekByte()
		if err != nil {
			return nil, imap.ErrIncomplete
		}
		if b != ' ' {
			break
		}
		if err := space(r); err != nil {
			return nil, err
		}
		b, err = r.peekByte()
		if err != nil {
			return nil, imap.ErrIncomplete
		}
		if b == '(' {
			// (MODSEQ n) trailer from CONDSTORE.
			m := r.mark()
			r.consume(1)
			if err := matchKeyword(r, "MODSEQ"); err != nil {
				r.restore(m)
				return nil, err
			}
			if err := space(r); err != nil {
				r.restore(m)
				return nil, err
			}
			n, err := readNumber64(r)
			if err != nil {
				r.restore(m)
				return nil, err
			}
			if err := expectByte(r, ')'); err != nil {
				r.restore(m)
				return nil, err
			}
			data.ModSeq = n
			break
		}
		n, err := readNzNumber(r)
		if err != nil {
			return nil, err
		}
		data.Nums = append(data.Nums, n)
	}
	if err := newline(r); err != nil {
		return nil, err
	}
	return data, nil
}

func readESearchResponse(r *reader) (imap.UntaggedData, error) {
	data := imap.ESearchData{}
	for {
		b, err := r.peekByte()
		if err != nil {
			return nil, imap.ErrIncomplete
		}
		if b != ' ' {
			break
		}
		if err := space(r); err != nil {
			return nil, err
		}
		b, err = r.peekByte()
		if err != nil {
			return nil, imap.ErrIncomplete
		}
		if b == '(' {
			m := r.mark()
			r.consume(1)
			if err := matchKeyword(r, "TAG"); err != nil {
				r.restore(m)
				return nil, err
			}
			if err := space(r); err != nil {
				r.restore(m)
				return nil, err
			}
			tag, err := readAString(r)
			if err != nil {
				r.restore(m)
				return nil, err
			}
			if err := expectByte(r, ')'); err != nil {
				r.restore(m)
				return nil, err
			}
			data.Correlator = tag
			continue
		}

		name, err := readAtom(r)
		if err != nil {
			return nil, err
		}
		switch strings.ToUpper(name) {
		case "UID":
			data.UID = true
		case "MIN":
			if err := space(r); err != nil {
				return nil, err
			}
			n, err := readNzNumber(r)
			if err != nil {
				return nil, err
			}
			data.Min = n
		case "MAX":
			if err := space(r); err != nil {
				return nil, err
			}
			n, err := readNzNumber(r)
			if err != nil {
				return nil, err
			}
			data.Max = n
		case "COUNT":
			if err := space(r); err != nil {
				return nil, err
			}
			n, err := readNumber(r)
			if err != nil {
				return nil, err
			}
			data.Count = n
			data.HasCount = true
		case "ALL":
			if err := space(r); err != nil {
				return nil, err
			}
			seq, err := readSeqSet(r)
			if err != nil {
				return nil, err
			}
			data.All = seq
		case "MODSEQ":
			if err := space(r); err != nil {
				return nil, err
			}
			n, err := readNumber64(r)
			if err != nil {
				return nil, err
			}
			data.ModSeq = n
		default:
			return nil, r.errParse("unknown esearch item")
		}
	}
	if err := newline(r); err != nil {
		return nil, err
	}
	return data, nil
}

func readQuotaResponse(r *reader) (imap.UntaggedData, error) {
	if err := space(r); err != nil {
		return nil, err
	}
	root, err := readAString(r)
	if err != nil {
		return nil, err
	}
	if err := space(r); err != nil {
		return nil, err
	}

	m := r.mark()
	if err := expectByte(r, '('); err != nil {
		return nil, err
	}
	data := imap.QuotaData{Root: root}
	for {
		b, err := r.peekByte()
		if err != nil {
			r.restore(m)
			return nil, imap.ErrIncomplete
		}
		if b == ')' {
			r.consume(1)
			break
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
		if err := space(r); err != nil {
			r.restore(m)
			return nil, err
		}
		usage, err := readNumber64(r)
		if err != nil {
			r.restore(m)
			return nil, err
		}
		if err := space(r); err != nil {
			r.restore(m)
			return nil, err
		}
		limit, err := readNumber64(r)
		if err != nil {
			r.restore(m)
			return nil, err
		}
		data.Resources = append(data.Resources, imap.QuotaResourceData{
			Name:  strings.ToUpper(name),
			Usage: int64(usage),
			Limit: int64(limit),
		})
	}
	if err := newline(r); err != nil {
		return nil, err
	}
	return data, nil
}

func readQuotaRootResponse(r *reader) (imap.UntaggedData, error) {
	if err := space(r); err != nil {
		return nil, err
	}
	mbox, err := readMailbox(r)
	if err != nil {
		return nil, err
	}
	data := imap.QuotaRootData{Mailbox: mbox}
	for {
		b, err := r.peekByte()
		if err != nil {
			return nil, imap.ErrIncomplete
		}
		if b != ' ' {
			break
		}
		if err := space(r); err != nil {
			return nil, err
		}
		root, err := readAString(r)
		if err != nil {
			return nil, err
		}
		data.Roots = append(data.Roots, root)
	}
	if err := newline(r); err != nil {
		return nil, err
	}
	return data, nil
}

func readNamespaceResponse(r *reader) (imap.UntaggedData, error) {
	data := imap.NamespaceData{}

	readSet := func() ([]imap.NamespaceDescr, error) {
		if err := space(r); err != nil {
			return nil, err
		}
		if err := matchKeyword(r, "NIL"); err == nil {
			return nil, nil
		} else if err == imap.ErrIncomplete {
			return nil, err
		}
		m := r.mark()
		if err := expectByte(r, '('); err != nil {
			return nil, err
		}
		var descrs []imap.NamespaceDescr
		for {
			b, err := r.peekByte()
			if err != nil {
				r.restore(m)
				return nil, imap.ErrIncomplete
			}
			if b == ')' {
				r.consume(1)
				return descrs, nil
			}
			if b == ' ' {
				r.consume(1)
				continue
			}
			if err := expectByte(r, '('); err != nil {
				r.restore(m)
				return nil, err
			}
			prefix, err := readString(r)
			if err != nil {
				r.restore(m)
				return nil, err
			}
			if err := space(r); err != nil {
				r.restore(m)
				return nil, err
			}
			var descr imap.NamespaceDescr
			descr.Prefix = prefix
			if err := matchKeyword(r, "NIL"); err == nil {
				// No hierarchy delimiter.
			} else if err == imap.ErrIncomplete {
				r.restore(m)
				return nil, err
			} else {
				delim, err := readQuoted(r)
				if err != nil {
					r.restore(m)
					return nil, err
				}
				if len(delim) != 1 {
					r.restore(m)
					return nil, r.errParse("namespace delimiter must be one character")
				}
				descr.Delim = delim[0]
			}
			// Namespace response extensions are skipped.
			for {
				b, err := r.peekByte()
				if err != nil {
					r.restore(m)
					return nil, imap.ErrIncomplete
				}
				if b == ')' {
					r.consume(1)
					break
				}
				if b == ' ' {
					r.consume(1)
					continue
				}
				if err := skipBodyExtension(r); err != nil {
					r.restore(m)
					return nil, err
				}
			}
			descrs = append(descrs, descr)
		}
	}

	var err error
	if data.Personal, err = readSet(); err != nil {
		return nil, err
	}
	if data.Other, err = readSet(); err != nil {
		return nil, err
	}
	if data.Shared, err = readSet(); err != nil {
		return nil, err
	}
	if err := newline(r); err != nil {
		return nil, err
	}
	return data, nil
}

// readIDResponse parses the ID payload.
func readIDResponse(r *reader) (imap.UntaggedData, error) {
	if err := space(r); err != nil {
		return nil, err
	}
	params, err := readIDParams(r)
	if err != nil {
		return nil, err
	}
	if err := newline(r); err != nil {
		return nil, err
	}
	return imap.IDData{Fields: params.Fields}, nil
}

func readMetadataResponse(r *reader) (imap.UntaggedData, error) {
	if err := space(r); err != nil {
		return nil, err
	}
	mbox, err := readMailbox(r)
	if err != nil {
		return nil, err
	}
	if err := space(r); err != nil {
		return nil, err
	}
	data := imap.MetadataData{Mailbox: mbox}

	b, err := r.peekByte()
	if err != nil {
		return nil, imap.ErrIncomplete
	}
	if b == '(' {
		m := r.mark()
		r.consume(1)
		for {
			b, err := r.peekByte()
			if err != nil {
				r.restore(m)
				return nil, imap.ErrIncomplete
			}
			if b == ')' {
				r.consume(1)
				break
			}
			if b == ' ' {
				r.consume(1)
				continue
			}
			name, err := readAString(r)
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
			entry := imap.MetadataEntry{Name: name}
			if present {
				entry.Value = []byte(val)
			}
			data.Entries = append(data.Entries, entry)
		}
	} else {
		for {
			name, err := readAString(r)
			if err != nil {
				return nil, err
			}
			data.EntryNames = append(data.EntryNames, name)
			b, err := r.peekByte()
			if err != nil {
				return nil, imap.ErrIncomplete
			}
			if b != ' ' {
				break
			}
			r.consume(1)
		}
	}
	if err := newline(r); err != nil {
		return nil, err
	}
	return data, nil
}

func readVanishedResponse(r *reader) (imap.UntaggedData, error) {
	if err := space(r); err != nil {
		return nil, err
	}
	data := imap.VanishedData{}

	b, err := r.peekByte()
	if err != nil {
		return nil, imap.ErrIncomplete
	}
	if b == '(' {
		m := r.mark()
		r.consume(1)
		if err := matchKeyword(r, "EARLIER"); err != nil {
			r.restore(m)
			return nil, err
		}
		if err := expectByte(r, ')'); err != nil {
			r.restore(m)
			return nil, err
		}
		data.Earlier = true
		if err := space(r); err != nil {
			return nil, err
		}
	}

	uids, err := readSeqSet(r)
	if err != nil {
		return nil, err
	}
	data.UIDs = uids
	if err := newline(r); err != nil {
		return nil, err
	}
	return data, nil
}
