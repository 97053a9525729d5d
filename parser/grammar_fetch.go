package parser

import (
	"strings"

	"github.com/emiago/imapgo/imap"
)

// readSectionPart parses a MIME part path: nz-number *("." nz-number).
func readSectionPart(r *reader) ([]int, error) {
	m := r.mark()
	var part []int
	for {
		n, err := readNzNumber(r)
		if err != nil {
			r.restore(m)
			return nil, err
		}
		part = append(part, int(n))
		b, err := r.peekByte()
		if err != nil {
			r.restore(m)
			return nil, imap.ErrIncomplete
		}
		if b != '.' {
			return part, nil
		}
		// Only consume the dot when a number follows; "1.MIME" ends the
		// part path at the specifier.
		if b2, err := r.peek(2); err != nil {
			r.restore(m)
			return nil, imap.ErrIncomplete
		} else if !isDigit(b2[1]) {
			return part, nil
		}
		r.consume(1)
	}
}

// readHeaderList parses the parenthesised field list of HEADER.FIELDS.
func readHeaderList(r *reader) ([]string, error) {
	m := r.mark()
	if err := expectByte(r, '('); err != nil {
		return nil, err
	}
	var fields []string
	for {
		b, err := r.peekByte()
		if err != nil {
			r.restore(m)
			return nil, imap.ErrIncomplete
		}
		if b == ')' {
			r.consume(1)
			if len(fields) == 0 {
				r.restore(m)
				return nil, r.errParse("empty header field list")
			}
			return fields, nil
		}
		if b == ' ' {
			r.consume(1)
			continue
		}
		f, err := readAString(r)
		if err != nil {
			r.restore(m)
			return nil, err
		}
		fields = append(fields, f)
	}
}

// readSection parses "[" [section-spec] "]".
func readSection(r *reader) (*imap.SectionSpec, error) {
	m := r.mark()
	if err := expectByte(r, '['); err != nil {
		return nil, err
	}
	spec := &imap.SectionSpec{}

	b, err := r.peekByte()
	if err != nil {
		r.restore(m)
		return nil, imap.ErrIncomplete
	}
	if b == ']' {
		r.consume(1)
		return spec, nil
	}

	if isDigit(b) {
		part, err := readSectionPart(r)
		if err != nil {
			r.restore(m)
			return nil, err
		}
		spec.Part = part
		b, err = r.peekByte()
		if err != nil {
			r.restore(m)
			return nil, imap.ErrIncomplete
		}
		if b == ']' {
			r.consume(1)
			return spec, nil
		}
		if b != '.' {
			r.restore(m)
			return nil, r.errParse("malformed section")
		}
		r.consume(1)
	}

	specifier, err := readAtomFunc(r, func(b byte) bool {
		return b >= 'A' && b <= 'Z' || b >= 'a' && b <= 'z' || b == '.'
	})
	if err != nil {
		r.restore(m)
		return nil, err
	}
	spec.Specifier = strings.ToUpper(specifier)

	switch spec.Specifier {
	case "HEADER", "TEXT", "MIME":
	case "HEADER.FIELDS", "HEADER.FIELDS.NOT":
		if err := space(r); err != nil {
			r.restore(m)
			return nil, err
		}
		fields, err := readHeaderList(r)
		if err != nil {
			r.restore(m)
			return nil, err
		}
		spec.Fields = fields
	default:
		r.restore(m)
		return nil, r.errParse("unknown section specifier")
	}

	if err := expectByte(r, ']'); err != nil {
		r.restore(m)
		return nil, err
	}
	return spec, nil
}

// readPartialRange parses the command-side "<offset.count>" suffix.
func readPartialRange(r *reader) (*imap.SectionPartial, error) {
	m := r.mark()
	if err := expectByte(r, '<'); err != nil {
		return nil, err
	}
	off, err := readNumber(r)
	if err != nil {
		r.restore(m)
		return nil, err
	}
	if err := expectByte(r, '.'); err != nil {
		r.restore(m)
		return nil, err
	}
	count, err := readNzNumber(r)
	if err != nil {
		r.restore(m)
		return nil, err
	}
	if err := expectByte(r, '>'); err != nil {
		r.restore(m)
		return nil, err
	}
	return &imap.SectionPartial{Offset: int64(off), Count: int64(count)}, nil
}

// readResponseOrigin parses the response-side "<origin>" suffix.
func readResponseOrigin(r *reader) (int64, error) {
	m := r.mark()
	if err := expectByte(r, '<'); err != nil {
		return 0, err
	}
	off, err := readNumber(r)
	if err != nil {
		r.restore(m)
		return 0, err
	}
	if err := expectByte(r, '>'); err != nil {
		r.restore(m)
		return 0, err
	}
	return int64(off), nil
}

// fetchItemName consumes a fetch item keyword: atom characters plus the
// dots of RFC822.SIZE and friends.
func fetchItemName(r *reader) (string, error) {
	name, err := readAtomFunc(r, func(b byte) bool {
		return b >= 'A' && b <= 'Z' || b >= 'a' && b <= 'z' || isDigit(b) || b == '.' || b == '-'
	})
	if err != nil {
		return "", err
	}
	return strings.ToUpper(name), nil
}

// readFetchItem parses one command-side fetch item.
func readFetchItem(r *reader) (imap.FetchItem, error) {
	m := r.mark()
	var item imap.FetchItem

	name, err := fetchItemName(r)
	if err != nil {
		return item, err
	}

	switch name {
	case "ALL", "FAST", "FULL", "FLAGS", "UID", "INTERNALDATE", "ENVELOPE",
		"BODYSTRUCTURE", "RFC822", "RFC822.HEADER", "RFC822.SIZE",
		"RFC822.TEXT", "MODSEQ", "X-GM-MSGID", "X-GM-THRID", "X-GM-LABELS":
		item.Name = name
		return item, nil
	case "BODY", "BODY.PEEK", "BINARY", "BINARY.PEEK", "BINARY.SIZE":
		peek := strings.HasSuffix(name, ".PEEK")
		base := strings.TrimSuffix(name, ".PEEK")

		b, err := r.peekByte()
		if err != nil {
			r.restore(m)
			return item, imap.ErrIncomplete
		}
		if b != '[' {
			if base == "BODY" && !peek {
				// Plain BODY without a section asks for the structure.
				item.Name = "BODY"
				return item, nil
			}
			r.restore(m)
			return item, r.errParse("expected section")
		}

		section, err := readSection(r)
		if err != nil {
			r.restore(m)
			return item, err
		}
		item.Name = base + "[]"
		item.Peek = peek
		item.Section = section

		if base != "BINARY.SIZE" {
			b, err := r.peekByte()
			if err != nil {
				r.restore(m)
				return item, imap.ErrIncomplete
			}
			if b == '<' {
				partial, err := readPartialRange(r)
				if err != nil {
					r.restore(m)
					return item, err
				}
				item.Partial = partial
			}
		}
		return item, nil
	default:
		r.restore(m)
		return item, r.errParse("unknown fetch item")
	}
}

// readFetchItems parses the FETCH item list: a macro, a single item, or a
// parenthesised list.
func readFetchItems(r *reader) ([]imap.FetchItem, error) {
	b, err := r.peekByte()
	if err != nil {
		return nil, err
	}
	if b != '(' {
		item, err := readFetchItem(r)
		if err != nil {
			return nil, err
		}
		return expandFetchMacro(item), nil
	}

	m := r.mark()
	r.consume(1)
	var items []imap.FetchItem
	for {
		b, err := r.peekByte()
		if err != nil {
			r.restore(m)
			return nil, imap.ErrIncomplete
		}
		if b == ')' {
			r.consume(1)
			if len(items) == 0 {
				r.restore(m)
				return nil, r.errParse("empty fetch item list")
			}
			return items, nil
		}
		if b == ' ' {
			r.consume(1)
			continue
		}
		item, err := readFetchItem(r)
		if err != nil {
			r.restore(m)
			return nil, err
		}
		items = append(items, item)
	}
}

// expandFetchMacro expands ALL, FAST and FULL (RFC 3501 section 6.4.5).
func expandFetchMacro(item imap.FetchItem) []imap.FetchItem {
	switch item.Name {
	case "ALL":
		return []imap.FetchItem{
			{Name: "FLAGS"}, {Name: "INTERNALDATE"},
			{Name: "RFC822.SIZE"}, {Name: "ENVELOPE"},
		}
	case "FAST":
		return []imap.FetchItem{
			{Name: "FLAGS"}, {Name: "INTERNALDATE"}, {Name: "RFC822.SIZE"},
		}
	case "FULL":
		return []imap.FetchItem{
			{Name: "FLAGS"}, {Name: "INTERNALDATE"},
			{Name: "RFC822.SIZE"}, {Name: "ENVELOPE"}, {Name: "BODY"},
		}
	default:
		return []imap.FetchItem{item}
	}
}

// readFetchModifiers parses the optional "(CHANGEDSINCE n [VANISHED])"
// trailer of FETCH (RFC 7162).
func readFetchModifiers(r *reader, params *imap.FetchParams) error {
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
		switch strings.ToUpper(name) {
		case "CHANGEDSINCE":
			if err := space(r); err != nil {
				r.restore(m)
				return err
			}
			n, err := readNumber64(r)
			if err != nil {
				r.restore(m)
				return err
			}
			params.ChangedSince = n
		case "VANISHED":
			params.Vanished = true
		default:
			r.restore(m)
			return r.errParse("unknown fetch modifier")
		}
	}
}
