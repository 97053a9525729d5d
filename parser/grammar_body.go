package parser

import (
	"github.com/emiago/imapgo/imap"
)

// readAddressList parses an ENVELOPE address list: NIL or a parenthesised
// run of "(name adl mailbox host)" quads.
func readAddressList(r *reader) ([]*imap.Address, error) {
	if err := matchKeyword(r, "NIL"); err == nil {
		return nil, nil
	} else if err == imap.ErrIncomplete {
		return nil, err
	}

	m := r.mark()
	if err := expectByte(r, '('); err != nil {
		return nil, err
	}
	var addrs []*imap.Address
	for {
		b, err := r.peekByte()
		if err != nil {
			r.restore(m)
			return nil, imap.ErrIncomplete
		}
		if b == ')' {
			r.consume(1)
			return addrs, nil
		}
		if b == ' ' {
			r.consume(1)
			continue
		}
		addr, err := readAddress(r)
		if err != nil {
			r.restore(m)
			return nil, err
		}
		addrs = append(addrs, addr)
	}
}

func readAddress(r *reader) (*imap.Address, error) {
	m := r.mark()
	fail := func(err error) (*imap.Address, error) {
		r.restore(m)
		return nil, err
	}

	if err := expectByte(r, '('); err != nil {
		return nil, err
	}
	addr := &imap.Address{}

	read := func(dst *string) error {
		s, _, err := readNString(r)
		if err != nil {
			return err
		}
		*dst = s
		return nil
	}

	if err := read(&addr.Name); err != nil {
		return fail(err)
	}
	if err := space(r); err != nil {
		return fail(err)
	}
	if err := read(&addr.AtDomainList); err != nil {
		return fail(err)
	}
	if err := space(r); err != nil {
		return fail(err)
	}
	if err := read(&addr.Mailbox); err != nil {
		return fail(err)
	}
	if err := space(r); err != nil {
		return fail(err)
	}
	if err := read(&addr.Host); err != nil {
		return fail(err)
	}
	if err := expectByte(r, ')'); err != nil {
		return fail(err)
	}
	return addr, nil
}

// readEnvelope parses the ENVELOPE value.
func readEnvelope(r *reader) (*imap.Envelope, error) {
	if err := r.enter(); err != nil {
		return nil, err
	}
	defer r.exit()

	m := r.mark()
	fail := func(err error) (*imap.Envelope, error) {
		r.restore(m)
		return nil, err
	}

	if err := expectByte(r, '('); err != nil {
		return nil, err
	}
	env := &imap.Envelope{}

	str := func(dst *string) error {
		s, _, err := readNString(r)
		if err != nil {
			return err
		}
		*dst = s
		return nil
	}
	addrs := func(dst *[]*imap.Address) error {
		if err := space(r); err != nil {
			return err
		}
		a, err := readAddressList(r)
		if err != nil {
			return err
		}
		*dst = a
		return nil
	}

	if err := str(&env.Date); err != nil {
		return fail(err)
	}
	if err := space(r); err != nil {
		return fail(err)
	}
	if err := str(&env.Subject); err != nil {
		return fail(err)
	}
	if err := addrs(&env.From); err != nil {
		return fail(err)
	}
	if err := addrs(&env.Sender); err != nil {
		return fail(err)
	}
	if err := addrs(&env.ReplyTo); err != nil {
		return fail(err)
	}
	if err := addrs(&env.To); err != nil {
		return fail(err)
	}
	if err := addrs(&env.Cc); err != nil {
		return fail(err)
	}
	if err := addrs(&env.Bcc); err != nil {
		return fail(err)
	}
	if err := space(r); err != nil {
		return fail(err)
	}
	if err := str(&env.InReplyTo); err != nil {
		return fail(err)
	}
	if err := space(r); err != nil {
		return fail(err)
	}
	if err := str(&env.MessageID); err != nil {
		return fail(err)
	}
	if err := expectByte(r, ')'); err != nil {
		return fail(err)
	}
	return env, nil
}

// readBodyParams parses body-fld-param: NIL or "(" string SP string ... ")".
func readBodyParams(r *reader) ([]imap.BodyParam, error) {
	if err := matchKeyword(r, "NIL"); err == nil {
		return nil, nil
	} else if err == imap.ErrIncomplete {
		return nil, err
	}

	m := r.mark()
	if err := expectByte(r, '('); err != nil {
		return nil, err
	}
	var params []imap.BodyParam
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
		val, err := readString(r)
		if err != nil {
			r.restore(m)
			return nil, err
		}
		params = append(params, imap.BodyParam{Key: key, Value: val})
	}
}

func readBodyDisposition(r *reader) (*imap.BodyDisposition, error) {
	if err := matchKeyword(r, "NIL"); err == nil {
		return nil, nil
	} else if err == imap.ErrIncomplete {
		return nil, err
	}

	m := r.mark()
	fail := func(err error) (*imap.BodyDisposition, error) {
		r.restore(m)
		return nil, err
	}

	if err := expectByte(r, '('); err != nil {
		return nil, err
	}
	typ, err := readString(r)
	if err != nil {
		return fail(err)
	}
	if err := space(r); err != nil {
		return fail(err)
	}
	params, err := readBodyParams(r)
	if err != nil {
		return fail(err)
	}
	if err := expectByte(r, ')'); err != nil {
		return fail(err)
	}
	return &imap.BodyDisposition{Type: typ, Params: params}, nil
}

func readBodyLanguage(r *reader) ([]string, error) {
	b, err := r.peekByte()
	if err != nil {
		return nil, err
	}
	if b != '(' {
		s, present, err := readNString(r)
		if err != nil {
			return nil, err
		}
		if !present {
			return nil, nil
		}
		return []string{s}, nil
	}

	m := r.mark()
	r.consume(1)
	var langs []string
	for {
		b, err := r.peekByte()
		if err != nil {
			r.restore(m)
			return nil, imap.ErrIncomplete
		}
		if b == ')' {
			r.consume(1)
			return langs, nil
		}
		if b == ' ' {
			r.consume(1)
			continue
		}
		s, err := readString(r)
		if err != nil {
			r.restore(m)
			return nil, err
		}
		langs = append(langs, s)
	}
}

// skipBodyExtension consumes one body-extension value: an nstring, a
// number, or a parenthesised list of extensions.
func skipBodyExtension(r *reader) error {
	if err := r.enter(); err != nil {
		return err
	}
	defer r.exit()

	b, err := r.peekByte()
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
			if err := skipBodyExtension(r); err != nil {
				r.restore(m)
				return err
			}
		}
	}
	if isDigit(b) {
		_, err := readNumber64(r)
		return err
	}
	_, _, err = readNString(r)
	return err
}

// readBodyStructure parses a BODY or BODYSTRUCTURE value. extended seeds
// the Extended flag of every node; extension data is consumed whenever it
// is present, and its presence also sets Extended.
func readBodyStructure(r *reader, extended bool) (*imap.BodyStructure, error) {
	if err := r.enter(); err != nil {
		return nil, err
	}
	defer r.exit()

	m := r.mark()
	fail := func(err error) (*imap.BodyStructure, error) {
		r.restore(m)
		return nil, err
	}

	if err := expectByte(r, '('); err != nil {
		return nil, err
	}

	b, err := r.peekByte()
	if err != nil {
		return fail(imap.ErrIncomplete)
	}

	bs := &imap.BodyStructure{Extended: extended}

	if b == '(' {
		// Multipart: a run of bodies, then the subtype.
		for {
			part, err := readBodyStructure(r, extended)
			if err != nil {
				return fail(err)
			}
			bs.Parts = append(bs.Parts, part)
			b, err := r.peekByte()
			if err != nil {
				return fail(imap.ErrIncomplete)
			}
			if b != '(' {
				break
			}
		}
		if err := space(r); err != nil {
			return fail(err)
		}
		subtype, err := readString(r)
		if err != nil {
			return fail(err)
		}
		bs.MIMEType = "multipart"
		bs.Subtype = subtype

		if err := readMultipartExt(r, bs); err != nil {
			return fail(err)
		}
		if err := expectByte(r, ')'); err != nil {
			return fail(err)
		}
		return bs, nil
	}

	// Single part.
	mtype, err := readString(r)
	if err != nil {
		return fail(err)
	}
	if err := space(r); err != nil {
		return fail(err)
	}
	subtype, err := readString(r)
	if err != nil {
		return fail(err)
	}
	bs.MIMEType = mtype
	bs.Subtype = subtype

	if err := space(r); err != nil {
		return fail(err)
	}
	params, err := readBodyParams(r)
	if err != nil {
		return fail(err)
	}
	bs.Params = params

	nstr := func(dst *string) error {
		if err := space(r); err != nil {
			return err
		}
		s, _, err := readNString(r)
		if err != nil {
			return err
		}
		*dst = s
		return nil
	}

	if err := nstr(&bs.ID); err != nil {
		return fail(err)
	}
	if err := nstr(&bs.Description); err != nil {
		return fail(err)
	}
	if err := nstr(&bs.Encoding); err != nil {
		return fail(err)
	}
	if err := space(r); err != nil {
		return fail(err)
	}
	size, err := readNumber(r)
	if err != nil {
		return fail(err)
	}
	bs.Size = size

	if equalsFold(mtype, "message") && equalsFold(subtype, "rfc822") {
		if err := space(r); err != nil {
			return fail(err)
		}
		env, err := readEnvelope(r)
		if err != nil {
			return fail(err)
		}
		if err := space(r); err != nil {
			return fail(err)
		}
		embedded, err := readBodyStructure(r, extended)
		if err != nil {
			return fail(err)
		}
		if err := space(r); err != nil {
			return fail(err)
		}
		lines, err := readNumber(r)
		if err != nil {
			return fail(err)
		}
		bs.Envelope = env
		bs.Embedded = embedded
		bs.Lines = lines
	} else if equalsFold(mtype, "text") {
		if err := space(r); err != nil {
			return fail(err)
		}
		lines, err := readNumber(r)
		if err != nil {
			return fail(err)
		}
		bs.Lines = lines
	}

	if err := readSinglepartExt(r, bs); err != nil {
		return fail(err)
	}
	if err := expectByte(r, ')'); err != nil {
		return fail(err)
	}
	return bs, nil
}

// readSinglepartExt consumes optional body-ext-1part data: md5, then
// disposition, language, location and trailing extensions.
func readSinglepartExt(r *reader, bs *imap.BodyStructure) error {
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
	md5, _, err := readNString(r)
	if err != nil {
		return err
	}
	bs.MD5 = md5
	bs.Extended = true
	return readCommonExt(r, bs)
}

// readMultipartExt consumes optional body-ext-mpart data: params, then
// disposition, language, location and trailing extensions.
func readMultipartExt(r *reader, bs *imap.BodyStructure) error {
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
	params, err := readBodyParams(r)
	if err != nil {
		return err
	}
	bs.Params = params
	bs.Extended = true
	return readCommonExt(r, bs)
}

func readCommonExt(r *reader, bs *imap.BodyStructure) error {
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
	dsp, err := readBodyDisposition(r)
	if err != nil {
		return err
	}
	bs.Disposition = dsp

	b, err = r.peekByte()
	if err != nil {
		return imap.ErrIncomplete
	}
	if b != ' ' {
		return nil
	}
	if err := space(r); err != nil {
		return err
	}
	langs, err := readBodyLanguage(r)
	if err != nil {
		return err
	}
	bs.Language = langs

	b, err = r.peekByte()
	if err != nil {
		return imap.ErrIncomplete
	}
	if b != ' ' {
		return nil
	}
	if err := space(r); err != nil {
		return err
	}
	loc, _, err := readNString(r)
	if err != nil {
		return err
	}
	bs.Location = loc

	for {
		b, err = r.peekByte()
		if err != nil {
			return imap.ErrIncomplete
		}
		if b != ' ' {
			return nil
		}
		if err := space(r); err != nil {
			return err
		}
		if err := skipBodyExtension(r); err != nil {
			return err
		}
	}
}

func equalsFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		if lowerASCII(a[i]) != lowerASCII(b[i]) {
			return false
		}
	}
	return true
}
