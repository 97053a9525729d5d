package parser

import (
	"github.com/emiago/imapgo/imap"
)

// readSeqNumber parses a seq-number: a nonzero number or "*", which is
// represented as 0.
func readSeqNumber(r *reader) (uint32, error) {
	b, err := r.peekByte()
	if err != nil {
		return 0, err
	}
	if b == '*' {
		r.consume(1)
		return 0, nil
	}
	return readNzNumber(r)
}

// readSeqSet parses a sequence set: "$" (the saved search result) or a
// comma separated list of numbers and ranges. Ranges written backwards
// ("7:3") normalise to min:max; list order is preserved.
func readSeqSet(r *reader) (*imap.SeqSet, error) {
	m := r.mark()

	b, err := r.peekByte()
	if err != nil {
		return nil, err
	}
	if b == '$' {
		r.consume(1)
		return &imap.SeqSet{SearchRes: true}, nil
	}

	set := &imap.SeqSet{}
	for {
		start, err := readSeqNumber(r)
		if err != nil {
			r.restore(m)
			return nil, err
		}
		b, err := r.peekByte()
		if err != nil {
			r.restore(m)
			return nil, imap.ErrIncomplete
		}
		if b == ':' {
			r.consume(1)
			stop, err := readSeqNumber(r)
			if err != nil {
				r.restore(m)
				return nil, err
			}
			set.AddRange(start, stop)
			b, err = r.peekByte()
			if err != nil {
				r.restore(m)
				return nil, imap.ErrIncomplete
			}
		} else if start == 0 {
			set.Set = append(set.Set, imap.NumRange{})
		} else {
			set.AddNum(start)
		}
		if b != ',' {
			return set, nil
		}
		r.consume(1)
	}
}
