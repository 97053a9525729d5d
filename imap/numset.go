package imap

import (
	"strconv"
	"strings"
)

// NumRange is an inclusive range of sequence numbers or UIDs.
// Start <= Stop always holds after parsing; a Stop of 0 stands for "*"
// (the largest number in the mailbox). A range consisting only of "*" has
// both fields zero.
type NumRange struct {
	Start uint32
	Stop  uint32
}

// Single reports whether the range covers exactly one number.
func (r NumRange) Single() bool { return r.Start == r.Stop && r.Start != 0 }

// Contains reports whether num falls inside the range. Ranges ending in "*"
// contain every number at or above Start.
func (r NumRange) Contains(num uint32) bool {
	if r.Start == 0 && r.Stop == 0 {
		return true
	}
	if r.Stop == 0 {
		return num >= r.Start
	}
	return num >= r.Start && num <= r.Stop
}

func (r NumRange) String() string {
	format := func(n uint32) string {
		if n == 0 {
			return "*"
		}
		return strconv.FormatUint(uint64(n), 10)
	}
	if r.Start == r.Stop {
		return format(r.Start)
	}
	return format(r.Start) + ":" + format(r.Stop)
}

// SeqSet is an ordered sequence set. Ranges keep their source order and may
// overlap; no canonicalisation happens on parse beyond per-range min:max
// normalisation.
//
// SearchRes marks the SEARCHRES "$" set (RFC 5182), which stands for the
// result of the previous SEARCH. A "$" set carries no ranges.
type SeqSet struct {
	Set       []NumRange
	SearchRes bool
}

// AddNum appends single-number ranges.
func (s *SeqSet) AddNum(nums ...uint32) {
	for _, n := range nums {
		s.Set = append(s.Set, NumRange{Start: n, Stop: n})
	}
}

// AddRange appends a range, normalising so Start <= Stop unless one side
// is "*".
func (s *SeqSet) AddRange(start, stop uint32) {
	if start != 0 && stop != 0 && start > stop {
		start, stop = stop, start
	}
	if start == 0 && stop != 0 {
		// "*:n" is the same as "n:*".
		start, stop = stop, 0
	}
	s.Set = append(s.Set, NumRange{Start: start, Stop: stop})
}

// Dynamic reports whether the set references "*" or "$" and therefore
// depends on mailbox or search state.
func (s *SeqSet) Dynamic() bool {
	if s.SearchRes {
		return true
	}
	for _, r := range s.Set {
		if r.Start == 0 || r.Stop == 0 {
			return true
		}
	}
	return false
}

// Contains reports whether num is in the set. A "$" set contains nothing
// without the stored search result, so it always reports false.
func (s *SeqSet) Contains(num uint32) bool {
	for _, r := range s.Set {
		if r.Contains(num) {
			return true
		}
	}
	return false
}

// IsEmpty reports whether the set holds no ranges and is not "$".
func (s *SeqSet) IsEmpty() bool { return len(s.Set) == 0 && !s.SearchRes }

func (s *SeqSet) String() string {
	if s.SearchRes {
		return "$"
	}
	parts := make([]string, len(s.Set))
	for i, r := range s.Set {
		parts[i] = r.String()
	}
	return strings.Join(parts, ",")
}

// UIDSet is a sequence set interpreted over UIDs.
type UIDSet = SeqSet
