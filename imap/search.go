package imap

import "time"

// SearchKey is one node of a SEARCH key tree.
//
// Op is the canonical key name. The populated fields depend on Op:
//
//	"SEQSET", "UID"                     Seq
//	"BEFORE", "ON", "SINCE",
//	"SENTBEFORE", "SENTON", "SENTSINCE" Date
//	"LARGER", "SMALLER"                 Num
//	"BCC", "BODY", "CC", "FROM",
//	"SUBJECT", "TEXT", "TO"             Value
//	"HEADER"                            Field, Value
//	"KEYWORD", "UNKEYWORD"              Flag
//	"MODSEQ"                            ModSeq, Entry, EntryType
//	"OR"                                Children (two)
//	"NOT"                               Children (one)
//	"AND"                               Children (a parenthesised list)
//
// Keys without arguments (ALL, ANSWERED, DELETED, ...) carry only Op.
type SearchKey struct {
	Op string

	Seq       *SeqSet
	Date      time.Time
	Num       int64
	Value     string
	Field     string
	Flag      Flag
	ModSeq    uint64
	Entry     string
	EntryType string
	Children  []*SearchKey
}

// SearchOptions are the RETURN options of an extended SEARCH (RFC 4731),
// plus the CHARSET argument.
type SearchOptions struct {
	Charset string
	// Return lists the requested result options: MIN, MAX, ALL, COUNT, SAVE.
	Return []string
}
