package imap

import "time"

// SectionPartial is the <offset.count> suffix of a BODY[] fetch item.
type SectionPartial struct {
	Offset int64
	Count  int64
}

// SectionSpec identifies a message part in BODY[section] and
// BINARY[section] items.
type SectionSpec struct {
	// Part is the MIME part path, e.g. [1 2] for "1.2". Empty for the whole
	// message.
	Part []int
	// Specifier is one of "", "HEADER", "HEADER.FIELDS",
	// "HEADER.FIELDS.NOT", "TEXT" or "MIME".
	Specifier string
	// Fields lists the header fields of HEADER.FIELDS[.NOT].
	Fields []string
}

// FetchItem is one data item requested by a FETCH command.
type FetchItem struct {
	// Name is the canonical item name: "FLAGS", "UID", "RFC822.SIZE",
	// "INTERNALDATE", "ENVELOPE", "BODY", "BODYSTRUCTURE", "BODY[]",
	// "BINARY[]", "BINARY.SIZE[]", "RFC822", "RFC822.HEADER", "RFC822.TEXT",
	// "MODSEQ", "X-GM-MSGID", "X-GM-THRID", "X-GM-LABELS" or
	// "ALL"/"FAST"/"FULL" before macro expansion.
	Name string
	// Peek is set for BODY.PEEK[] and BINARY.PEEK[].
	Peek bool
	// Section describes the part for BODY[], BINARY[] and BINARY.SIZE[].
	Section *SectionSpec
	// Partial is the <offset.count> range, nil when absent.
	Partial *SectionPartial
}

// FetchAttribute is one attribute of a FETCH response whose value fits in
// memory. Large literal values are streamed instead (see
// FetchStreamingBegin).
type FetchAttribute interface {
	fetchAttribute()
}

// FetchFlags is the FLAGS attribute.
type FetchFlags struct {
	Flags []Flag
}

// FetchUID is the UID attribute.
type FetchUID struct {
	UID UID
}

// FetchRFC822Size is the RFC822.SIZE attribute.
type FetchRFC822Size struct {
	Size int64
}

// FetchInternalDate is the INTERNALDATE attribute.
type FetchInternalDate struct {
	Date time.Time
}

// FetchEnvelope is the ENVELOPE attribute.
type FetchEnvelope struct {
	Envelope *Envelope
}

// FetchBodyStructure is the BODY or BODYSTRUCTURE attribute. Extended is
// set for BODYSTRUCTURE, which carries extension data.
type FetchBodyStructure struct {
	Structure *BodyStructure
	Extended  bool
}

// FetchModSeq is the MODSEQ attribute (RFC 7162).
type FetchModSeq struct {
	ModSeq uint64
}

// FetchBinarySize is the BINARY.SIZE[part] attribute (RFC 3516).
type FetchBinarySize struct {
	Part []int
	Size uint32
}

// FetchBodySection is a BODY[section] or BINARY[section] value that arrived
// as a quoted string or NIL rather than a literal.
type FetchBodySection struct {
	Section *SectionSpec
	Binary  bool
	// Offset is the <origin> octet of a partial fetch, -1 when absent.
	Offset int64
	// Data is nil for a NIL value.
	Data []byte
}

// FetchGmailMsgID is the X-GM-MSGID attribute.
type FetchGmailMsgID struct {
	ID uint64
}

// FetchGmailThreadID is the X-GM-THRID attribute.
type FetchGmailThreadID struct {
	ID uint64
}

// FetchGmailLabels is the X-GM-LABELS attribute.
type FetchGmailLabels struct {
	Labels []string
}

func (FetchFlags) fetchAttribute()         {}
func (FetchUID) fetchAttribute()           {}
func (FetchRFC822Size) fetchAttribute()    {}
func (FetchInternalDate) fetchAttribute()  {}
func (FetchEnvelope) fetchAttribute()      {}
func (FetchBodyStructure) fetchAttribute() {}
func (FetchModSeq) fetchAttribute()        {}
func (FetchBinarySize) fetchAttribute()    {}
func (FetchBodySection) fetchAttribute()   {}
func (FetchGmailMsgID) fetchAttribute()    {}
func (FetchGmailThreadID) fetchAttribute() {}
func (FetchGmailLabels) fetchAttribute()   {}
