package imap

// UntaggedData is the payload of an untagged response.
type UntaggedData interface {
	untaggedData()
}

// UntaggedStatus is an untagged OK, NO, BAD, BYE or PREAUTH response.
type UntaggedStatus struct {
	Status StatusType
	Text   RespText
}

// CapabilityData is the untagged CAPABILITY response.
type CapabilityData struct {
	Caps []string
}

// FlagsData is the untagged FLAGS response.
type FlagsData struct {
	Flags []Flag
}

// ExistsData is the untagged EXISTS response.
type ExistsData struct {
	Count uint32
}

// RecentData is the untagged RECENT response.
type RecentData struct {
	Count uint32
}

// ExpungeData is the untagged EXPUNGE response.
type ExpungeData struct {
	SeqNum uint32
}

// ListData is an untagged LIST or LSUB response.
type ListData struct {
	// Lsub is set for LSUB.
	Lsub  bool
	Attrs []MailboxAttr
	// Delim is 0 when the hierarchy delimiter was NIL.
	Delim   byte
	Mailbox string
	// ChildInfo holds LIST-EXTENDED extended data ("CHILDINFO" entries).
	ChildInfo []string
}

// StatusData is the untagged STATUS response.
type StatusData struct {
	Mailbox string
	// Items maps attribute name to value, e.g. "MESSAGES" -> 23.
	Items []StatusItem
}

// StatusItem is one attribute of a STATUS response.
type StatusItem struct {
	Name  string
	Value uint64
}

// SearchData is the untagged SEARCH response, with the optional CONDSTORE
// MODSEQ trailer.
type SearchData struct {
	Nums   []uint32
	ModSeq uint64
}

// ESearchData is the untagged ESEARCH response (RFC 4731).
type ESearchData struct {
	// Correlator is the tag from the (TAG "...") correlator, empty when
	// absent.
	Correlator string
	UID        bool
	Min        uint32
	Max        uint32
	All        *SeqSet
	Count      uint32
	HasCount   bool
	ModSeq     uint64
}

// QuotaData is the untagged QUOTA response.
type QuotaData struct {
	Root string
	// Resources holds name/usage/limit triples.
	Resources []QuotaResourceData
}

// QuotaResourceData is one resource triple of a QUOTA response.
type QuotaResourceData struct {
	Name  string
	Usage int64
	Limit int64
}

// QuotaRootData is the untagged QUOTAROOT response.
type QuotaRootData struct {
	Mailbox string
	Roots   []string
}

// NamespaceData is the untagged NAMESPACE response.
type NamespaceData struct {
	Personal []NamespaceDescr
	Other    []NamespaceDescr
	Shared   []NamespaceDescr
}

// NamespaceDescr is one namespace prefix/delimiter pair.
type NamespaceDescr struct {
	Prefix string
	// Delim is 0 when the delimiter was NIL.
	Delim byte
}

// IDData is the untagged ID response; Fields is nil for "ID NIL". Values
// are decoded from modified UTF-7 where they contain valid sequences.
type IDData struct {
	Fields []IDField
}

// EnabledData is the untagged ENABLED response (RFC 5161).
type EnabledData struct {
	Caps []string
}

// MetadataData is the untagged METADATA response (RFC 5464).
type MetadataData struct {
	Mailbox string
	Entries []MetadataEntry
	// EntryNames is set for the unsolicited form that lists names only.
	EntryNames []string
}

// VanishedData is the untagged VANISHED response (RFC 7162).
type VanishedData struct {
	Earlier bool
	UIDs    *SeqSet
}

func (UntaggedStatus) untaggedData() {}
func (CapabilityData) untaggedData() {}
func (FlagsData) untaggedData()      {}
func (ExistsData) untaggedData()     {}
func (RecentData) untaggedData()     {}
func (ExpungeData) untaggedData()    {}
func (ListData) untaggedData()       {}
func (StatusData) untaggedData()     {}
func (SearchData) untaggedData()     {}
func (ESearchData) untaggedData()    {}
func (QuotaData) untaggedData()      {}
func (QuotaRootData) untaggedData()  {}
func (NamespaceData) untaggedData()  {}
func (IDData) untaggedData()         {}
func (EnabledData) untaggedData()    {}
func (MetadataData) untaggedData()   {}
func (VanishedData) untaggedData()   {}
