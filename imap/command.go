package imap

import "time"

// Command is a fully parsed client command line. One struct covers every
// command; the populated fields depend on Name.
type Command struct {
	Tag  string
	Name string

	// UID is set when the command was prefixed with UID (COPY, MOVE, FETCH,
	// SEARCH, STORE, EXPUNGE).
	UID bool

	// SyncLiterals counts the synchronising literals the command carried, so
	// a server can issue the matching continuation requests in order.
	SyncLiterals int

	// Mailbox is set for SELECT, EXAMINE, CREATE, DELETE, SUBSCRIBE,
	// UNSUBSCRIBE, STATUS, COPY, MOVE, GETQUOTAROOT.
	Mailbox string

	// Select holds the SELECT/EXAMINE parameters.
	Select *SelectParams

	// Create holds CREATE parameters (RFC 6154 USE).
	Create *CreateParams

	// Rename holds the RENAME argument pair.
	Rename *RenameParams

	// Auth holds LOGIN or AUTHENTICATE arguments.
	Auth *AuthParams

	// List holds LIST/LSUB arguments.
	List *ListParams

	// Status holds the requested STATUS attributes.
	Status *StatusParams

	// Sequences is the sequence-set argument of FETCH, STORE, COPY, MOVE and
	// UID EXPUNGE.
	Sequences *SeqSet

	// Fetch holds FETCH items and modifiers.
	Fetch *FetchParams

	// Store holds STORE arguments.
	Store *StoreParams

	// Search holds SEARCH arguments.
	Search *SearchParams

	// Enable lists the capabilities of an ENABLE command.
	Enable []string

	// ID holds the ID field pairs. For "ID NIL" it is non-nil and its
	// Fields is nil.
	ID *IDParams

	// Quota holds GETQUOTA/SETQUOTA arguments.
	Quota *QuotaParams

	// Metadata holds GETMETADATA/SETMETADATA arguments.
	Metadata *MetadataParams

	// URLAuth holds GENURLAUTH/URLFETCH/RESETKEY arguments.
	URLAuth *URLAuthParams
}

func (c *Command) clientEvent() {}

// SelectParams are the optional SELECT/EXAMINE parameters.
type SelectParams struct {
	// Condstore is set for (CONDSTORE).
	Condstore bool
	// Qresync holds the QRESYNC parameter, nil when absent.
	Qresync *QresyncParams
}

// QresyncParams is the QRESYNC parameter of SELECT (RFC 7162).
type QresyncParams struct {
	UIDValidity uint32
	ModSeq      uint64
	UIDs        *SeqSet
	// KnownSeqMatch and KnownUIDMatch are the optional third argument pair.
	KnownSeqMatch *SeqSet
	KnownUIDMatch *SeqSet
}

// CreateParams are the optional CREATE parameters.
type CreateParams struct {
	// SpecialUse lists the requested special-use attributes (RFC 6154).
	SpecialUse []MailboxAttr
}

// RenameParams is the RENAME argument pair.
type RenameParams struct {
	Existing string
	New      string
}

// AuthParams are LOGIN or AUTHENTICATE arguments.
type AuthParams struct {
	// Username and Password are set for LOGIN.
	Username string
	Password string
	// Mechanism and InitialResponse are set for AUTHENTICATE; the initial
	// response (RFC 4959 SASL-IR) is raw base64-decoded data, nil when
	// absent and empty but non-nil for "=".
	Mechanism       string
	InitialResponse []byte
}

// ListParams are LIST/LSUB arguments, including LIST-EXTENDED options.
type ListParams struct {
	Reference string
	// Patterns holds the mailbox patterns. Plain LIST has exactly one;
	// LIST-EXTENDED may carry several.
	Patterns []string
	// SelectOptions are the LIST-EXTENDED selection options (SUBSCRIBED,
	// REMOTE, RECURSIVEMATCH, SPECIAL-USE).
	SelectOptions []string
	// ReturnOptions are the RETURN options (SUBSCRIBED, CHILDREN,
	// SPECIAL-USE, STATUS with its attribute list).
	ReturnOptions []string
	// ReturnStatus holds the STATUS return attributes when requested.
	ReturnStatus []string
}

// StatusParams lists the attributes of a STATUS command.
type StatusParams struct {
	Items []string
}

// FetchParams are the FETCH items and modifiers.
type FetchParams struct {
	Items []FetchItem
	// ChangedSince is the CHANGEDSINCE modifier (RFC 7162), 0 when absent.
	ChangedSince uint64
	// Vanished is set for the VANISHED modifier (RFC 7162).
	Vanished bool
}

// StoreMode is the kind of flag update requested by STORE.
type StoreMode int

const (
	StoreReplace StoreMode = iota
	StoreAdd
	StoreRemove
)

// StoreParams are STORE arguments.
type StoreParams struct {
	Mode   StoreMode
	Silent bool
	Flags  []Flag
	// UnchangedSince is the UNCHANGEDSINCE modifier (RFC 7162), 0 when
	// absent.
	UnchangedSince uint64
}

// SearchParams are SEARCH arguments.
type SearchParams struct {
	Options SearchOptions
	Key     *SearchKey
}

// IDField is a single ID key/value pair. A nil Value represents NIL.
type IDField struct {
	Key   string
	Value *string
}

// IDParams holds the ID argument list; Fields is nil for "ID NIL".
type IDParams struct {
	Fields []IDField
}

// QuotaResource is a single resource name/limit pair of SETQUOTA.
type QuotaResource struct {
	Name  string
	Limit int64
}

// QuotaParams are GETQUOTA/SETQUOTA arguments.
type QuotaParams struct {
	Root string
	// Resources is set for SETQUOTA.
	Resources []QuotaResource
}

// MetadataEntry is one entry of GETMETADATA/SETMETADATA. A nil Value
// represents NIL (entry removal in SETMETADATA).
type MetadataEntry struct {
	Name  string
	Value []byte
}

// MetadataParams are GETMETADATA/SETMETADATA arguments (RFC 5464).
type MetadataParams struct {
	Mailbox string
	// Options are the GETMETADATA options (MAXSIZE n, DEPTH n/infinity).
	Options []string
	// Entries lists requested entry names for GETMETADATA or name/value
	// pairs for SETMETADATA.
	Entries []MetadataEntry
}

// URLAuthParams are GENURLAUTH, URLFETCH and RESETKEY arguments (RFC 4467).
type URLAuthParams struct {
	// URLs holds url/mechanism pairs for GENURLAUTH or plain URLs for
	// URLFETCH.
	URLs []URLAuthItem
	// Mailbox and Mechanisms are RESETKEY arguments.
	Mailbox    string
	Mechanisms []string
}

// URLAuthItem is one GENURLAUTH url/mechanism pair.
type URLAuthItem struct {
	URL       string
	Mechanism string
}

// AppendOptions are the optional arguments between the APPEND mailbox and
// its data: the flag list and the internal date.
type AppendOptions struct {
	Flags []Flag
	// Date is nil when no date-time was given.
	Date *time.Time
}
