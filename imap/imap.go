// Package imap provides the protocol value types shared by the command and
// response parsers.
//
// The package models the IMAP4rev1 grammar from RFC 3501 together with the
// extensions commonly seen on the wire: CONDSTORE, QRESYNC, QUOTA, ESEARCH,
// ID, NAMESPACE, LIST-EXTENDED, ENABLE, METADATA, CATENATE, URLAUTH, MOVE,
// UIDPLUS, BINARY, LITERAL+/LITERAL-, SEARCHRES, IDLE and SPECIAL-USE.
package imap

import "strings"

// Flag represents an IMAP message flag.
type Flag string

// Standard flags defined in RFC 3501 section 2.3.2.
const (
	FlagSeen     Flag = "\\Seen"
	FlagAnswered Flag = "\\Answered"
	FlagFlagged  Flag = "\\Flagged"
	FlagDeleted  Flag = "\\Deleted"
	FlagDraft    Flag = "\\Draft"
	FlagRecent   Flag = "\\Recent"
	FlagWildcard Flag = "\\*"
)

var systemFlags = [...]Flag{
	FlagSeen, FlagAnswered, FlagFlagged, FlagDeleted, FlagDraft, FlagRecent,
}

// CanonicalFlag folds the well known system flags to their canonical
// capitalisation. Keyword flags and flag extensions are returned unchanged.
func CanonicalFlag(f Flag) Flag {
	for _, s := range systemFlags {
		if strings.EqualFold(string(f), string(s)) {
			return s
		}
	}
	return f
}

// IsSystemFlag reports whether f is one of the RFC 3501 system flags.
func IsSystemFlag(f Flag) bool {
	for _, s := range systemFlags {
		if strings.EqualFold(string(f), string(s)) {
			return true
		}
	}
	return false
}

// MailboxAttr is a mailbox name attribute returned by LIST and LSUB.
type MailboxAttr string

// Attributes from RFC 3501, RFC 3348 (CHILDREN) and RFC 6154 (SPECIAL-USE).
const (
	AttrNoInferiors   MailboxAttr = "\\Noinferiors"
	AttrNoSelect      MailboxAttr = "\\Noselect"
	AttrMarked        MailboxAttr = "\\Marked"
	AttrUnmarked      MailboxAttr = "\\Unmarked"
	AttrHasChildren   MailboxAttr = "\\HasChildren"
	AttrHasNoChildren MailboxAttr = "\\HasNoChildren"
	AttrSubscribed    MailboxAttr = "\\Subscribed"
	AttrNonExistent   MailboxAttr = "\\NonExistent"
	AttrAll           MailboxAttr = "\\All"
	AttrArchive       MailboxAttr = "\\Archive"
	AttrDrafts        MailboxAttr = "\\Drafts"
	AttrFlagged       MailboxAttr = "\\Flagged"
	AttrJunk          MailboxAttr = "\\Junk"
	AttrSent          MailboxAttr = "\\Sent"
	AttrTrash         MailboxAttr = "\\Trash"
)

// CanonicalMailbox folds INBOX case-insensitively as required by RFC 3501
// section 5.1. Every other name is byte preserving.
func CanonicalMailbox(name string) string {
	if strings.EqualFold(name, "INBOX") {
		return "INBOX"
	}
	return name
}

// StatusType is the condition of a greeting, tagged or untagged status
// response.
type StatusType string

const (
	StatusOK      StatusType = "OK"
	StatusNo      StatusType = "NO"
	StatusBad     StatusType = "BAD"
	StatusBye     StatusType = "BYE"
	StatusPreauth StatusType = "PREAUTH"
)

// RespText is the resp-text production: free text optionally prefixed by a
// bracketed response code.
type RespText struct {
	// Code is the response code atom, e.g. "ALERT" or "UIDNEXT". Empty when
	// the text carries no code.
	Code string
	// Args holds the raw code arguments, e.g. ["4392"] for [UIDNEXT 4392].
	Args []string
	// Text is the human readable text after the code.
	Text string
}

// UID is an IMAP unique identifier.
type UID uint32

// SeqNum is an IMAP message sequence number.
type SeqNum uint32
