package imap

// BodyStructure is one node of the BODYSTRUCTURE tree. A node is either a
// single part (Parts is nil) or a multipart (Parts is non-nil and the
// single-part fields other than Subtype are unset).
type BodyStructure struct {
	// MIMEType and Subtype are the media type, lower-cased on parse is NOT
	// performed; IMAP servers conventionally send them upper case and the
	// bytes are preserved.
	MIMEType string
	Subtype  string

	// Params are the body parameter pairs in source order.
	Params []BodyParam

	// Single part fields.
	ID          string
	Description string
	Encoding    string
	Size        uint32

	// Envelope and Embedded are set for message/rfc822 parts.
	Envelope *Envelope
	Embedded *BodyStructure

	// Lines is the line count for text/* and message/rfc822 parts.
	Lines uint32

	// Parts holds the children of a multipart node.
	Parts []*BodyStructure

	// Extension data, filled when the server sent it. Extended is also set
	// for every node parsed from BODYSTRUCTURE, with or without it.
	Extended    bool
	MD5         string
	Disposition *BodyDisposition
	Language    []string
	Location    string
}

// BodyParam is a single body parameter key/value pair.
type BodyParam struct {
	Key   string
	Value string
}

// BodyDisposition is the content-disposition extension field.
type BodyDisposition struct {
	Type   string
	Params []BodyParam
}

// Multipart reports whether the node is a multipart container.
func (bs *BodyStructure) Multipart() bool { return len(bs.Parts) > 0 }
