package imap

// LiteralInfo describes a literal marker: {N}, {N+} or ~{N}.
type LiteralInfo struct {
	// Size is the octet count announced by the marker.
	Size int64
	// NonSync is set for {N+} literals (LITERAL+/LITERAL-), which the client
	// sends without waiting for a continuation request.
	NonSync bool
	// Binary is set for ~{N} literals (RFC 3516), whose content carries no
	// content-transfer-encoding.
	Binary bool
}

// Sync reports whether the literal requires a continuation request before
// its octets are transmitted.
func (l LiteralInfo) Sync() bool { return !l.NonSync }
