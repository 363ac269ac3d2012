package domain

// Subject is what the identity source tells us about a user. Only the ID is
// required; email and role are embedded where the token kind needs them.
type Subject struct {
	ID    string
	Email string
	Role  string
}

// RequestContext is the per-request binding input supplied by the transport
// layer. Either field may be empty.
type RequestContext struct {
	DeviceFingerprint string
	SourceIP          string
}
