// Package engine implements the two protocol state machines described in
// spec §4.4: SessionEngine (slot negotiation) and RoomEngine (content
// amendment, deadline finalization, veto). Both mutate the protocol entity
// they are given in place (the hub's poll loop passes one freshly loaded
// from the store and persists it afterwards) and return the
// plain-text/wire-form outbound messages for the caller to thread and send.
package engine

// OutboundMessage is a plain-text reply plus optional wire-form attachment,
// addressed but not yet threaded (References/In-Reply-To are filled in by
// the caller, which alone knows prior Message-IDs for the thread).
type OutboundMessage struct {
	To           []string
	Subject      string
	Body         string
	ProtocolJSON []byte
}

// SessionRoundResult is the outcome of SessionEngine.ProcessRound.
type SessionRoundResult struct {
	Outbound          []OutboundMessage
	OwnerNotification string // non-empty when the owner/admins must be told (confirm or escalate)
	Warnings          []string
}
