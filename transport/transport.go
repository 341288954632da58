// Package transport abstracts the IMAP/SMTP boundary described in spec §6.1
// as a transport with fetch/send operations. Wire-level IMAP/SMTP handling
// sits outside the spec's core (§1 Out of scope), but a concrete boundary
// implementation is still carried as ambient scaffolding (SMTPIMAPTransport).
package transport

import (
	"context"
	"fmt"
	"time"
)

// OutboundEmail is everything the poll loop and engines need to hand to
// Send: a plain-text body plus an optional protocol.json attachment and
// threading headers (§6.1).
type OutboundEmail struct {
	To           []string
	Subject      string
	Body         string
	ProtocolJSON []byte // nil if this email carries no wire-form attachment
	References   []string
	InReplyTo    string

	// EntityID and Version feed Message-ID generation (§6.1); EntityID is
	// the session_id or room_id this message belongs to.
	EntityID string
	Version  int
}

// Transport is the fetch/send boundary the poll loop drives every tick.
type Transport interface {
	// Fetch returns unread messages received since the last fetch.
	Fetch(ctx context.Context) ([]ParsedEmail, error)
	// Send delivers msg and returns the Message-ID assigned to it.
	Send(ctx context.Context, msg OutboundEmail) (string, error)
}

// Error wraps any transport failure (§7 TransportError). A fetch failure
// ends the tick; send failures are logged and are not auto-retried
// (§4.4.3, §9).
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("transport: %s: %v", e.Op, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// MessageID generates a Message-ID of the form
// <aimp-<id>-v<version>-<epoch>@<hub-domain>> (§6.1).
func MessageID(hubDomain, id string, version int, now time.Time) string {
	return fmt.Sprintf("<aimp-%s-v%d-%d@%s>", id, version, now.Unix(), hubDomain)
}
