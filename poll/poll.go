// Package poll implements the hub's tick loop (spec §4.3): a strictly
// sequential, single-threaded pass over unread transport messages that
// drives the store-first, round-gated SessionEngine/RoomEngine pipeline,
// the dispatcher for unrouted mail, and the deadline sweep over open rooms.
package poll

import (
	"context"

	"github.com/wanqianwin-jpg/aimp/engine"
	"github.com/wanqianwin-jpg/aimp/identity"
	"github.com/wanqianwin-jpg/aimp/log"
	"github.com/wanqianwin-jpg/aimp/oracle"
	"github.com/wanqianwin-jpg/aimp/store"
	"github.com/wanqianwin-jpg/aimp/transport"
)

// Sender abstracts the threading + send step so Tick does not need to know
// how References/In-Reply-To/Message-ID are assembled; the hub package
// supplies the concrete implementation (it alone tracks prior message-ids).
type Sender interface {
	SendSession(ctx context.Context, sessionID string, version int, msg engine.OutboundMessage) error
	SendRoom(ctx context.Context, roomID string, msg engine.OutboundMessage) error
	SendPlain(ctx context.Context, to, subject, body string) error
}

// Notifier abstracts the owner/admin notification channel (§6.5 notify_mode).
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// Resolver resolves a member-command participant name to an email address,
// per §4.5.2's three-step lookup (hub members, contacts book, bare address);
// the hub package supplies the concrete implementation since only it holds
// the contacts configuration.
type Resolver interface {
	Resolve(name string) (address string, ok bool)
}

// Loop owns everything one Tick needs: the store, transport, engines, the
// oracle-backed dispatcher, and identity registry.
type Loop struct {
	Store      *store.Store
	Transport  transport.Transport
	Sessions   *engine.SessionEngine
	Rooms      *engine.RoomEngine
	Oracle     oracle.Oracle
	Registry   *identity.Registry
	Throttle   *identity.StrangerThrottle
	Sender     Sender
	Notifier   Notifier
	Resolver   Resolver
	HubAddress string
}

// Tick runs exactly one pass of the algorithm in §4.3, in order. A failure
// handling one message never aborts the tick; it is logged and the loop
// proceeds to the next message or phase.
func (l *Loop) Tick(ctx context.Context, now int64) {
	emails, err := l.Transport.Fetch(ctx)
	if err != nil {
		log.Ctx(ctx).Error("transport fetch failed", "error", err)
		return
	}

	var roomMsgs, sessionMsgs, other []transport.ParsedEmail
	for _, p := range emails {
		if sameAddress(p.From, l.HubAddress) {
			continue
		}
		if _, ok := transport.ClassifyRoomID(p.Subject); ok {
			roomMsgs = append(roomMsgs, p)
			continue
		}
		if _, ok := transport.ClassifySessionID(p.Subject); ok {
			sessionMsgs = append(sessionMsgs, p)
			continue
		}
		other = append(other, p)
	}

	l.handleRoomMessages(ctx, roomMsgs, now)
	l.handleSessionMessages(ctx, sessionMsgs)
	l.handleOtherMessages(ctx, other, now)
	l.sweepDeadlines(ctx, now)
}

// autoRegisterIfUnknown implements spec §9's auto-registration rule:
// a Session/Room participant replying from an address the Registry doesn't
// recognize is registered as a trusted member before their vote is folded,
// mirroring the invite-code self-registration path in handleInvite.
func (l *Loop) autoRegisterIfUnknown(from, fromName string) {
	if l.Registry == nil || l.Registry.Identify(from) != nil {
		return
	}
	l.Registry.Register(from, identity.DisplayNameOrLocalPart(fromName, from))
}

func sameAddress(a, b string) bool {
	return b != "" && normalizeAddress(a) == normalizeAddress(b)
}

func normalizeAddress(a string) string {
	out := make([]byte, len(a))
	for i := 0; i < len(a); i++ {
		c := a[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}
