package engine

import (
	"context"
	"fmt"

	"github.com/wanqianwin-jpg/aimp/log"
	"github.com/wanqianwin-jpg/aimp/oracle"
	"github.com/wanqianwin-jpg/aimp/protocol"
	"github.com/wanqianwin-jpg/aimp/store"
	"github.com/wanqianwin-jpg/aimp/transport"
)

// SessionEngine drives Session state transitions (§4.4.1).
type SessionEngine struct {
	Oracle oracle.Oracle
	// MaxRounds overrides protocol.MaxRounds when > 0, wired from the hub's
	// configured max_rounds (§6.5) so operators can tune the stall
	// threshold without a rebuild.
	MaxRounds int
}

// ProcessRound folds every pending message into sess, advances the round,
// and evaluates the confirm/stall/counter transition. sess is mutated in
// place; callers wanting transactional semantics should pass a Clone().
func (e *SessionEngine) ProcessRound(ctx context.Context, sess *protocol.Session, pending []store.PendingEmail) *SessionRoundResult {
	result := &SessionRoundResult{}

	for _, msg := range pending {
		e.foldMessage(ctx, sess, msg, result)
	}

	sess.AdvanceRound()

	switch {
	case sess.IsFullyResolved():
		e.confirm(sess, result)
	case sess.IsStalled(e.MaxRounds):
		e.escalate(sess, result)
	default:
		e.counter(sess, result)
	}

	return result
}

func (e *SessionEngine) foldMessage(ctx context.Context, sess *protocol.Session, msg store.PendingEmail, result *SessionRoundResult) {
	if msg.ProtocolJSON != "" {
		attached, err := protocol.SessionFromWire([]byte(msg.ProtocolJSON))
		if err == nil {
			e.foldAttachment(sess, msg.From, attached, result)
			return
		}
		// ParseError (§7): malformed wire form is treated as no attachment.
		result.Warnings = append(result.Warnings, fmt.Sprintf("malformed protocol.json from %s, falling back to free text: %v", msg.From, err))
	}
	e.foldFreeText(ctx, sess, msg, result)
}

func (e *SessionEngine) foldAttachment(sess *protocol.Session, from string, attached *protocol.Session, result *SessionRoundResult) {
	for item, p := range attached.Proposals {
		for _, option := range p.Options {
			sess.AddOption(item, option)
		}
		if choice := p.Votes[from]; choice != "" {
			if err := sess.ApplyVote(from, item, choice); err != nil {
				result.Warnings = append(result.Warnings, err.Error())
			}
		}
	}
}

func (e *SessionEngine) foldFreeText(ctx context.Context, sess *protocol.Session, msg store.PendingEmail, result *SessionRoundResult) {
	currentOptions := make(map[string][]string, len(sess.Proposals))
	for item, p := range sess.Proposals {
		currentOptions[item] = p.Options
	}

	parsed, err := e.Oracle.ParseHumanReply(ctx, msg.Body, currentOptions)
	if err != nil {
		// §4.4.3: fail the message; no vote applied, row still marked processed.
		log.Ctx(ctx).Warn("vote parsing failed, message dropped", "from", msg.From, "error", err)
		result.Warnings = append(result.Warnings, fmt.Sprintf("failed to parse reply from %s: %v", msg.From, err))
		return
	}
	if parsed == nil {
		return
	}
	for item, choice := range parsed.Votes {
		if choice == nil || *choice == "" {
			continue
		}
		sess.AddOption(item, *choice)
		if err := sess.ApplyVote(msg.From, item, *choice); err != nil {
			result.Warnings = append(result.Warnings, err.Error())
		}
	}
}

func (e *SessionEngine) confirm(sess *protocol.Session, result *SessionRoundResult) {
	sess.Status = protocol.SessionConfirmed
	sess.BumpVersion()
	sess.AddHistory("hub", "confirm", "all items resolved")

	wire, _ := sess.ToWire()
	body := sessionConfirmedBody(sess.Topic)
	for _, p := range sess.Participants {
		if p == sess.Initiator {
			continue
		}
		result.Outbound = append(result.Outbound, OutboundMessage{
			To:           []string{p},
			Subject:      transport.SessionSubject(sess.SessionID, sess.Version, sess.Topic),
			Body:         body,
			ProtocolJSON: wire,
		})
	}
	result.OwnerNotification = sessionConfirmedNotification(sess.SessionID, sess.Topic)
}

func (e *SessionEngine) escalate(sess *protocol.Session, result *SessionRoundResult) {
	maxRounds := e.MaxRounds
	if maxRounds <= 0 {
		maxRounds = protocol.MaxRounds
	}
	sess.Status = protocol.SessionEscalated
	sess.AddHistory("hub", "escalate", sessionEscalatedHistorySummary(maxRounds))
	result.OwnerNotification = sessionEscalatedNotification(sess.SessionID, maxRounds, sess.Topic)
}

func (e *SessionEngine) counter(sess *protocol.Session, result *SessionRoundResult) {
	sess.BumpVersion()
	sess.AddHistory("hub", "counter", sessionCounterHistorySummary(sess.CurrentRound))

	wire, _ := sess.ToWire()
	body := sessionCounterBody(sess.Topic, sess.CurrentRound)
	for _, p := range sess.Participants {
		result.Outbound = append(result.Outbound, OutboundMessage{
			To:           []string{p},
			Subject:      transport.SessionSubject(sess.SessionID, sess.Version, sess.Topic),
			Body:         body,
			ProtocolJSON: wire,
		})
	}
}
