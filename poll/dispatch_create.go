package poll

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wanqianwin-jpg/aimp/engine"
	"github.com/wanqianwin-jpg/aimp/identity"
	"github.com/wanqianwin-jpg/aimp/log"
	"github.com/wanqianwin-jpg/aimp/oracle"
	"github.com/wanqianwin-jpg/aimp/protocol"
	"github.com/wanqianwin-jpg/aimp/transport"
)

// resolveParticipants maps each requested name to an address via Resolver,
// returning the unresolved names separately (§4.5.2).
func (l *Loop) resolveParticipants(names []string) (addresses, unresolved []string) {
	for _, name := range names {
		if l.Resolver == nil {
			unresolved = append(unresolved, name)
			continue
		}
		if addr, ok := l.Resolver.Resolve(name); ok {
			addresses = append(addresses, addr)
		} else {
			unresolved = append(unresolved, name)
		}
	}
	return addresses, unresolved
}

func (l *Loop) dispatchScheduleMeeting(ctx context.Context, member *identity.Member, result *oracle.MemberRequestResult) {
	if result.Topic == nil || *result.Topic == "" || len(result.Participants) == 0 {
		l.sendStructuralError(ctx, member.Email, "A meeting needs a topic and at least one participant.")
		return
	}

	addresses, unresolved := l.resolveParticipants(result.Participants)
	if len(unresolved) > 0 {
		l.sendUnresolvedError(ctx, member.Email, unresolved)
		return
	}

	participants := append([]string{member.Email}, addresses...)
	sess := protocol.NewSession(uuid.NewString(), *result.Topic, participants, member.Email)
	if err := l.Store.SaveSession(sess); err != nil {
		log.Ctx(ctx).Error("failed to persist new session", "error", err)
		return
	}

	wire, _ := sess.ToWire()
	body := fmt.Sprintf("%s has proposed a meeting: %q. Please reply with your preferred time and location.", member.Email, sess.Topic)
	for _, p := range addresses {
		out := engine.OutboundMessage{
			To:           []string{p},
			Subject:      transport.SessionSubject(sess.SessionID, sess.Version, sess.Topic),
			Body:         body,
			ProtocolJSON: wire,
		}
		if err := l.Sender.SendSession(ctx, sess.SessionID, sess.Version, out); err != nil {
			log.Ctx(ctx).Error("failed to send session invitation", "to", p, "error", err)
		}
	}
}

func (l *Loop) dispatchCreateRoom(ctx context.Context, member *identity.Member, result *oracle.MemberRequestResult) {
	if result.Topic == nil || *result.Topic == "" || len(result.Participants) == 0 || result.Deadline == "" {
		l.sendStructuralError(ctx, member.Email, "A room needs a topic, at least one participant, and a deadline.")
		return
	}

	deadline, err := parseDeadline(result.Deadline)
	if err != nil {
		l.sendStructuralError(ctx, member.Email, "I couldn't understand the deadline you gave; please specify an absolute date/time.")
		return
	}

	addresses, unresolved := l.resolveParticipants(result.Participants)
	if len(unresolved) > 0 {
		l.sendUnresolvedError(ctx, member.Email, unresolved)
		return
	}

	participants := append([]string{member.Email}, addresses...)
	room := protocol.NewRoom(uuid.NewString(), *result.Topic, participants, member.Email, deadline, result.ResolutionRules)
	if result.InitialProposal != "" {
		room.PutArtifact(&protocol.Artifact{
			Name:      "initial_proposal",
			BodyText:  result.InitialProposal,
			Author:    member.Email,
			Timestamp: deadline,
		})
	}
	if err := l.Store.SaveRoom(room); err != nil {
		log.Ctx(ctx).Error("failed to persist new room", "error", err)
		return
	}

	body := fmt.Sprintf("%s has started a room to finalize %q, deadline %s. Reply PROPOSE/AMEND/ACCEPT as you see fit.", member.Email, room.Topic, result.Deadline)
	for _, p := range addresses {
		out := engine.OutboundMessage{
			To:      []string{p},
			Subject: transport.RoomSubject(room.RoomID, room.Topic),
			Body:    body,
		}
		if err := l.Sender.SendRoom(ctx, room.RoomID, out); err != nil {
			log.Ctx(ctx).Error("failed to send room invitation", "to", p, "error", err)
		}
	}
}

func (l *Loop) sendStructuralError(ctx context.Context, to, msg string) {
	if err := l.Sender.SendPlain(ctx, to, "More information needed", msg); err != nil {
		log.Ctx(ctx).Error("failed to send structural-error reply", "to", to, "error", err)
	}
}

func (l *Loop) sendUnresolvedError(ctx context.Context, to string, unresolved []string) {
	body := "I couldn't find an address for: " + strings.Join(unresolved, ", ") + ". Could you give me their email addresses?"
	if err := l.Sender.SendPlain(ctx, to, "Unresolved participants", body); err != nil {
		log.Ctx(ctx).Error("failed to send unresolved-participants reply", "to", to, "error", err)
	}
}

// parseDeadline accepts RFC3339 first, then a bare date, mirroring the
// lenient parsing the LLM oracle's free-text deadline output requires.
func parseDeadline(s string) (int64, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Unix(), nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return 0, err
	}
	return t.Unix(), nil
}
