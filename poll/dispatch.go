package poll

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/wanqianwin-jpg/aimp/identity"
	"github.com/wanqianwin-jpg/aimp/log"
	"github.com/wanqianwin-jpg/aimp/transport"
)

// handleOtherMessages implements §4.3 step 3: dispatch for every unread
// message that is neither a Room nor a Session reply.
func (l *Loop) handleOtherMessages(ctx context.Context, msgs []transport.ParsedEmail, now int64) {
	nowTime := time.Unix(now, 0).UTC()

	for _, p := range msgs {
		if member := l.Registry.Identify(p.From); member != nil {
			l.handleMemberCommand(ctx, member, p)
			continue
		}
		if identity.IsAutoReplyOrBounce(p.From, p.Subject) {
			continue // dropped without reply, §4.5.3
		}
		if code, ok := identity.ExtractInviteCode(p.Subject); ok {
			l.handleInvite(ctx, p, code, nowTime)
			continue
		}
		if l.Throttle == nil || l.Throttle.ShouldNotify(p.From, nowTime) {
			body := "To use this hub, ask a member to send you an invite code, then reply with subject [AIMP-INVITE:<code>]."
			if err := l.Sender.SendPlain(ctx, p.From, "How to register", body); err != nil {
				log.Ctx(ctx).Error("failed to send registration instructions", "to", p.From, "error", err)
			}
		}
	}
}

func (l *Loop) handleInvite(ctx context.Context, p transport.ParsedEmail, code string, today time.Time) {
	ic := l.Registry.ValidateInviteCode(code, today)
	if ic == nil {
		if err := l.Sender.SendPlain(ctx, p.From, "Invite code invalid", "That invite code is unknown, expired, or has already been used up."); err != nil {
			log.Ctx(ctx).Error("failed to send invite-rejection reply", "to", p.From, "error", err)
		}
		return
	}

	name := identity.DisplayNameOrLocalPart(p.FromName, p.From)
	l.Registry.Register(p.From, name)
	l.Registry.ConsumeInviteCode(code)

	card := identity.NewCapabilityCard(l.HubAddress, l.HubAddress, l.Registry.RegisteredNonTrustedNames())
	cardJSON, _ := json.MarshalIndent(card, "", "  ")
	body := fmt.Sprintf("Welcome, %s. You're now registered. Here is what I can do:\n\n%s", name, cardJSON)
	if err := l.Sender.SendPlain(ctx, p.From, "Welcome to the hub", body); err != nil {
		log.Ctx(ctx).Error("failed to send welcome reply", "to", p.From, "error", err)
	}
}

// handleMemberCommand parses a known member's message as a standalone
// request (schedule a meeting, create a room). Tick already routes any
// [AIMP:...] Room or Session reply to handleRoomMessages/handleSessionMessages
// before handleOtherMessages runs, so every message reaching here is a plain,
// un-tagged member command.
func (l *Loop) handleMemberCommand(ctx context.Context, member *identity.Member, p transport.ParsedEmail) {
	result, err := l.Oracle.ParseMemberRequest(ctx, member.Name, p.Subject, p.Body)
	if err != nil {
		log.Ctx(ctx).Warn("member request parsing failed", "from", member.Email, "error", err)
		if sendErr := l.Sender.SendPlain(ctx, member.Email, "Could not understand your request", "Sorry, I couldn't parse that request. Could you rephrase it?"); sendErr != nil {
			log.Ctx(ctx).Error("failed to send parse-failure reply", "to", member.Email, "error", sendErr)
		}
		return
	}

	if len(result.Missing) > 0 {
		body := "I need a bit more information: " + strings.Join(result.Missing, ", ")
		if err := l.Sender.SendPlain(ctx, member.Email, "More information needed", body); err != nil {
			log.Ctx(ctx).Error("failed to send missing-fields reply", "to", member.Email, "error", err)
		}
		return
	}

	switch result.Action {
	case "schedule_meeting":
		l.dispatchScheduleMeeting(ctx, member, result)
	case "create_room":
		l.dispatchCreateRoom(ctx, member, result)
	default:
		if err := l.Sender.SendPlain(ctx, member.Email, "Could not understand your request", "I couldn't tell what you'd like me to do. Try describing a meeting to schedule or a document to finalize."); err != nil {
			log.Ctx(ctx).Error("failed to send unclear-request reply", "to", member.Email, "error", err)
		}
	}
}
