package poll

import (
	"context"

	"github.com/wanqianwin-jpg/aimp/log"
	"github.com/wanqianwin-jpg/aimp/store"
	"github.com/wanqianwin-jpg/aimp/transport"
)

// handleSessionMessages implements §4.3 step 2. A missing/unparsable
// protocol attachment is not fatal: the pending row is still stored and
// folded by SessionEngine, which treats it as a free-text vote (§4.4.1 step
// C / §7 ParseError).
func (l *Loop) handleSessionMessages(ctx context.Context, msgs []transport.ParsedEmail) {
	touched := map[string]bool{}

	for _, p := range msgs {
		sessionID, ok := transport.ClassifySessionID(p.Subject)
		if !ok {
			continue
		}
		sess, err := l.Store.LoadSession(sessionID)
		if err != nil {
			log.Ctx(ctx).Error("failed to load session", "session", sessionID, "error", err)
			continue
		}
		if sess == nil || sess.IsTerminal() {
			continue
		}

		protocolJSON := ""
		if attachment, ok := p.ProtocolAttachment(); ok {
			protocolJSON = string(attachment)
		}
		if _, err := l.Store.SavePending(store.PendingEmail{
			SessionID:    sessionID,
			ReceivedAt:   p.ReceivedAt,
			From:         p.From,
			Subject:      p.Subject,
			Body:         p.Body,
			ProtocolJSON: protocolJSON,
		}); err != nil {
			log.Ctx(ctx).Error("failed to store pending session email", "session", sessionID, "error", err)
			continue
		}

		l.autoRegisterIfUnknown(p.From, p.FromName)
		sess.EnsureParticipant(p.From)
		sess.RecordRoundReply(p.From)
		if err := l.Store.SaveSession(sess); err != nil {
			log.Ctx(ctx).Error("failed to persist session", "session", sessionID, "error", err)
			continue
		}
		touched[sessionID] = true
	}

	for sessionID := range touched {
		l.processSessionRound(ctx, sessionID)
	}
}

func (l *Loop) processSessionRound(ctx context.Context, sessionID string) {
	sess, err := l.Store.LoadSession(sessionID)
	if err != nil || sess == nil {
		return
	}
	if !sess.IsRoundComplete() {
		return
	}

	pending, err := l.Store.LoadPendingForSession(sessionID)
	if err != nil {
		log.Ctx(ctx).Error("failed to load pending session emails", "session", sessionID, "error", err)
		return
	}
	var unprocessed []store.PendingEmail
	for _, p := range pending {
		if !p.Processed {
			unprocessed = append(unprocessed, p)
		}
	}

	result := l.Sessions.ProcessRound(ctx, sess, unprocessed)

	if err := l.Store.SaveSession(sess); err != nil {
		log.Ctx(ctx).Error("failed to persist session after round", "session", sessionID, "error", err)
		return
	}
	for _, p := range unprocessed {
		if err := l.Store.MarkProcessed(p.ID); err != nil {
			log.Ctx(ctx).Error("failed to mark pending session email processed", "id", p.ID, "error", err)
		}
	}

	for _, w := range result.Warnings {
		log.Ctx(ctx).Warn("session round warning", "session", sessionID, "detail", w)
	}
	for _, out := range result.Outbound {
		if err := l.Sender.SendSession(ctx, sessionID, sess.Version, out); err != nil {
			log.Ctx(ctx).Error("failed to send session reply", "session", sessionID, "error", err)
		}
	}
	if result.OwnerNotification != "" && l.Notifier != nil {
		if err := l.Notifier.Notify(ctx, result.OwnerNotification); err != nil {
			log.Ctx(ctx).Error("failed to deliver owner notification", "session", sessionID, "error", err)
		}
	}
}
