package poll

import (
	"context"

	"github.com/wanqianwin-jpg/aimp/log"
	"github.com/wanqianwin-jpg/aimp/protocol"
	"github.com/wanqianwin-jpg/aimp/store"
	"github.com/wanqianwin-jpg/aimp/transport"
)

// handleRoomMessages implements §4.3 step 1.
func (l *Loop) handleRoomMessages(ctx context.Context, msgs []transport.ParsedEmail, now int64) {
	touched := map[string]bool{}

	for _, p := range msgs {
		roomID, ok := transport.ClassifyRoomID(p.Subject)
		if !ok {
			continue
		}
		room, err := l.Store.LoadRoom(roomID)
		if err != nil {
			log.Ctx(ctx).Error("failed to load room", "room", roomID, "error", err)
			continue
		}
		if room == nil {
			continue // unknown room_id: dropped per §4.3 step 1
		}
		if room.IsTerminal() {
			l.handlePostFinalizationReply(ctx, room, p)
			continue
		}

		protocolJSON := ""
		if attachment, ok := p.ProtocolAttachment(); ok {
			protocolJSON = string(attachment)
		}
		if _, err := l.Store.SavePending(store.PendingEmail{
			RoomID:       roomID,
			ReceivedAt:   p.ReceivedAt,
			From:         p.From,
			Subject:      p.Subject,
			Body:         p.Body,
			ProtocolJSON: protocolJSON,
		}); err != nil {
			log.Ctx(ctx).Error("failed to store pending room email", "room", roomID, "error", err)
			continue
		}

		l.autoRegisterIfUnknown(p.From, p.FromName)
		room.EnsureParticipant(p.From)
		room.RecordRoundReply(p.From)
		if err := l.Store.SaveRoom(room); err != nil {
			log.Ctx(ctx).Error("failed to persist room", "room", roomID, "error", err)
			continue
		}
		touched[roomID] = true
	}

	for roomID := range touched {
		l.processRoomRound(ctx, roomID, now)
	}
}

func (l *Loop) processRoomRound(ctx context.Context, roomID string, now int64) {
	room, err := l.Store.LoadRoom(roomID)
	if err != nil || room == nil {
		return
	}
	if !room.IsRoundComplete() {
		return
	}

	pending, err := l.Store.LoadPendingForRoom(roomID)
	if err != nil {
		log.Ctx(ctx).Error("failed to load pending room emails", "room", roomID, "error", err)
		return
	}
	var unprocessed []store.PendingEmail
	for _, p := range pending {
		if !p.Processed {
			unprocessed = append(unprocessed, p)
		}
	}

	result := l.Rooms.ProcessRound(ctx, room, unprocessed, now)

	if err := l.Store.SaveRoom(room); err != nil {
		log.Ctx(ctx).Error("failed to persist room after round", "room", roomID, "error", err)
		return
	}
	for _, p := range unprocessed {
		if err := l.Store.MarkProcessed(p.ID); err != nil {
			log.Ctx(ctx).Error("failed to mark pending room email processed", "id", p.ID, "error", err)
		}
	}

	for _, w := range result.Warnings {
		log.Ctx(ctx).Warn("room round warning", "room", roomID, "detail", w)
	}
	for _, out := range result.Outbound {
		if err := l.Sender.SendRoom(ctx, roomID, out); err != nil {
			log.Ctx(ctx).Error("failed to send room reply", "room", roomID, "error", err)
		}
	}
}

// handlePostFinalizationReply implements §4.4.2's CONFIRM/REJECT/ignore
// handling for messages that arrive after a room has already finalized.
func (l *Loop) handlePostFinalizationReply(ctx context.Context, room *protocol.Room, p transport.ParsedEmail) {
	veto := l.Rooms.HandlePostFinalizationReply(room, p.From, p.Body)
	if !veto.Handled {
		return
	}
	if err := l.Store.SaveRoom(room); err != nil {
		log.Ctx(ctx).Error("failed to persist room after veto reply", "room", room.RoomID, "error", err)
		return
	}
	if veto.ToSender != nil {
		if err := l.Sender.SendRoom(ctx, room.RoomID, *veto.ToSender); err != nil {
			log.Ctx(ctx).Error("failed to send veto acknowledgement", "room", room.RoomID, "error", err)
		}
	}
	if veto.ToInitiator != nil {
		if err := l.Sender.SendRoom(ctx, room.RoomID, *veto.ToInitiator); err != nil {
			log.Ctx(ctx).Error("failed to send veto escalation", "room", room.RoomID, "error", err)
		}
	}
}
