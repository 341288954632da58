package poll

import (
	"context"

	"github.com/wanqianwin-jpg/aimp/log"
)

// sweepDeadlines implements §4.3 step 4: any open room whose deadline has
// passed is finalized even without full acceptance, independent of whether
// new mail arrived for it this tick.
func (l *Loop) sweepDeadlines(ctx context.Context, now int64) {
	rooms, err := l.Store.LoadOpenRooms()
	if err != nil {
		log.Ctx(ctx).Error("failed to load open rooms for deadline sweep", "error", err)
		return
	}
	for _, room := range rooms {
		if !room.IsPastDeadline(now) {
			continue
		}
		result := l.Rooms.Finalize(ctx, room, "deadline_expired")
		if err := l.Store.SaveRoom(room); err != nil {
			log.Ctx(ctx).Error("failed to persist room after deadline finalize", "room", room.RoomID, "error", err)
			continue
		}
		for _, out := range result.Outbound {
			if err := l.Sender.SendRoom(ctx, room.RoomID, out); err != nil {
				log.Ctx(ctx).Error("failed to send finalize notice", "room", room.RoomID, "error", err)
			}
		}
	}
}
