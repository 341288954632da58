package hub

import (
	"context"

	"github.com/fsnotify/fsnotify"

	"github.com/wanqianwin-jpg/aimp/identity"
	"github.com/wanqianwin-jpg/aimp/log"
)

// WatchConfig reloads members/invite_codes/contacts whenever the config
// file changes on disk, so an operator editing the whitelist by hand does
// not require a hub restart. Runs until ctx is cancelled.
func (h *Hub) WatchConfig(ctx context.Context) error {
	if h.Config.path == "" {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(h.Config.path); err != nil {
		return err
	}

	logger := log.Ctx(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			h.reloadIdentity(logger)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher error", "error", err)
		}
	}
}

func (h *Hub) reloadIdentity(logger log.Logger) {
	reloaded, err := LoadConfig(h.Config.path)
	if err != nil {
		logger.Warn("config reload failed, keeping previous configuration", "error", err)
		return
	}
	h.Config.Members = reloaded.Members
	h.Config.InviteCodes = reloaded.InviteCodes
	h.Config.Contacts = reloaded.Contacts

	members := make([]*identity.Member, 0, len(reloaded.Members))
	for id, m := range reloaded.Members {
		role := m.Role
		if role == "" {
			role = identity.RoleMember
		}
		members = append(members, &identity.Member{ID: id, Name: m.Name, Email: m.Email, Role: role})
	}
	codes := make([]*identity.InviteCode, 0, len(reloaded.InviteCodes))
	for _, c := range reloaded.InviteCodes {
		codes = append(codes, &identity.InviteCode{Code: c.Code, Expires: c.Expires, MaxUses: c.MaxUses, Used: c.Used})
	}
	h.Registry = identity.NewRegistry(members, codes, h.onMemberRegistered, h.onInviteConsumed)
	h.Loop.Registry = h.Registry
	h.Loop.Resolver = NewContactResolver(reloaded.Members, reloaded.Contacts)
	logger.Info("configuration reloaded", "members", len(members), "invite_codes", len(codes))
}
