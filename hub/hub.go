package hub

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/wanqianwin-jpg/aimp/engine"
	"github.com/wanqianwin-jpg/aimp/identity"
	"github.com/wanqianwin-jpg/aimp/log"
	"github.com/wanqianwin-jpg/aimp/oracle"
	"github.com/wanqianwin-jpg/aimp/poll"
	"github.com/wanqianwin-jpg/aimp/store"
	"github.com/wanqianwin-jpg/aimp/transport"
)

// Hub is the top-level process: it owns the store, transport, oracle,
// identity registry, and poll loop, and schedules ticks on the configured
// interval (§6.5 poll_interval_seconds) using a cron scheduler so the
// deadline sweep and mail dispatch both run on the same cadence.
type Hub struct {
	Config    *Config
	Store     *store.Store
	Transport transport.Transport
	Oracle    oracle.Oracle
	Registry  *identity.Registry
	Loop      *poll.Loop

	cron *cron.Cron
}

// New wires a Hub from its loaded configuration. The transport parameter is
// accepted rather than constructed here so tests can substitute a fake; the
// real SMTP/IMAP transport is built by cmd/aimphub's buildTransport.
func New(cfg *Config, tr transport.Transport, db *store.Store) (*Hub, error) {
	oc, err := oracle.New(oracle.Config{
		Provider:  cfg.LLM.Provider,
		Model:     cfg.LLM.Model,
		APIKeyEnv: cfg.LLM.APIKeyEnv,
		BaseURL:   cfg.LLM.BaseURL,
	})
	if err != nil {
		return nil, err
	}

	members := make([]*identity.Member, 0, len(cfg.Members))
	for id, m := range cfg.Members {
		role := m.Role
		if role == "" {
			role = identity.RoleMember
		}
		members = append(members, &identity.Member{ID: id, Name: m.Name, Email: m.Email, Role: role})
	}
	codes := make([]*identity.InviteCode, 0, len(cfg.InviteCodes))
	for _, c := range cfg.InviteCodes {
		codes = append(codes, &identity.InviteCode{Code: c.Code, Expires: c.Expires, MaxUses: c.MaxUses, Used: c.Used})
	}

	h := &Hub{Config: cfg, Store: db, Transport: tr, Oracle: oc}

	h.Registry = identity.NewRegistry(members, codes, h.onMemberRegistered, h.onInviteConsumed)

	var notifier poll.Notifier
	sender := &EmailSender{Store: db, Transport: tr, HubDomain: cfg.Hub.Domain}
	if cfg.NotifyMode == "email" {
		ownerAddr := firstAdminEmail(cfg.Members)
		notifier = &EmailNotifier{Sender: sender.SendPlain, OwnerAddr: ownerAddr}
	} else {
		notifier = NewStdoutNotifier()
	}

	h.Loop = &poll.Loop{
		Store:      db,
		Transport:  tr,
		Sessions:   &engine.SessionEngine{Oracle: oc, MaxRounds: cfg.MaxRounds},
		Rooms:      &engine.RoomEngine{Oracle: oc},
		Oracle:     oc,
		Registry:   h.Registry,
		Throttle:   identity.NewStrangerThrottle(24 * time.Hour),
		Sender:     sender,
		Notifier:   notifier,
		Resolver:   NewContactResolver(cfg.Members, cfg.Contacts),
		HubAddress: cfg.Hub.Email,
	}

	return h, nil
}

func firstAdminEmail(members map[string]MemberConfig) string {
	for _, m := range members {
		if m.Role == identity.RoleAdmin {
			return m.Email
		}
	}
	return ""
}

func (h *Hub) onMemberRegistered(m *identity.Member) {
	if err := h.persistMember(m); err != nil {
		log.Ctx(context.Background()).Error("failed to persist newly registered member", "member", m.Email, "error", err)
	}
}

func (h *Hub) onInviteConsumed(code string) {
	if err := h.persistInviteUsage(code); err != nil {
		log.Ctx(context.Background()).Error("failed to persist invite code usage", "code", code, "error", err)
	}
}

// Run starts the cron-scheduled tick loop and blocks until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	h.cron = cron.New()
	spec := fmt.Sprintf("@every %ds", h.Config.PollIntervalSecond)
	_, err := h.cron.AddFunc(spec, func() {
		h.Loop.Tick(ctx, time.Now().Unix())
	})
	if err != nil {
		return fmt.Errorf("hub: failed to schedule tick: %w", err)
	}
	h.cron.Start()
	<-ctx.Done()
	stopCtx := h.cron.Stop()
	<-stopCtx.Done()
	return nil
}

// Tick runs exactly one pass of the poll loop, for callers that want to
// drive it manually instead of through Run's schedule.
func (h *Hub) Tick(ctx context.Context) {
	h.Loop.Tick(ctx, time.Now().Unix())
}
